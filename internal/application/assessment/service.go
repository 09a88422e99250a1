// Package assessment runs one assessment per call, records the result in the
// history store and returns it. Storage failures are logged and dropped.
package assessment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/khanhnv2901/secakit/internal/checker"
	"github.com/khanhnv2901/secakit/internal/domain/history"
	"github.com/khanhnv2901/secakit/internal/domain/scan"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

const (
	appendTimeout = 5 * time.Second

	defaultWebsiteDeadline = 2 * time.Minute
)

// PortScanner is satisfied by *checker.PortScanner.
type PortScanner interface {
	Scan(ctx context.Context, target, spec string) (*scan.PortScanResult, error)
}

// PingProber is satisfied by *checker.PingProbe.
type PingProber interface {
	Ping(ctx context.Context, target string, count int) (*scan.PingResult, error)
}

// Tracer is satisfied by *checker.TracerouteEngine.
type Tracer interface {
	Trace(ctx context.Context, target string, maxHops int) (*scan.TracerouteResult, error)
}

// FileAnalyzer is satisfied by *filescan.Analyzer.
type FileAnalyzer interface {
	Analyze(ctx context.Context, data []byte, filename string) *scan.FileScanResult
}

// WebsiteAssessor is satisfied by *checker.WebsiteAssessor.
type WebsiteAssessor interface {
	Assess(ctx context.Context, rawURL string) (*scan.WebsiteScanResult, error)
}

// HostInspector is satisfied by *sysinfo.Collector.
type HostInspector interface {
	Collect(ctx context.Context) (*scan.SystemInfo, error)
}

// Components are the assessors the service dispatches to.
type Components struct {
	Ports   PortScanner
	Ping    PingProber
	Trace   Tracer
	Files   FileAnalyzer
	Website WebsiteAssessor
	Host    HostInspector
}

// Options tune service behaviour.
type Options struct {
	WebsiteCacheTTL time.Duration // 0 disables the website cache
	WebsiteDeadline time.Duration // bound on one shared website assessment
	PageSize        int           // largest history page
	MaxUploadBytes  int64
}

// Service is the single entry point used by the API and the CLI.
type Service struct {
	components Components
	store      history.Store
	logger     *zap.Logger
	opts       Options

	flight singleflight.Group
	mu     sync.Mutex
	cache  map[string]cachedWebsite
	now    func() time.Time
}

type cachedWebsite struct {
	result  *scan.WebsiteScanResult
	expires time.Time
}

// NewService creates a new assessment service
func NewService(components Components, store history.Store, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = consts.DefaultHistoryPageSize
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = consts.MaxUploadBytes
	}
	if opts.WebsiteDeadline <= 0 {
		opts.WebsiteDeadline = defaultWebsiteDeadline
	}
	return &Service{
		components: components,
		store:      store,
		logger:     logger,
		opts:       opts,
		cache:      make(map[string]cachedWebsite),
		now:        time.Now,
	}
}

// ScanPorts scans spec on target.
func (s *Service) ScanPorts(ctx context.Context, target, spec string) (*scan.PortScanResult, error) {
	result, err := s.components.Ports.Scan(ctx, target, spec)
	if err != nil {
		return nil, s.failed("port scan", target, err)
	}
	s.logger.Info("port scan completed",
		zap.String("target", target),
		zap.String("resolved_ip", result.ResolvedIP),
		zap.Int("open", len(result.OpenPorts)),
		zap.Int("closed", len(result.ClosedPorts)),
		zap.Float64("duration_s", result.ScanDuration))
	s.record(ctx, history.KindPortScan, result.Meta, result)
	return result, nil
}

// Ping sends count echo probes to target.
func (s *Service) Ping(ctx context.Context, target string, count int) (*scan.PingResult, error) {
	result, err := s.components.Ping.Ping(ctx, target, count)
	if err != nil {
		return nil, s.failed("ping", target, err)
	}
	s.logger.Info("ping completed",
		zap.String("target", target),
		zap.String("method", string(result.Method)),
		zap.Int("sent", result.PacketsSent),
		zap.Int("received", result.PacketsReceived))
	s.record(ctx, history.KindPing, result.Meta, result)
	return result, nil
}

// Traceroute traces the route to target.
func (s *Service) Traceroute(ctx context.Context, target string, maxHops int) (*scan.TracerouteResult, error) {
	result, err := s.components.Trace.Trace(ctx, target, maxHops)
	if err != nil {
		return nil, s.failed("traceroute", target, err)
	}
	s.logger.Info("traceroute completed",
		zap.String("target", target),
		zap.Bool("reached", result.Reached),
		zap.Int("hops", result.TotalHops))
	s.record(ctx, history.KindTraceroute, result.Meta, result)
	return result, nil
}

// ScanFile scores an uploaded file.
func (s *Service) ScanFile(ctx context.Context, data []byte, filename string) (*scan.FileScanResult, error) {
	if int64(len(data)) > s.opts.MaxUploadBytes {
		return nil, fmt.Errorf("%w (max %d bytes)", sharedErrors.ErrFileTooLarge, s.opts.MaxUploadBytes)
	}
	result := s.components.Files.Analyze(ctx, data, filename)
	s.logger.Info("file scan completed",
		zap.String("filename", result.Filename),
		zap.String("sha256", result.FileHash),
		zap.String("risk", string(result.RiskLevel)))
	s.record(ctx, history.KindFileScan, result.Meta, result)
	return result, nil
}

// CheckWebsite assesses rawURL. A result for the same normalized URL younger
// than the cache TTL is returned as is and not recorded again. Concurrent
// checks of one URL share a single assessment.
func (s *Service) CheckWebsite(ctx context.Context, rawURL string) (*scan.WebsiteScanResult, error) {
	candidates, err := checker.WebsiteCandidates(rawURL)
	if err != nil {
		return nil, err
	}
	key := candidates[0]

	if cached := s.cached(key); cached != nil {
		s.logger.Debug("website check served from cache", zap.String("url", key))
		return cached, nil
	}

	// The assessment is shared by every caller of key, so it must not die
	// with whichever caller started it. Each caller waits on its own ctx.
	ch := s.flight.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.WebsiteDeadline)
		defer cancel()

		result, err := s.components.Website.Assess(shared, rawURL)
		if err != nil {
			return nil, err
		}
		s.remember(key, result)
		s.logger.Info("website check completed",
			zap.String("url", key),
			zap.String("final_url", result.FinalURL),
			zap.Int("score", result.SecurityScore))
		s.record(shared, history.KindWebsite, result.Meta, result)
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, s.failed("website check", key, res.Err)
		}
		return res.Val.(*scan.WebsiteScanResult), nil
	}
}

// SystemInfo snapshots the host the toolkit runs on. Snapshots are not
// recorded in history.
func (s *Service) SystemInfo(ctx context.Context) (*scan.SystemInfo, error) {
	if s.components.Host == nil {
		return nil, fmt.Errorf("system info: %w", sharedErrors.ErrSystemInfoUnavailable)
	}
	info, err := s.components.Host.Collect(ctx)
	if err != nil {
		return nil, s.failed("system info", "localhost", fmt.Errorf("%w: %v", sharedErrors.ErrSystemInfoUnavailable, err))
	}
	s.logger.Debug("system info collected",
		zap.String("hostname", info.Hostname),
		zap.Int("processes", len(info.TopProcesses)))
	return info, nil
}

// History returns up to limit records of kind, newest first. The limit is
// clamped to [1, page size]; a non-positive limit means a full page.
func (s *Service) History(ctx context.Context, kind history.Kind, limit int) ([]history.Record, error) {
	if limit <= 0 || limit > s.opts.PageSize {
		limit = s.opts.PageSize
	}
	recs, err := s.store.Recent(ctx, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s history: %w", kind, err)
	}
	return recs, nil
}

// Healthy reports whether the history store is reachable.
func (s *Service) Healthy(ctx context.Context) error {
	if p, ok := s.store.(history.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// record appends to history on a context detached from the caller so a
// disconnecting client does not lose the record.
func (s *Service) record(ctx context.Context, kind history.Kind, meta scan.Meta, result any) {
	rec, err := history.NewRecord(kind, meta, result)
	if err != nil {
		s.logger.Error("history record encoding failed", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), appendTimeout)
	defer cancel()
	if err := s.store.Append(ctx, rec); err != nil {
		s.logger.Warn("history append failed",
			zap.String("kind", string(kind)),
			zap.String("id", rec.ID),
			zap.Error(err))
	}
}

func (s *Service) failed(op, target string, err error) error {
	if sharedErrors.IsClientError(err) {
		s.logger.Info(op+" rejected", zap.String("target", target), zap.Error(err))
	} else {
		s.logger.Error(op+" failed", zap.String("target", target), zap.Error(err))
	}
	return err
}

func (s *Service) cached(key string) *scan.WebsiteScanResult {
	if s.opts.WebsiteCacheTTL <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[key]
	if !ok {
		return nil
	}
	if s.now().After(entry.expires) {
		delete(s.cache, key)
		return nil
	}
	return entry.result
}

func (s *Service) remember(key string, result *scan.WebsiteScanResult) {
	if s.opts.WebsiteCacheTTL <= 0 {
		return
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, entry := range s.cache {
		if now.After(entry.expires) {
			delete(s.cache, k)
		}
	}
	s.cache[key] = cachedWebsite{result: result, expires: now.Add(s.opts.WebsiteCacheTTL)}
}
