package application

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/secakit/internal/application/assessment"
	"github.com/khanhnv2901/secakit/internal/checker"
	"github.com/khanhnv2901/secakit/internal/domain/history"
	"github.com/khanhnv2901/secakit/internal/filescan"
	"github.com/khanhnv2901/secakit/internal/infrastructure/events/pubsub"
	"github.com/khanhnv2901/secakit/internal/infrastructure/persistence/jsonl"
	"github.com/khanhnv2901/secakit/internal/infrastructure/persistence/memory"
	"github.com/khanhnv2901/secakit/internal/infrastructure/persistence/postgres"
	"github.com/khanhnv2901/secakit/internal/infrastructure/persistence/sqlite"
	"github.com/khanhnv2901/secakit/internal/intel"
	"github.com/khanhnv2901/secakit/internal/probe"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
	"github.com/khanhnv2901/secakit/internal/sysinfo"
)

// History backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config carries every setting the container needs. cmd fills it from viper.
type Config struct {
	DataDir string

	PortTimeout time.Duration
	PortWorkers int
	MaxPorts    int

	PingMethod     string
	PingTimeout    time.Duration
	PingInterval   time.Duration
	PingPrivileged bool
	PingTCPPort    int

	TraceProbeTimeout time.Duration
	TraceProbesPerHop int
	TraceRDNSTimeout  time.Duration

	MaxUploadBytes int64

	WebsiteTimeout  time.Duration
	WebsiteCacheTTL time.Duration

	IntelTimeout       time.Duration
	VirusTotalAPIKey   string
	SafeBrowsingAPIKey string

	PublicIPURL string // empty skips the public address lookup

	HistoryBackend        string
	HistoryPageSize       int
	HistoryMemoryCapacity int
	HistoryDSN            string
	PubSubProject         string
	PubSubTopic           string
}

// Container holds the history store and the assessment service built on it.
// This is a simple dependency injection container
type Container struct {
	Store   history.Store
	Service *assessment.Service
	Logger  *zap.Logger
}

// NewContainer wires the configured history backend, the threat-intel
// clients whose keys are set, the assessors and the service.
func NewContainer(ctx context.Context, cfg Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	files := &filescan.Analyzer{LookupTimeout: cfg.IntelTimeout, Logger: logger.Named("filescan")}
	if cfg.VirusTotalAPIKey != "" {
		files.Reputation = intel.NewVirusTotal(cfg.VirusTotalAPIKey, cfg.IntelTimeout)
	}

	website := &checker.WebsiteAssessor{
		Timeout:       cfg.WebsiteTimeout,
		LookupTimeout: cfg.IntelTimeout,
		Logger:        logger.Named("website"),
	}
	if cfg.SafeBrowsingAPIKey != "" {
		sb, err := intel.NewSafeBrowsing(ctx, cfg.SafeBrowsingAPIKey)
		if err != nil {
			logger.Warn("safe browsing disabled", zap.Error(err))
		} else {
			website.Threats = sb
		}
	}

	components := assessment.Components{
		Ports: &checker.PortScanner{
			Resolver: probe.DefaultResolver,
			Dialer:   &net.Dialer{},
			Timeout:  cfg.PortTimeout,
			Workers:  cfg.PortWorkers,
			MaxPorts: cfg.MaxPorts,
		},
		Ping: &checker.PingProbe{
			Resolver: probe.DefaultResolver,
			Echoer:   probe.NewEchoer(cfg.PingMethod, cfg.PingPrivileged, cfg.PingTCPPort),
			Timeout:  cfg.PingTimeout,
			Interval: cfg.PingInterval,
		},
		Trace: &checker.TracerouteEngine{
			Resolver:     probe.DefaultResolver,
			NewHopper:    probe.ICMPHopperFactory,
			ProbeTimeout: cfg.TraceProbeTimeout,
			ProbesPerHop: cfg.TraceProbesPerHop,
			RDNSTimeout:  cfg.TraceRDNSTimeout,
		},
		Files:   files,
		Website: website,
		Host: &sysinfo.Collector{
			DiskPath:    "/",
			PublicIPURL: cfg.PublicIPURL,
			Client:      &http.Client{Timeout: consts.PublicIPTimeout},
			TopN:        consts.TopProcessCount,
			Logger:      logger.Named("sysinfo"),
		},
	}

	service := assessment.NewService(components, store, logger.Named("assessment"), assessment.Options{
		WebsiteCacheTTL: cfg.WebsiteCacheTTL,
		// https then http fetches, each bounded, plus the threat lookup
		WebsiteDeadline: 2*cfg.WebsiteTimeout + cfg.IntelTimeout,
		PageSize:        cfg.HistoryPageSize,
		MaxUploadBytes:  cfg.MaxUploadBytes,
	})

	return &Container{Store: store, Service: service, Logger: logger}, nil
}

// OpenStore opens the configured history backend, wrapped in a Pub/Sub
// mirror when a topic is configured.
func OpenStore(ctx context.Context, cfg Config, logger *zap.Logger) (history.Store, error) {
	var (
		store history.Store
		err   error
	)
	switch cfg.HistoryBackend {
	case BackendMemory:
		store = memory.New(cfg.HistoryMemoryCapacity)
	case BackendFile, "":
		store, err = jsonl.New(cfg.DataDir)
	case BackendSQLite:
		store, err = sqlite.Open(cfg.DataDir)
	case BackendPostgres:
		if cfg.HistoryDSN == "" {
			return nil, fmt.Errorf("%w: history.dsn is required for the postgres backend", sharedErrors.ErrInvalidInput)
		}
		store, err = postgres.Open(ctx, cfg.HistoryDSN)
	default:
		return nil, fmt.Errorf("%w: unknown history backend %q", sharedErrors.ErrInvalidInput, cfg.HistoryBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s history store: %w", cfg.HistoryBackend, err)
	}

	if cfg.PubSubTopic == "" {
		return store, nil
	}
	mirror, err := pubsub.Open(ctx, cfg.PubSubProject, cfg.PubSubTopic, store, logger.Named("pubsub"))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open history mirror: %w", err)
	}
	return mirror, nil
}

// Close releases the history store.
func (c *Container) Close() error {
	return c.Store.Close()
}
