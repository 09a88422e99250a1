// Package filescan scores uploaded files: content hash, MIME sniffing, static
// heuristics and an optional hash reputation lookup.
package filescan

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

// ReputationLookup reports engine verdicts for a SHA-256 hash. Only the hash
// leaves the process.
type ReputationLookup interface {
	LookupHash(ctx context.Context, sha256Hex string) (*scan.Reputation, error)
}

// Analyzer produces a FileScanResult. The zero value runs heuristics only.
type Analyzer struct {
	Reputation    ReputationLookup
	LookupTimeout time.Duration
	Logger        *zap.Logger
}

// Analyze hashes data, applies the heuristic rules in order and, when a
// reputation lookup is configured, raises the verdict from its stats. A
// failed lookup omits the reputation section and never fails the scan.
func (a *Analyzer) Analyze(ctx context.Context, data []byte, filename string) *scan.FileScanResult {
	name := cleanName(filename)
	sum := sha256.Sum256(data)
	mime := mimetype.Detect(data)

	info := &fileInfo{
		name:  name,
		ext:   strings.ToLower(filepath.Ext(name)),
		data:  data,
		lower: bytes.ToLower(data),
		mime:  mime,
	}

	result := &scan.FileScanResult{
		Meta:                 scan.NewMeta(),
		Filename:             name,
		FileSize:             int64(len(data)),
		FileHash:             hex.EncodeToString(sum[:]),
		MimeType:             mime.String(),
		SuspiciousIndicators: []string{},
	}

	var hits []indicator
	for _, r := range rules {
		hits = append(hits, r(info)...)
	}
	for _, hit := range hits {
		result.SuspiciousIndicators = append(result.SuspiciousIndicators, hit.reason)
	}
	result.RiskLevel = riskFromIndicators(hits)

	if a.Reputation != nil {
		if rep := a.lookup(ctx, result.FileHash); rep != nil {
			result.VirusTotalResult = rep
			result.RiskLevel = result.RiskLevel.Max(riskFromReputation(rep.Attributes.Stats))
		}
	}
	return result
}

func (a *Analyzer) lookup(ctx context.Context, hash string) *scan.Reputation {
	timeout := a.LookupTimeout
	if timeout <= 0 {
		timeout = consts.DefaultLookupTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rep, err := a.Reputation.LookupHash(ctx, hash)
	if err != nil {
		level := zap.WarnLevel
		if errors.Is(err, sharedErrors.ErrLookupNotFound) || errors.Is(err, sharedErrors.ErrLookupUnavailable) {
			level = zap.DebugLevel
		}
		a.logger().Log(level, "reputation lookup skipped", zap.String("sha256", hash), zap.Error(err))
		return nil
	}
	return rep
}

func (a *Analyzer) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// riskFromIndicators: any high hit is High Risk, any hit is Medium Risk.
func riskFromIndicators(hits []indicator) scan.RiskLevel {
	level := scan.RiskSafe
	for _, hit := range hits {
		if hit.severity == severityHigh {
			return scan.RiskHigh
		}
		level = scan.RiskMedium
	}
	return level
}

func riskFromReputation(stats scan.ReputationStats) scan.RiskLevel {
	switch {
	case stats.Malicious > 0:
		return scan.RiskHigh
	case stats.Suspicious > 0:
		return scan.RiskMedium
	default:
		return scan.RiskSafe
	}
}

// cleanName strips any client-supplied directory components.
func cleanName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}

// ReadLimited reads r fully, failing with ErrFileTooLarge past maxBytes.
func ReadLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = consts.MaxUploadBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w (max %d bytes)", sharedErrors.ErrFileTooLarge, maxBytes)
	}
	return data, nil
}
