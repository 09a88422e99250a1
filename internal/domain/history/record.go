package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

// Kind identifies which assessment produced a record.
type Kind string

const (
	KindPortScan   Kind = "port_scan"
	KindPing       Kind = "ping"
	KindTraceroute Kind = "traceroute"
	KindFileScan   Kind = "file_scan"
	KindWebsite    Kind = "website_check"
)

// Kinds lists every kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindPortScan, KindPing, KindTraceroute, KindFileScan, KindWebsite}
}

var kindAliases = map[string]Kind{
	"ports":         KindPortScan,
	"port-scan":     KindPortScan,
	"port_scan":     KindPortScan,
	"ping":          KindPing,
	"trace":         KindTraceroute,
	"traceroute":    KindTraceroute,
	"file":          KindFileScan,
	"files":         KindFileScan,
	"file_scan":     KindFileScan,
	"website":       KindWebsite,
	"security":      KindWebsite,
	"website_check": KindWebsite,
}

// ParseKind accepts canonical kind names and the short aliases used by the CLI.
func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", sharedErrors.ErrUnknownKind, s)
}

// Record is one immutable history entry. Payload holds the JSON of the
// result that produced it.
type Record struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewRecord serializes a result into a record of the given kind.
func NewRecord(kind Kind, meta scan.Meta, result any) (Record, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}
	return Record{
		ID:        meta.ID,
		Kind:      kind,
		Timestamp: meta.Timestamp,
		Payload:   payload,
	}, nil
}

// Decode unmarshals the payload into dst.
func (r Record) Decode(dst any) error {
	if err := json.Unmarshal(r.Payload, dst); err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}
	return nil
}
