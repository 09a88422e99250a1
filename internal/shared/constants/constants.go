package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o750
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o640
)

const (
	// MaxPorts caps a single port scan request.
	MaxPorts = 100
	// DefaultPortWorkers bounds concurrent TCP connects per scan.
	DefaultPortWorkers = 50
	// MaxPortWorkers is the hard ceiling for configured workers.
	MaxPortWorkers = 100
	// DefaultPortTimeout is the per-port connect timeout.
	DefaultPortTimeout = time.Second

	// MinPingCount and MaxPingCount bound echo probes per ping call.
	MinPingCount     = 1
	MaxPingCount     = 10
	DefaultPingCount = 4
	// DefaultProbeTimeout applies to each echo or hop probe.
	DefaultProbeTimeout = 2 * time.Second

	// MaxHops is the ceiling for traceroute TTLs.
	MaxHops             = 30
	DefaultProbesPerHop = 3

	// MaxUploadBytes caps file uploads.
	MaxUploadBytes = 50 << 20
	// BodyCaptureLimitBytes caps how much of a page body is parsed.
	BodyCaptureLimitBytes = 1 << 20
	// MaxRedirects bounds redirect following during website checks.
	MaxRedirects = 10
	// WebsiteCacheTTL is how long a website result is reused.
	WebsiteCacheTTL = 30 * time.Minute
	// DefaultHTTPTimeout bounds one website fetch including redirects.
	DefaultHTTPTimeout = 10 * time.Second
	// DefaultLookupTimeout bounds one threat-intel lookup.
	DefaultLookupTimeout = 10 * time.Second

	// DefaultHistoryPageSize bounds history reads.
	DefaultHistoryPageSize = 50
	// DefaultMemoryCapacity is the per-kind ring size of the memory store.
	DefaultMemoryCapacity = 500

	// PublicIPURL answers with the caller's public address as plain text.
	PublicIPURL = "https://api.ipify.org"
	// PublicIPTimeout bounds the best-effort public address lookup.
	PublicIPTimeout = 5 * time.Second
	// TopProcessCount is how many processes a system snapshot lists.
	TopProcessCount = 5

	// TLSSoonExpiryWindow flags certificates that expire soon.
	TLSSoonExpiryWindow = 14 * 24 * time.Hour
)
