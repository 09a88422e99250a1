package errors

import "errors"

// Domain errors
var (
	// Input errors
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyTarget  = errors.New("target cannot be empty")
	ErrInvalidPort  = errors.New("invalid port")
	ErrNoPorts      = errors.New("no valid ports specified")
	ErrTooManyPorts = errors.New("too many ports")
	ErrOutOfRange   = errors.New("value out of range")
	ErrInvalidURL   = errors.New("invalid url")
	ErrFileTooLarge = errors.New("file too large")
	ErrUnknownKind  = errors.New("unknown history kind")

	// Network errors
	ErrResolveFailed = errors.New("could not resolve hostname")
	ErrUnreachable   = errors.New("target unreachable")

	// ErrProbeUnavailable means the host cannot open the probe socket at all.
	ErrProbeUnavailable = errors.New("raw ICMP sockets are unavailable; run as root or grant CAP_NET_RAW")

	// ErrSystemInfoUnavailable wraps a failed host snapshot.
	ErrSystemInfoUnavailable = errors.New("failed to collect system info")

	// External lookups
	ErrLookupUnavailable = errors.New("lookup unavailable")
	ErrLookupNotFound    = errors.New("lookup returned no record")

	// Repository errors
	ErrRepositoryOperation   = errors.New("repository operation failed")
	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")
)

// IsClientError reports whether err was caused by the caller's input rather
// than by the engine.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrEmptyTarget, ErrInvalidPort, ErrNoPorts, ErrTooManyPorts,
		ErrOutOfRange, ErrInvalidURL, ErrUnknownKind, ErrResolveFailed, ErrUnreachable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
