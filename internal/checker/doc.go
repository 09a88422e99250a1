// Package checker implements the target assessments: TCP port scanning,
// echo latency probing, hop-by-hop route tracing and website security
// scoring.
//
// Each assessor is a plain struct configured by the caller and exposing one
// context-aware method that returns a result from internal/domain/scan or a
// wrapped sentinel from internal/shared/errors. Probe failures are folded into
// results (closed ports, silent hops, lost packets) rather than returned.
//
// Target parsing (ParseTarget, WebsiteCandidates) and port-set parsing
// (ParsePortSpec) are shared by the assessors and the API layer.
package checker
