package scan

import (
	"time"

	"github.com/google/uuid"
)

// Meta is embedded in every assessment result.
type Meta struct {
	ID        string    `json:"id" yaml:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// NewMeta stamps a result with a fresh identifier and the current UTC time.
func NewMeta() Meta {
	return Meta{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
	}
}

// OpenPort is a port that accepted a TCP connection.
type OpenPort struct {
	Port    int    `json:"port" yaml:"port"`
	Service string `json:"service" yaml:"service"`
	Status  string `json:"status" yaml:"status"`
	Risk    string `json:"risk,omitempty" yaml:"risk,omitempty"`
}

// PortScanResult partitions the requested ports into open and closed.
type PortScanResult struct {
	Meta         `yaml:",inline"`
	Target       string     `json:"target" yaml:"target"`
	ResolvedIP   string     `json:"resolved_ip" yaml:"resolved_ip"`
	OpenPorts    []OpenPort `json:"open_ports" yaml:"open_ports"`
	ClosedPorts  []int      `json:"closed_ports" yaml:"closed_ports"`
	ScanDuration float64    `json:"scan_duration" yaml:"scan_duration"`
}

// Method names the echo mechanism used by a ping.
type Method string

const (
	MethodICMP Method = "icmp"
	MethodTCP  Method = "tcp"
)

// PingResult summarizes a batch of echo probes. Times are milliseconds and
// are nil when no probe was answered.
type PingResult struct {
	Meta            `yaml:",inline"`
	Target          string   `json:"target" yaml:"target"`
	ResolvedIP      string   `json:"resolved_ip" yaml:"resolved_ip"`
	Method          Method   `json:"method" yaml:"method"`
	ResponseTime    *float64 `json:"response_time" yaml:"response_time"`
	MinTime         *float64 `json:"min_time,omitempty" yaml:"min_time,omitempty"`
	MaxTime         *float64 `json:"max_time,omitempty" yaml:"max_time,omitempty"`
	PacketsSent     int      `json:"packets_sent" yaml:"packets_sent"`
	PacketsReceived int      `json:"packets_received" yaml:"packets_received"`
	PacketLoss      float64  `json:"packet_loss" yaml:"packet_loss"`
}

// NoReplyIP marks a hop that did not answer.
const NoReplyIP = "*"

// Hop is one TTL step of a traceroute.
type Hop struct {
	Hop      int      `json:"hop" yaml:"hop"`
	IP       string   `json:"ip" yaml:"ip"`
	Hostname string   `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	AvgTime  *float64 `json:"avg_time" yaml:"avg_time"`
}

// TracerouteResult lists hops in TTL order.
type TracerouteResult struct {
	Meta       `yaml:",inline"`
	Target     string `json:"target" yaml:"target"`
	ResolvedIP string `json:"resolved_ip" yaml:"resolved_ip"`
	MaxHops    int    `json:"max_hops" yaml:"max_hops"`
	Reached    bool   `json:"reached" yaml:"reached"`
	TotalHops  int    `json:"total_hops" yaml:"total_hops"`
	Hops       []Hop  `json:"hops" yaml:"hops"`
}

// RiskLevel is the coarse verdict of a file scan.
type RiskLevel string

const (
	RiskSafe   RiskLevel = "Safe"
	RiskMedium RiskLevel = "Medium Risk"
	RiskHigh   RiskLevel = "High Risk"
)

// Rank orders risk levels so verdicts can only be raised.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// Max returns the more severe of two levels.
func (r RiskLevel) Max(other RiskLevel) RiskLevel {
	if other.Rank() > r.Rank() {
		return other
	}
	return r
}

// ReputationStats are the engine counts reported by a hash reputation service.
type ReputationStats struct {
	Malicious  int `json:"malicious" yaml:"malicious"`
	Suspicious int `json:"suspicious" yaml:"suspicious"`
	Clean      int `json:"clean" yaml:"clean"`
	Undetected int `json:"undetected" yaml:"undetected"`
}

// ReputationAttributes wraps the stats the way the dashboard reads them.
type ReputationAttributes struct {
	Stats ReputationStats `json:"stats" yaml:"stats"`
}

// Reputation is the optional hash lookup section of a file scan.
type Reputation struct {
	Attributes ReputationAttributes `json:"attributes" yaml:"attributes"`
	Permalink  string               `json:"permalink,omitempty" yaml:"permalink,omitempty"`
}

// FileScanResult is the verdict for one uploaded file.
type FileScanResult struct {
	Meta                 `yaml:",inline"`
	Filename             string      `json:"filename" yaml:"filename"`
	FileSize             int64       `json:"file_size" yaml:"file_size"`
	FileHash             string      `json:"file_hash" yaml:"file_hash"`
	MimeType             string      `json:"mime_type" yaml:"mime_type"`
	RiskLevel            RiskLevel   `json:"risk_level" yaml:"risk_level"`
	SuspiciousIndicators []string    `json:"suspicious_indicators" yaml:"suspicious_indicators"`
	VirusTotalResult     *Reputation `json:"virustotal_result,omitempty" yaml:"virustotal_result,omitempty"`
}

// CertName carries the common name of a certificate subject or issuer.
type CertName struct {
	CN string `json:"CN" yaml:"CN"`
	O  string `json:"O,omitempty" yaml:"O,omitempty"`
}

// CertInfo describes the presented certificate, or carries Error when the
// handshake failed.
type CertInfo struct {
	Subject     *CertName `json:"subject,omitempty" yaml:"subject,omitempty"`
	Issuer      *CertName `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	Version     int       `json:"version,omitempty" yaml:"version,omitempty"`
	NotBefore   string    `json:"notBefore,omitempty" yaml:"notBefore,omitempty"`
	NotAfter    string    `json:"notAfter,omitempty" yaml:"notAfter,omitempty"`
	DNSNames    []string  `json:"dns_names,omitempty" yaml:"dns_names,omitempty"`
	TLSVersion  string    `json:"tls_version,omitempty" yaml:"tls_version,omitempty"`
	CipherSuite string    `json:"cipher_suite,omitempty" yaml:"cipher_suite,omitempty"`
	ExpiresSoon bool      `json:"expires_soon,omitempty" yaml:"expires_soon,omitempty"`
	Valid       bool      `json:"valid" yaml:"valid"`
	VerifyError string    `json:"verify_error,omitempty" yaml:"verify_error,omitempty"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// HeaderCheck reports one header of the fixed security set.
type HeaderCheck struct {
	Name    string   `json:"name" yaml:"name"`
	Present bool     `json:"present" yaml:"present"`
	Value   string   `json:"value,omitempty" yaml:"value,omitempty"`
	Issues  []string `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// CookieFinding flags a cookie set without Secure or HttpOnly.
type CookieFinding struct {
	Name            string `json:"name" yaml:"name"`
	MissingSecure   bool   `json:"missing_secure" yaml:"missing_secure"`
	MissingHTTPOnly bool   `json:"missing_httponly" yaml:"missing_httponly"`
}

// PageInfo summarizes the fetched document.
type PageInfo struct {
	Title             string   `json:"title,omitempty" yaml:"title,omitempty"`
	InsecureResources []string `json:"insecure_resources,omitempty" yaml:"insecure_resources,omitempty"`
	InsecureForms     []string `json:"insecure_forms,omitempty" yaml:"insecure_forms,omitempty"`
}

// Threat is one URL threat match.
type Threat struct {
	ThreatType   string `json:"threatType" yaml:"threatType"`
	PlatformType string `json:"platformType,omitempty" yaml:"platformType,omitempty"`
	URL          string `json:"url,omitempty" yaml:"url,omitempty"`
}

// ThreatReport is the optional URL threat lookup section.
type ThreatReport struct {
	Safe    bool     `json:"safe" yaml:"safe"`
	Threats []Threat `json:"threats" yaml:"threats"`
}

// WebsiteScanResult is the security posture of one URL.
type WebsiteScanResult struct {
	Meta               `yaml:",inline"`
	URL                string            `json:"url" yaml:"url"`
	FinalURL           string            `json:"final_url,omitempty" yaml:"final_url,omitempty"`
	StatusCode         int               `json:"status_code" yaml:"status_code"`
	HTTPSValid         bool              `json:"https_valid" yaml:"https_valid"`
	SSLCertInfo        CertInfo          `json:"ssl_cert_info" yaml:"ssl_cert_info"`
	HTTPHeaders        map[string]string `json:"http_headers" yaml:"http_headers"`
	SecurityHeaders    []HeaderCheck     `json:"security_headers" yaml:"security_headers"`
	Redirects          []string          `json:"redirects" yaml:"redirects"`
	CookieFindings     []CookieFinding   `json:"cookie_findings,omitempty" yaml:"cookie_findings,omitempty"`
	Page               *PageInfo         `json:"page,omitempty" yaml:"page,omitempty"`
	Warnings           []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	SafeBrowsingResult *ThreatReport     `json:"safe_browsing_result,omitempty" yaml:"safe_browsing_result,omitempty"`
	SecurityScore      int               `json:"security_score" yaml:"security_score"`
}

// ProcessUsage is one entry of the busiest-process list.
type ProcessUsage struct {
	PID           int32   `json:"pid" yaml:"pid"`
	Name          string  `json:"name" yaml:"name"`
	CPUPercent    float64 `json:"cpu_percent" yaml:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent" yaml:"memory_percent"`
}

// SystemInfo is a snapshot of the host running the toolkit. Sizes are GiB
// rounded to two decimals. PublicIP is nil when the lookup failed.
type SystemInfo struct {
	OSName         string         `json:"os_name" yaml:"os_name"`
	OSVersion      string         `json:"os_version" yaml:"os_version"`
	Hostname       string         `json:"hostname" yaml:"hostname"`
	LocalIP        string         `json:"local_ip" yaml:"local_ip"`
	PublicIP       *string        `json:"public_ip" yaml:"public_ip"`
	RAMTotal       float64        `json:"ram_total" yaml:"ram_total"`
	RAMUsed        float64        `json:"ram_used" yaml:"ram_used"`
	RAMPercentage  float64        `json:"ram_percentage" yaml:"ram_percentage"`
	DiskTotal      float64        `json:"disk_total" yaml:"disk_total"`
	DiskUsed       float64        `json:"disk_used" yaml:"disk_used"`
	DiskFree       float64        `json:"disk_free" yaml:"disk_free"`
	DiskPercentage float64        `json:"disk_percentage" yaml:"disk_percentage"`
	Uptime         string         `json:"uptime" yaml:"uptime"`
	UptimeSeconds  uint64         `json:"uptime_seconds" yaml:"uptime_seconds"`
	TopProcesses   []ProcessUsage `json:"top_processes" yaml:"top_processes"`
}
