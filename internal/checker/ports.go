package checker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

// portPresets are named port lists accepted anywhere a port token is.
var portPresets = map[string][]int{
	"common":   {21, 22, 23, 25, 53, 80, 110, 135, 139, 143, 443, 993, 995, 1433, 3306, 3389, 5432, 5900, 8080, 8443},
	"web":      {80, 443, 8000, 8008, 8080, 8443, 8888},
	"database": {1433, 1521, 3306, 5432, 6379, 9200, 27017},
	"remote":   {22, 23, 3389, 5900, 5985, 5986},
}

// PresetNames lists the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(portPresets))
	for name := range portPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParsePortSpec turns a spec such as "common", "22,80,443" or "8000-8010,22"
// into a sorted, de-duplicated port list of at most maxPorts entries.
func ParsePortSpec(spec string, maxPorts int) ([]int, error) {
	if maxPorts <= 0 {
		maxPorts = consts.MaxPorts
	}
	seen := make(map[int]struct{})
	add := func(p int) error {
		seen[p] = struct{}{}
		if len(seen) > maxPorts {
			return fmt.Errorf("%w (max %d)", sharedErrors.ErrTooManyPorts, maxPorts)
		}
		return nil
	}

	for _, token := range strings.Split(spec, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		if preset, ok := portPresets[token]; ok {
			for _, p := range preset {
				if err := add(p); err != nil {
					return nil, err
				}
			}
			continue
		}
		if lo, hi, ok := strings.Cut(token, "-"); ok {
			start, err := parsePort(lo)
			if err != nil {
				return nil, err
			}
			end, err := parsePort(hi)
			if err != nil {
				return nil, err
			}
			if start > end {
				return nil, fmt.Errorf("%w: range %q is reversed", sharedErrors.ErrInvalidPort, token)
			}
			for p := start; p <= end; p++ {
				if err := add(p); err != nil {
					return nil, err
				}
			}
			continue
		}
		p, err := parsePort(token)
		if err != nil {
			return nil, err
		}
		if err := add(p); err != nil {
			return nil, err
		}
	}

	if len(seen) == 0 {
		return nil, sharedErrors.ErrNoPorts
	}
	ports := make([]int, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p < 1 || p > 65535 {
		return 0, fmt.Errorf("%w: %q", sharedErrors.ErrInvalidPort, s)
	}
	return p, nil
}

var serviceNames = map[int]string{
	21:    "FTP",
	22:    "SSH",
	23:    "Telnet",
	25:    "SMTP",
	53:    "DNS",
	80:    "HTTP",
	110:   "POP3",
	135:   "RPC",
	139:   "NetBIOS",
	143:   "IMAP",
	443:   "HTTPS",
	445:   "SMB",
	993:   "IMAPS",
	995:   "POP3S",
	1433:  "MSSQL",
	1521:  "Oracle",
	3306:  "MySQL",
	3389:  "RDP",
	5432:  "PostgreSQL",
	5900:  "VNC",
	5985:  "WinRM",
	5986:  "WinRM-HTTPS",
	6379:  "Redis",
	8000:  "HTTP-Alt",
	8008:  "HTTP-Alt",
	8080:  "HTTP-Alt",
	8443:  "HTTPS-Alt",
	8888:  "HTTP-Alt",
	9200:  "Elasticsearch",
	27017: "MongoDB",
}

// getServiceName returns the well-known service for a port
func getServiceName(port int) string {
	if service, ok := serviceNames[port]; ok {
		return service
	}
	return "Unknown"
}

// getPortRisk assigns a risk level to an open port
func getPortRisk(port int) string {
	switch port {
	case 23, 3389, 5900: // Telnet, RDP, VNC
		return "critical"
	case 21, 22, 445, 1433, 1521, 3306, 5432, 6379, 9200, 27017, 5985, 5986:
		return "high"
	case 25, 110, 135, 139, 143, 8000, 8008, 8080, 8443, 8888:
		return "medium"
	case 80, 443:
		return "low"
	}
	return "info"
}
