package filescan

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// severity of a single heuristic hit.
type severity int

const (
	severityMedium severity = iota + 1
	severityHigh
)

// indicator is one rule hit: a human-readable reason and its weight.
type indicator struct {
	reason   string
	severity severity
}

// rule inspects one file and reports zero or more indicators.
type rule func(f *fileInfo) []indicator

// fileInfo is what every rule sees. lower is computed once for the content rules.
type fileInfo struct {
	name  string
	ext   string
	data  []byte
	lower []byte
	mime  *mimetype.MIME
}

const (
	eicarMarker      = "EICAR-STANDARD-ANTIVIRUS-TEST-FILE"
	entropyThreshold = 7.2
	entropyMinBytes  = 1024
)

var dangerousExtensions = map[string]bool{
	".exe": true, ".bat": true, ".ps1": true, ".scr": true, ".com": true,
	".pif": true, ".cmd": true, ".vbs": true, ".js": true, ".jar": true,
	".msi": true, ".hta": true, ".wsf": true, ".dll": true,
}

// decoyExtensions are the document, media and archive types a double
// extension pretends to be.
var decoyExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".rtf": true, ".txt": true, ".csv": true, ".odt": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wav": true,
	".zip": true, ".rar": true, ".7z": true, ".tar": true, ".gz": true,
}

var macroExtensions = map[string]bool{
	".docm": true, ".xlsm": true, ".pptm": true, ".dotm": true,
}

var macroMarkers = [][]byte{[]byte("vbaproject.bin"), []byte("_vba_project")}

// suspiciousPatterns are matched case-insensitively, one indicator per pattern.
var suspiciousPatterns = []string{
	"powershell", "cmd.exe", "base64", "wget", "curl", "download",
	"eval(", "exec(", "system(", "shell_exec", "passthru",
	"malware", "virus", "trojan", "backdoor", "keylogger",
}

var executableMIMEs = []string{
	"application/vnd.microsoft.portable-executable",
	"application/x-elf",
	"application/x-mach-binary",
}

var compressedMIMEs = []string{
	"application/zip", "application/gzip", "application/x-7z-compressed",
	"application/x-rar-compressed", "application/x-bzip2", "application/x-xz",
	"application/zstd", "application/pdf",
}

// rules run in this order; indicator order in results follows it.
var rules = []rule{
	ruleKnownSignature,
	ruleDoubleExtension,
	ruleDangerousExtension,
	ruleExecutableSignature,
	ruleMacroDocument,
	ruleSuspiciousContent,
	ruleHighEntropy,
}

func ruleKnownSignature(f *fileInfo) []indicator {
	if bytes.Contains(f.data, []byte(eicarMarker)) {
		return []indicator{{"Known malware test signature (EICAR)", severityHigh}}
	}
	return nil
}

func ruleDoubleExtension(f *fileInfo) []indicator {
	if !dangerousExtensions[f.ext] {
		return nil
	}
	inner := strings.ToLower(filepath.Ext(strings.TrimSuffix(f.name, filepath.Ext(f.name))))
	if !decoyExtensions[inner] {
		return nil
	}
	return []indicator{{"Double extension hides an executable: " + f.name, severityHigh}}
}

func ruleDangerousExtension(f *fileInfo) []indicator {
	if dangerousExtensions[f.ext] {
		return []indicator{{"Executable or script file extension: " + f.ext, severityHigh}}
	}
	return nil
}

func ruleExecutableSignature(f *fileInfo) []indicator {
	if dangerousExtensions[f.ext] {
		return nil
	}
	if mimeIsAny(f.mime, executableMIMEs) {
		return []indicator{{"Executable binary signature (" + f.mime.String() + ") under a non-executable name", severityHigh}}
	}
	return nil
}

func ruleMacroDocument(f *fileInfo) []indicator {
	if macroExtensions[f.ext] {
		return []indicator{{"Macro-enabled document: " + f.ext, severityMedium}}
	}
	for _, marker := range macroMarkers {
		if bytes.Contains(f.lower, marker) {
			return []indicator{{"Document contains a VBA macro project", severityMedium}}
		}
	}
	return nil
}

func ruleSuspiciousContent(f *fileInfo) []indicator {
	var out []indicator
	for _, pattern := range suspiciousPatterns {
		if bytes.Contains(f.lower, []byte(pattern)) {
			out = append(out, indicator{"Suspicious pattern found: " + pattern, severityMedium})
		}
	}
	return out
}

func ruleHighEntropy(f *fileInfo) []indicator {
	if len(f.data) < entropyMinBytes || mimeIsAny(f.mime, compressedMIMEs) || isMediaMIME(f.mime) {
		return nil
	}
	if e := shannonEntropy(f.data); e > entropyThreshold {
		return []indicator{{"Abnormally high entropy (possible packed or encrypted payload)", severityMedium}}
	}
	return nil
}

// mimeIsAny reports whether m or any of its ancestors is one of types.
func mimeIsAny(m *mimetype.MIME, types []string) bool {
	for cur := m; cur != nil; cur = cur.Parent() {
		for _, t := range types {
			if cur.Is(t) {
				return true
			}
		}
	}
	return false
}

func isMediaMIME(m *mimetype.MIME) bool {
	if m == nil {
		return false
	}
	s := m.String()
	return strings.HasPrefix(s, "image/") || strings.HasPrefix(s, "video/") || strings.HasPrefix(s, "audio/")
}

// shannonEntropy returns bits per byte in [0, 8].
func shannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}
	total := float64(len(data))
	entropy := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}
