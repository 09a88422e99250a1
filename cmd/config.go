package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/khanhnv2901/secakit/internal/api"
	"github.com/khanhnv2901/secakit/internal/application"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
)

const (
	envPrefix         = "SECAKIT"
	defaultConfigName = ".secakit"
)

// Config keys.
const (
	keyLogLevel       = "log.level"
	keyLogDevelopment = "log.development"
	keyDataDir        = "data_dir"

	keyServerAddr            = "server.addr"
	keyServerAuthToken       = "server.auth_token"
	keyServerCORSOrigins     = "server.cors_origins"
	keyServerShutdownTimeout = "server.shutdown_timeout"
	keyServerTrustProxy      = "server.trust_proxy"
	keyServerRateLimits      = "server.rate_limits"

	keyPortTimeout  = "portscan.timeout"
	keyPortWorkers  = "portscan.workers"
	keyPortMaxPorts = "portscan.max_ports"

	keyPingMethod     = "ping.method"
	keyPingTimeout    = "ping.timeout"
	keyPingInterval   = "ping.interval"
	keyPingPrivileged = "ping.privileged"
	keyPingTCPPort    = "ping.tcp_port"

	keyTraceProbeTimeout = "traceroute.probe_timeout"
	keyTraceProbesPerHop = "traceroute.probes_per_hop"
	keyTraceRDNSTimeout  = "traceroute.rdns_timeout"

	keyMaxUploadBytes = "filescan.max_upload_bytes"

	keyWebsiteTimeout  = "website.timeout"
	keyWebsiteCacheTTL = "website.cache_ttl"

	keyIntelTimeout       = "intel.timeout"
	keyVirusTotalAPIKey   = "intel.virustotal_api_key"
	keySafeBrowsingAPIKey = "intel.safebrowsing_api_key"

	keyPublicIPURL = "sysinfo.public_ip_url"

	keyHistoryBackend        = "history.backend"
	keyHistoryPageSize       = "history.page_size"
	keyHistoryMemoryCapacity = "history.memory_capacity"
	keyHistoryDSN            = "history.dsn"
	keyPubSubProject         = "history.pubsub.project"
	keyPubSubTopic           = "history.pubsub.topic"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogDevelopment, false)
	v.SetDefault(keyDataDir, "")

	v.SetDefault(keyServerAddr, "127.0.0.1:8001")
	v.SetDefault(keyServerAuthToken, "")
	v.SetDefault(keyServerCORSOrigins, []string{})
	v.SetDefault(keyServerShutdownTimeout, 30*time.Second)
	v.SetDefault(keyServerTrustProxy, false)
	for route, perMinute := range api.DefaultRateLimits() {
		v.SetDefault(keyServerRateLimits+"."+route, perMinute)
	}

	v.SetDefault(keyPortTimeout, consts.DefaultPortTimeout)
	v.SetDefault(keyPortWorkers, consts.DefaultPortWorkers)
	v.SetDefault(keyPortMaxPorts, consts.MaxPorts)

	v.SetDefault(keyPingMethod, "auto")
	v.SetDefault(keyPingTimeout, consts.DefaultProbeTimeout)
	v.SetDefault(keyPingInterval, 200*time.Millisecond)
	v.SetDefault(keyPingPrivileged, false)
	v.SetDefault(keyPingTCPPort, 80)

	v.SetDefault(keyTraceProbeTimeout, consts.DefaultProbeTimeout)
	v.SetDefault(keyTraceProbesPerHop, consts.DefaultProbesPerHop)
	v.SetDefault(keyTraceRDNSTimeout, time.Second)

	v.SetDefault(keyMaxUploadBytes, consts.MaxUploadBytes)

	v.SetDefault(keyWebsiteTimeout, consts.DefaultHTTPTimeout)
	v.SetDefault(keyWebsiteCacheTTL, consts.WebsiteCacheTTL)

	v.SetDefault(keyIntelTimeout, consts.DefaultLookupTimeout)
	v.SetDefault(keyVirusTotalAPIKey, "")
	v.SetDefault(keySafeBrowsingAPIKey, "")

	v.SetDefault(keyPublicIPURL, consts.PublicIPURL)

	v.SetDefault(keyHistoryBackend, application.BackendFile)
	v.SetDefault(keyHistoryPageSize, consts.DefaultHistoryPageSize)
	v.SetDefault(keyHistoryMemoryCapacity, consts.DefaultMemoryCapacity)
	v.SetDefault(keyHistoryDSN, "")
	v.SetDefault(keyPubSubProject, "")
	v.SetDefault(keyPubSubTopic, "")
}

// loadConfig reads the config file and environment into v. A missing
// default config file is not an error; a missing explicit one is.
func loadConfig(v *viper.Viper, file string) error {
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath("$HOME")
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the API keys are also read from their conventional names
	_ = v.BindEnv(keyVirusTotalAPIKey, envPrefix+"_INTEL_VIRUSTOTAL_API_KEY", "VIRUSTOTAL_API_KEY")
	_ = v.BindEnv(keySafeBrowsingAPIKey, envPrefix+"_INTEL_SAFEBROWSING_API_KEY", "GOOGLE_SAFEBROWSING_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// appConfig maps viper settings onto the container configuration.
func appConfig(v *viper.Viper) (application.Config, error) {
	dataDir, err := resolveDataDir(v.GetString(keyDataDir))
	if err != nil {
		return application.Config{}, err
	}
	return application.Config{
		DataDir: dataDir,

		PortTimeout: v.GetDuration(keyPortTimeout),
		PortWorkers: v.GetInt(keyPortWorkers),
		MaxPorts:    v.GetInt(keyPortMaxPorts),

		PingMethod:     strings.ToLower(v.GetString(keyPingMethod)),
		PingTimeout:    v.GetDuration(keyPingTimeout),
		PingInterval:   v.GetDuration(keyPingInterval),
		PingPrivileged: v.GetBool(keyPingPrivileged),
		PingTCPPort:    v.GetInt(keyPingTCPPort),

		TraceProbeTimeout: v.GetDuration(keyTraceProbeTimeout),
		TraceProbesPerHop: v.GetInt(keyTraceProbesPerHop),
		TraceRDNSTimeout:  v.GetDuration(keyTraceRDNSTimeout),

		MaxUploadBytes: v.GetInt64(keyMaxUploadBytes),

		WebsiteTimeout:  v.GetDuration(keyWebsiteTimeout),
		WebsiteCacheTTL: v.GetDuration(keyWebsiteCacheTTL),

		IntelTimeout:       v.GetDuration(keyIntelTimeout),
		VirusTotalAPIKey:   v.GetString(keyVirusTotalAPIKey),
		SafeBrowsingAPIKey: v.GetString(keySafeBrowsingAPIKey),

		PublicIPURL: v.GetString(keyPublicIPURL),

		HistoryBackend:        strings.ToLower(v.GetString(keyHistoryBackend)),
		HistoryPageSize:       v.GetInt(keyHistoryPageSize),
		HistoryMemoryCapacity: v.GetInt(keyHistoryMemoryCapacity),
		HistoryDSN:            v.GetString(keyHistoryDSN),
		PubSubProject:         v.GetString(keyPubSubProject),
		PubSubTopic:           v.GetString(keyPubSubTopic),
	}, nil
}

// rateLimits reads the per-route limits, falling back to the defaults.
func rateLimits(v *viper.Viper) map[string]int {
	limits := api.DefaultRateLimits()
	for route := range limits {
		limits[route] = v.GetInt(keyServerRateLimits + "." + route)
	}
	return limits
}

// newLogger builds a JSON production logger, or a console logger when
// log.development is set. Logs go to stderr so command output stays clean.
func newLogger(v *viper.Viper) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(v.GetString(keyLogLevel))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", keyLogLevel, err)
	}

	cfg := zap.NewProductionConfig()
	if v.GetBool(keyLogDevelopment) {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyDurationDefault(flags *pflag.FlagSet, name string, value time.Duration, setter func(time.Duration)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyStringSliceDefault(flags *pflag.FlagSet, name string, value []string, setter func([]string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}
