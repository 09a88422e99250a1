package cmd

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newServeFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	addServeFlags(flags)
	if err := flags.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return flags
}

func TestResolveServeOptionsFromConfig(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`server:
  addr: 0.0.0.0:9000
  auth_token: s3cret
  shutdown_timeout: 5s
  cors_origins:
    - https://dashboard.example
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	v := viper.New()
	if err := loadConfig(v, path); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	opts := resolveServeOptions(newServeFlags(t), v)
	want := serveOptions{
		Addr:            "0.0.0.0:9000",
		AuthToken:       "s3cret",
		CORSOrigins:     []string{"https://dashboard.example"},
		ShutdownTimeout: 5 * time.Second,
	}
	if !reflect.DeepEqual(opts, want) {
		t.Fatalf("got %+v, want %+v", opts, want)
	}
}

func TestResolveServeOptionsFlagsWin(t *testing.T) {
	isolateHome(t)
	v := viper.New()
	if err := loadConfig(v, ""); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	v.Set(keyServerAddr, "0.0.0.0:9000")

	flags := newServeFlags(t, "--addr", "127.0.0.1:7000", "--shutdown-timeout", "1s", "--cors-origins", "a.example,b.example")
	opts := resolveServeOptions(flags, v)

	if opts.Addr != "127.0.0.1:7000" {
		t.Fatalf("flag should win over config, got %q", opts.Addr)
	}
	if opts.ShutdownTimeout != time.Second {
		t.Fatalf("unexpected shutdown timeout %v", opts.ShutdownTimeout)
	}
	if !reflect.DeepEqual(opts.CORSOrigins, []string{"a.example", "b.example"}) {
		t.Fatalf("unexpected origins %v", opts.CORSOrigins)
	}
	if opts.AuthToken != "" {
		t.Fatalf("auth token should default to empty, got %q", opts.AuthToken)
	}
}
