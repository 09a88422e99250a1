package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/khanhnv2901/secakit/internal/api"
	"github.com/khanhnv2901/secakit/internal/application"
)

// serveOptions are the effective server settings after flags and config merge.
type serveOptions struct {
	Addr            string
	AuthToken       string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assessment REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := resolveServeOptions(cmd.Flags(), viper.GetViper())

		container, err := newContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer func() {
			if err := container.Close(); err != nil {
				logger.Warn("history store close failed", zap.Error(err))
			}
		}()

		server := newAPIServer(container, opts)
		defer server.Close()

		httpServer := &http.Server{
			Addr:              opts.Addr,
			Handler:           server,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			// website checks and traceroutes can run for a while
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  120 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("%s API server listening on %s\n", colorInfo("→"), opts.Addr)
			fmt.Printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			logger.Info("api server started", zap.String("addr", opts.Addr))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Printf("\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Printf("%s Server shutdown complete\n", colorInfo("✓"))
		}

		return nil
	},
}

func init() {
	addServeFlags(serveCmd.Flags())
}

func addServeFlags(flags *pflag.FlagSet) {
	flags.String("addr", "127.0.0.1:8001", "Address for the API server")
	flags.String("auth-token", "", "Optional shared secret for API requests (X-Auth-Token)")
	flags.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	flags.StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
}

// resolveServeOptions takes each setting from its flag when given, else from config.
func resolveServeOptions(flags *pflag.FlagSet, v *viper.Viper) serveOptions {
	var opts serveOptions
	opts.Addr, _ = flags.GetString("addr")
	opts.AuthToken, _ = flags.GetString("auth-token")
	opts.ShutdownTimeout, _ = flags.GetDuration("shutdown-timeout")
	opts.CORSOrigins, _ = flags.GetStringSlice("cors-origins")

	applyStringDefault(flags, "addr", v.GetString(keyServerAddr), func(s string) { opts.Addr = s })
	applyStringDefault(flags, "auth-token", v.GetString(keyServerAuthToken), func(s string) { opts.AuthToken = s })
	applyDurationDefault(flags, "shutdown-timeout", v.GetDuration(keyServerShutdownTimeout), func(d time.Duration) { opts.ShutdownTimeout = d })
	applyStringSliceDefault(flags, "cors-origins", v.GetStringSlice(keyServerCORSOrigins), func(s []string) { opts.CORSOrigins = s })
	return opts
}

func newAPIServer(container *application.Container, opts serveOptions) *api.Server {
	v := viper.GetViper()
	return api.NewServer(api.Config{
		Service:        container.Service,
		AuthToken:      opts.AuthToken,
		Logger:         container.Logger.Named("api"),
		CORSOrigins:    opts.CORSOrigins,
		RateLimits:     rateLimits(v),
		TrustProxy:     v.GetBool(keyServerTrustProxy),
		MaxUploadBytes: v.GetInt64(keyMaxUploadBytes),
		PageSize:       v.GetInt(keyHistoryPageSize),
	})
}
