package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/markcrawl/internal/config"
	"github.com/nao1215/markcrawl/internal/fetch"
	"github.com/nao1215/markcrawl/internal/fingerprint"
	seclog "github.com/nao1215/markcrawl/internal/log"
	"github.com/nao1215/markcrawl/internal/model"
	"github.com/nao1215/markcrawl/internal/tor"
	"github.com/spf13/cobra"
)

// addTransportFlags registers the flags that control how pages are fetched.
func addTransportFlags(cmd *cobra.Command) {
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().StringP("proxy", "x", "",
		"Route requests through a SOCKS5 proxy (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and route requests through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().Uint64("fingerprint-seed", 0,
		"Seed for the browser fingerprint generator (0 picks one from the clock)")
	cmd.Flags().BoolP("main-content", "M", false,
		"Extract the main article content before converting")
}

// addConvertFlags registers the flags that override converter settings.
// Unset flags keep the value from the configuration file.
func addConvertFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-links", false, "Render anchors as plain text")
	cmd.Flags().Bool("no-metadata", false, "Omit the title and metadata block")
	cmd.Flags().Bool("no-headings", false, "Render headings as plain paragraphs")
	cmd.Flags().Int("max-heading-level", model.MaxHeadingLevel,
		"Deepest heading level rendered as a heading (1-6)")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config file path from the command or its
// parent. A command built without the root has no such flag.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// buildConfig creates a Config from the global and transport flags.
// Command-specific flags are read by each command.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	cfg.ConfigFilePath = getConfigFlag(cmd)

	var err error
	if cmd.Flags().Lookup("timeout") != nil {
		if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
			return nil, err
		}
		if cfg.ProxyAddress, err = cmd.Flags().GetString("proxy"); err != nil {
			return nil, err
		}
		if cfg.UseTor, err = cmd.Flags().GetBool("tor"); err != nil {
			return nil, err
		}
		if cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout"); err != nil {
			return nil, err
		}
		if cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size"); err != nil {
			return nil, err
		}
		if cfg.FingerprintSeed, err = cmd.Flags().GetUint64("fingerprint-seed"); err != nil {
			return nil, err
		}
		if cfg.MainContent, err = cmd.Flags().GetBool("main-content"); err != nil {
			return nil, err
		}
	}

	cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSiteConfigs loads the configuration file.
// If the user explicitly specified a path, a missing file is an error.
// Otherwise an empty configuration is used.
func loadSiteConfigs(explicitPath string) (*config.File, error) {
	configPath := config.FindConfigFile(explicitPath)
	if configPath == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("configuration file not found: %s", explicitPath)
		}
		return config.NewFile(), nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return file, nil
}

// convertConfig starts from the configuration file's converter settings and
// applies the converter flags the user set.
func convertConfig(cmd *cobra.Command, cfg *config.Config) (model.ConvertConfig, error) {
	cc := model.DefaultConvertConfig()
	if cfg.SiteConfigs != nil {
		cc = cfg.SiteConfigs.Convert
	}

	flags := cmd.Flags()
	if flags.Changed("no-links") {
		v, err := flags.GetBool("no-links")
		if err != nil {
			return cc, err
		}
		cc.IncludeLinks = !v
	}
	if flags.Changed("no-metadata") {
		v, err := flags.GetBool("no-metadata")
		if err != nil {
			return cc, err
		}
		cc.IncludeMetadata = !v
	}
	if flags.Changed("no-headings") {
		v, err := flags.GetBool("no-headings")
		if err != nil {
			return cc, err
		}
		cc.PreserveHeadings = !v
	}
	if flags.Changed("max-heading-level") {
		v, err := flags.GetInt("max-heading-level")
		if err != nil {
			return cc, err
		}
		cc.MaxHeadingLevel = v
	}

	if err := cc.Validate(); err != nil {
		return cc, fmt.Errorf("configuration error: %w", err)
	}
	return cc, nil
}

// setupLogger creates the CLI logger. Output goes to stderr so that
// Markdown written to stdout stays clean.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	return seclog.NewSecureLogger(w, verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newFetchClient builds the fetch client for cfg. The returned cleanup
// function stops the embedded Tor daemon when one was started.
func newFetchClient(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*fetch.Client, func(), error) {
	cleanup := func() {}

	var dial fetch.DialContextFunc
	switch {
	case cfg.ProxyAddress != "":
		d, err := tor.NewDialer(cfg.ProxyAddress)
		if err != nil {
			return nil, cleanup, fmt.Errorf("invalid proxy: %w", err)
		}
		dial = d.DialContext
		logger.Info("routing requests through proxy", "proxy", cfg.ProxyAddress)

	case cfg.UseTor:
		d, stop, err := startEmbeddedTor(ctx, cmd, cfg, logger)
		if err != nil {
			return nil, cleanup, err
		}
		dial = d.DialContext
		cleanup = stop
	}

	httpClient := fetch.NewHTTPClient(fetch.TransportConfig{
		Timeout: cfg.Timeout,
		Dial:    dial,
		Sites:   cfg.SiteConfigs,
	})

	opts := []fetch.Option{
		fetch.WithHTTPClient(httpClient),
		fetch.WithMaxBodySize(cfg.EffectiveMaxBodySize()),
		fetch.WithLogger(logger),
	}
	if cfg.FingerprintSeed != 0 {
		opts = append(opts, fetch.WithProfiles(fingerprint.NewGenerator(cfg.FingerprintSeed)))
	}

	return fetch.NewClient(opts...), cleanup, nil
}

// startEmbeddedTor starts an embedded Tor daemon using tornago and returns
// a dialer for its SOCKS port.
func startEmbeddedTor(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*tor.Dialer, func(), error) {
	stderr := cmd.ErrOrStderr()
	fmt.Fprintln(stderr, "Starting embedded Tor daemon...")
	fmt.Fprintf(stderr, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := tor.NewEmbeddedTor(
		tor.WithStartupTimeout(cfg.TorStartupTimeout),
		tor.WithLogger(logger),
	)
	if err := embeddedTor.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	stop := func() {
		logger.Info("stopping embedded Tor daemon")
		if err := embeddedTor.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}

	dialer, err := embeddedTor.Dialer()
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("failed to create Tor dialer: %w", err)
	}

	logger.Info("embedded Tor daemon started",
		"socksAddr", embeddedTor.SocksAddr(),
		"controlAddr", embeddedTor.ControlAddr(),
	)
	fmt.Fprintf(stderr, "SOCKS proxy: %s\n\n", embeddedTor.SocksAddr())

	return dialer, stop, nil
}

// openOutput returns the writer for path, or the command's stdout when
// path is empty. Files are created with 0600 permissions and parent
// directories are created as needed.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-chosen output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
