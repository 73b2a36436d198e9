package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cuemby/cspublish/pkg/cloud"
	"github.com/cuemby/cspublish/pkg/config"
	"github.com/cuemby/cspublish/pkg/log"
	"github.com/cuemby/cspublish/pkg/metrics"
	"github.com/cuemby/cspublish/pkg/project"
	"github.com/cuemby/cspublish/pkg/security"
	"github.com/cuemby/cspublish/pkg/storage"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// cfg is resolved once per invocation by the root PersistentPreRunE
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cspublish",
	Short: "cspublish - Publish packaged projects to cloud services",
	Long: `cspublish uploads a packaged cloud service project to a storage account,
creates a deployment in the staging or production slot of a cloud service and
waits until its role instances are ready.

Credentials come from a .publishsettings file downloaded from the portal.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cfg == nil || cfg.MetricsFile == "" {
			return
		}
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Logger.Warn().Err(err).Str("path", cfg.MetricsFile).Msg("Failed to write metrics")
		}
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"cspublish version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "YAML config file; flags override its values")
	pf.String("publish-settings", "", "Path to the .publishsettings file")
	pf.String("subscription-id", "", "Subscription to use (default: first in the publish settings)")
	pf.String("state-dir", config.DefaultStateDir(), "Directory for run history and the storage account cache")
	pf.String("metrics-file", "", "Write Prometheus metrics to this file when the command ends")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.Bool("log-json", false, "Output logs in JSON format")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(undeployCmd)
	rootCmd.AddCommand(storageCmd)
	rootCmd.AddCommand(locationsCmd)
	rootCmd.AddCommand(subscriptionsCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig layers defaults, the config file and explicitly set flags
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	cmd.Flags().Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if serr := cfg.Set(f.Name, f.Value.String()); serr != nil && !errors.Is(serr, config.ErrUnknownSetting) {
			err = serr
		}
	})
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Init(log.Config{
		Level:      log.ParseLevel(strings.ToLower(cfg.Log.Level)),
		JSONOutput: cfg.Log.JSON,
		Output:     os.Stderr,
	})
	return nil
}

// interactive reports whether stdout is a terminal that can redraw lines
func interactive() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// openStore opens the local state database, creating the state dir if needed
func openStore() (*storage.BoltStore, error) {
	if err := os.MkdirAll(cfg.StateDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return storage.NewBoltStore(cfg.StateDir)
}

// newClient builds a management client from the publish settings file
func newClient() (*cloud.ServiceManagementClient, project.Subscription, error) {
	if cfg.PublishSettings == "" {
		return nil, project.Subscription{}, fmt.Errorf("--publish-settings is required")
	}

	settings, err := project.LoadPublishSettings(cfg.PublishSettings)
	if err != nil {
		return nil, project.Subscription{}, err
	}
	sub, err := settings.Subscription(cfg.SubscriptionID)
	if err != nil {
		return nil, project.Subscription{}, err
	}
	cert, err := sub.TLSCertificate()
	if err != nil {
		return nil, project.Subscription{}, err
	}

	logger := log.WithComponent("cli")
	if security.CertExpiresSoon(cert.Leaf) {
		logger.Warn().
			Str("subscription", sub.Name).
			Dur("remaining", security.GetCertTimeRemaining(cert.Leaf)).
			Msg("Management certificate expires soon, download new publish settings")
	}

	client, err := cloud.NewServiceManagementClient(cloud.ClientConfig{
		BaseURL:        sub.ServiceManagementURL,
		SubscriptionID: sub.ID,
		Certificate:    cert,
		RetryMax:       cfg.Client.RetryMax,
		Timeout:        cfg.Client.Timeout,
	})
	if err != nil {
		return nil, project.Subscription{}, err
	}

	logger.Debug().Str("subscription", sub.Name).Str("url", sub.ServiceManagementURL).Msg("Using subscription")
	return client, sub, nil
}
