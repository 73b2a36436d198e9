package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/cspublish/pkg/cloud"
	"github.com/cuemby/cspublish/pkg/config"
	"github.com/cuemby/cspublish/pkg/deploy"
	"github.com/cuemby/cspublish/pkg/events"
	"github.com/cuemby/cspublish/pkg/health"
	"github.com/cuemby/cspublish/pkg/poller"
	"github.com/cuemby/cspublish/pkg/progress"
	"github.com/cuemby/cspublish/pkg/registry"
	"github.com/cuemby/cspublish/pkg/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Publish a packaged project to a cloud service",
	Long: `Publish the package found under <project-dir>/deploy to a cloud service slot.

The cloud service and storage account are created when missing. A deployment
already occupying the slot is replaced unless --overwrite=false is given.

Examples:
  # Publish to staging
  cspublish deploy --project-dir ./helloworld --publish-settings my.publishsettings \
    --cloud-service svc1 --storage-account store1 --region "West US"

  # Publish to production and check the site afterwards
  cspublish deploy --config cspublish.yaml --slot production --verify-url`,
	RunE: runDeploy,
}

var undeployCmd = &cobra.Command{
	Use:   "undeploy",
	Short: "Delete the deployment in a cloud service slot",
	RunE:  runUndeploy,
}

func init() {
	deployCmd.Flags().String("project-dir", config.DefaultProjectDir(), "Project directory containing package.xml")
	deployCmd.Flags().String("cloud-service", "", "Cloud service name")
	deployCmd.Flags().String("region", "", "Region used when the cloud service or storage account must be created")
	deployCmd.Flags().String("storage-account", "", "Storage account used to stage the package")
	deployCmd.Flags().String("slot", string(types.SlotStaging), "Deployment slot (Staging or Production)")
	deployCmd.Flags().Bool("overwrite", true, "Replace a deployment already occupying the slot")
	deployCmd.Flags().Bool("verify-url", false, "Request the site URL over HTTP once the deployment is ready")
	deployCmd.Flags().Duration("poll-interval", poller.DefaultInterval, "Interval between operation status checks")
	deployCmd.Flags().Duration("poll-timeout", 0, "Give up waiting after this long (0 waits indefinitely)")

	undeployCmd.Flags().String("cloud-service", "", "Cloud service name")
	undeployCmd.Flags().String("slot", string(types.SlotStaging), "Deployment slot (Staging or Production)")
	undeployCmd.Flags().Duration("poll-interval", poller.DefaultInterval, "Interval between operation status checks")
	_ = undeployCmd.MarkFlagRequired("cloud-service")
}

// session holds what deploy and undeploy share for one invocation
type session struct {
	deployer *deploy.Deployer
	broker   *events.Broker
	printed  chan struct{}
	sub      string
	close    func()
}

func newSession() (*session, error) {
	client, sub, err := newClient()
	if err != nil {
		return nil, err
	}

	store, err := openStore()
	if err != nil {
		return nil, err
	}

	reg := registry.New(sub.ID, store)
	if err := reg.Load(); err != nil {
		store.Close()
		return nil, err
	}

	var factory progress.Factory = progress.Nop{}
	if interactive() {
		factory = progress.NewTerminal(os.Stdout)
	}

	broker := events.NewBroker()
	broker.Start()
	s := &session{
		broker:  broker,
		printed: make(chan struct{}),
		sub:     sub.ID,
	}
	go func() {
		defer close(s.printed)
		printEvents(os.Stdout, broker.SubscribeBlocking())
	}()

	s.deployer = deploy.NewDeployer(deploy.Config{
		Cloud: client,
		Blobs: func(account types.StorageAccount) (cloud.BlobStore, error) {
			return cloud.NewAzureBlobStore(account)
		},
		Waiter: &poller.Poller{
			Interval:     cfg.Polling.Interval,
			RoleInterval: cfg.Polling.RoleInterval,
			Timeout:      cfg.Polling.Timeout,
		},
		Events:   broker,
		Store:    store,
		Registry: reg,
		Progress: factory,
	})

	s.close = func() {
		broker.Stop()
		<-s.printed
		store.Close()
	}
	return s, nil
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	req, err := types.NewDeploymentRequest(cfg.RequestOptions())
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	req = req.WithSubscriptionID(s.sub)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	result, err := s.deployer.Run(ctx, req)
	s.close()
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	fmt.Printf("%s Deployed %s to %s (%s)\n", green("✓"), result.DeploymentName, result.Slot, result.CloudService)
	fmt.Printf("  URL: %s\n", result.URL)

	if !cfg.VerifyURL {
		return nil
	}

	fmt.Printf("Verifying %s...\n", result.URL)
	check, err := health.Verify(ctx, health.NewHTTPChecker(result.URL), health.DefaultConfig())
	if err != nil {
		return fmt.Errorf("site did not become reachable: %w", err)
	}
	fmt.Printf("%s Site is reachable: %s\n", green("✓"), check.Message)
	return nil
}

func runUndeploy(cmd *cobra.Command, args []string) error {
	slot, err := types.ParseSlot(cfg.Slot)
	if err != nil {
		return err
	}
	if cfg.CloudService == "" {
		return &types.ValidationError{Field: "cloudServiceName", Reason: "is empty"}
	}

	s, err := newSession()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	result, err := s.deployer.Undeploy(ctx, cfg.CloudService, slot)
	s.close()
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	fmt.Printf("%s Deleted %s from %s (%s)\n", green("✓"), result.DeploymentName, result.Slot, result.CloudService)
	return nil
}
