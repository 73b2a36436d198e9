package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cuemby/cspublish/pkg/cloud"
	"github.com/cuemby/cspublish/pkg/project"
	"github.com/cuemby/cspublish/pkg/registry"
	"github.com/cuemby/cspublish/pkg/types"
	"github.com/spf13/cobra"
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Manage storage accounts",
}

var storageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List storage accounts of the subscription",
	Long: `List every storage account of the subscription. Account details are
fetched in parallel and the local cache is refreshed with the result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, sub, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		accounts, err := cloud.ListStorageAccounts(ctx, client, sub.ID, cloud.ListingCallTimeout)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		reg := registry.New(sub.ID, store)
		if err := reg.Replace(accounts); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tLOCATION\tSTATUS\tBLOB ENDPOINT")
		for _, a := range reg.List() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Name, a.Location, a.Status, a.BlobEndpoint)
		}
		return w.Flush()
	},
}

var storageCachedCmd = &cobra.Command{
	Use:   "cached [NAME]",
	Short: "List storage accounts from the local cache without calling the API",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subscriptionID, err := resolveSubscriptionID()
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		reg := registry.New(subscriptionID, store)
		if err := reg.Load(); err != nil {
			return err
		}

		accounts := reg.List()
		if len(args) == 1 {
			account, ok := reg.Find(args[0])
			if !ok {
				return fmt.Errorf("storage account %s is not cached for subscription %s", args[0], reg.SubscriptionID())
			}
			accounts = []types.StorageAccount{account}
		}
		if len(accounts) == 0 {
			fmt.Println("No cached storage accounts, run 'cspublish storage list' first")
			return nil
		}

		fmt.Printf("Subscription: %s\n", reg.SubscriptionID())
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tLOCATION\tSTATUS\tUPDATED")
		for _, a := range accounts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Name, a.Location, a.Status, a.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var subscriptionsCmd = &cobra.Command{
	Use:   "subscriptions",
	Short: "List the subscriptions of the publish settings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.PublishSettings == "" {
			return fmt.Errorf("--publish-settings is required")
		}
		settings, err := project.LoadPublishSettings(cfg.PublishSettings)
		if err != nil {
			return err
		}

		def := settings.DefaultSubscription()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMANAGEMENT URL\tDEFAULT")
		for _, s := range settings.Subscriptions() {
			marker := ""
			if s.ID == def.ID {
				marker = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.ServiceManagementURL, marker)
		}
		return w.Flush()
	},
}

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "List regions available to the subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		locations, err := client.ListLocations(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tDISPLAY NAME")
		for _, l := range locations {
			fmt.Fprintf(w, "%s\t%s\n", l.Name, l.DisplayName)
		}
		return w.Flush()
	},
}

// resolveSubscriptionID picks the subscription without building a client
func resolveSubscriptionID() (string, error) {
	if cfg.SubscriptionID != "" {
		return cfg.SubscriptionID, nil
	}
	if cfg.PublishSettings == "" {
		return "", fmt.Errorf("--subscription-id or --publish-settings is required")
	}
	settings, err := project.LoadPublishSettings(cfg.PublishSettings)
	if err != nil {
		return "", err
	}
	return settings.DefaultSubscription().ID, nil
}

func init() {
	storageCmd.AddCommand(storageListCmd)
	storageCmd.AddCommand(storageCachedCmd)
}
