package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"sitereg/internal/app"
	"sitereg/internal/config"
	"sitereg/internal/lifecycle"
	"sitereg/internal/model"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// app.Close(). operation identifies the CLI command being run.
func newApp(cmd *cobra.Command, operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cmd.Context(), cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts for a passphrase without echoing it.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

func printResults(results []model.PlatformResult) {
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = "FAILED"
		}
		line := fmt.Sprintf("  %-8s %s", r.Platform, status)
		if r.Error != "" {
			line += "  " + r.Error
		}
		fmt.Println(line)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sitereg",
	Short: "Tenant site lifecycle orchestrator",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		fmt.Printf("Platforms:\n")
		for _, p := range cfg.Platforms {
			fmt.Printf("  - %s\n", p.Type)
		}
		return nil
	},
}

var configKeysInitCmd = &cobra.Command{
	Use:   "keys-init",
	Short: "Generate snapshot encryption keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "SetupEncryption")
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("New key passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupEncryption(pass); err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}
		fmt.Println("Snapshot encryption keys generated.")
		return nil
	},
}

// tenant command
var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage tenant records",
}

var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tenants",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListTenants")
		if err != nil {
			return err
		}
		defer a.Close()

		tenants, err := a.Tenants()
		if err != nil {
			return err
		}
		if len(tenants) == 0 {
			fmt.Println("No tenants registered.")
			return nil
		}

		for _, t := range tenants {
			fmt.Printf("%-24s %-10s %-9s %s\n", t.Slug, t.Status, t.Health, t.DisplayName)
		}
		return nil
	},
}

var tenantShowCmd = &cobra.Command{
	Use:   "show SLUG",
	Short: "Show one tenant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ShowTenant")
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.Tenant(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Slug:        %s\n", t.Slug)
		fmt.Printf("ID:          %s\n", t.ID)
		fmt.Printf("Name:        %s\n", t.DisplayName)
		fmt.Printf("Tier:        %s\n", t.Tier)
		fmt.Printf("Status:      %s\n", t.Status)
		fmt.Printf("Health:      %s\n", t.Health)
		if t.HealthCheckedAt != nil {
			fmt.Printf("Checked At:  %s\n", t.HealthCheckedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("Public URL:  %s\n", t.PublicURL)
		fmt.Printf("Repository:  %s\n", t.Handles.RepoFullName)
		fmt.Printf("Project:     %s\n", t.Handles.DeployProjectID)
		fmt.Printf("CMS:         %s (%s)\n", t.Handles.CMS.SpaceRef, t.Handles.CMS.Mode)
		fmt.Printf("Backups:     %s\n", t.Handles.BackupPrefix)
		return nil
	},
}

var tenantImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Register a tenant from a provisioning hand-off file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ImportTenant")
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.ImportTenant(args[0])
		if err != nil {
			return fmt.Errorf("importing tenant: %w", err)
		}
		fmt.Printf("Registered tenant %s (%s)\n", t.Slug, t.ID)
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete SLUG",
	Short: "Soft-delete a tenant's site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		by, _ := cmd.Flags().GetString("by")
		yes, _ := cmd.Flags().GetBool("yes")

		a, err := newApp(cmd, "Delete")
		if err != nil {
			return err
		}
		defer a.Close()

		outcome, err := a.Delete(cmd.Context(), args[0], reason, by, yes)
		if err != nil {
			return err
		}

		fmt.Printf("Delete %s: %s\n", args[0], outcome.Status)
		printResults(outcome.Results)
		if outcome.SnapshotID != "" {
			fmt.Printf("Snapshot: %s (recoverable for 30 days)\n", outcome.SnapshotID)
		}
		return nil
	},
}

// recover command
var recoverCmd = &cobra.Command{
	Use:   "recover SLUG",
	Short: "Recover a soft-deleted tenant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		by, _ := cmd.Flags().GetString("by")

		a, err := newApp(cmd, "Recover")
		if err != nil {
			return err
		}
		defer a.Close()

		encrypted, err := a.SnapshotEncrypted(args[0])
		if err != nil {
			return err
		}

		var pass string
		if encrypted {
			pass, err = readPassphrase("Snapshot key passphrase: ")
			if err != nil {
				return err
			}
		}

		outcome, err := a.Recover(cmd.Context(), args[0], by, pass)
		if err != nil {
			return err
		}

		fmt.Printf("Recover %s: %s\n", args[0], outcome.Status)
		printResults(outcome.Results)
		if outcome.NewTenantID != "" {
			fmt.Printf("New tenant ID: %s\n", outcome.NewTenantID)
		}
		return nil
	},
}

// health command
var healthCmd = &cobra.Command{
	Use:   "health SLUG",
	Short: "View or refresh a tenant's health",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		check, _ := cmd.Flags().GetBool("check")

		a, err := newApp(cmd, "Health")
		if err != nil {
			return err
		}
		defer a.Close()

		var latest *model.HealthCheck
		if check {
			latest, err = a.CheckHealth(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Health of %s: %s\n", args[0], latest.Overall)
		} else {
			status, lastCheck, err := a.Health(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Health of %s: %s\n", args[0], status)
			latest = lastCheck
		}

		if latest == nil {
			fmt.Println("No checks recorded yet. Run with --check.")
			return nil
		}
		fmt.Printf("Checked at %s in %s\n",
			latest.CheckedAt.Format("2006-01-02 15:04:05"),
			latest.Duration.Truncate(time.Millisecond))
		for _, d := range latest.Details {
			state := "ok"
			switch {
			case !d.Healthy:
				state = "DOWN"
			case d.Degraded:
				state = "degraded"
			}
			line := fmt.Sprintf("  %-8s %s", d.Platform, state)
			if d.Issue != "" {
				line += "  " + d.Issue
			}
			fmt.Println(line)
		}
		return nil
	},
}

// inventory command
var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Reconcile and view platform inventory",
}

var inventorySyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile platform resources against tenant records",
	RunE: func(cmd *cobra.Command, args []string) error {
		slug, _ := cmd.Flags().GetString("tenant")

		a, err := newApp(cmd, "SyncInventory")
		if err != nil {
			return err
		}
		defer a.Close()

		var outcome *lifecycle.Outcome
		if slug != "" {
			outcome, err = a.SyncTenant(cmd.Context(), slug)
		} else {
			outcome, err = a.SyncInventory(cmd.Context())
		}
		if err != nil {
			return err
		}

		fmt.Printf("Inventory sync: %s\n", outcome.Status)
		printResults(outcome.Results)
		return nil
	},
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "View stored inventory",
	RunE: func(cmd *cobra.Command, args []string) error {
		platformName, _ := cmd.Flags().GetString("platform")

		a, err := newApp(cmd, "ListInventory")
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := a.Inventory(model.Platform(platformName))
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No inventory recorded. Run `sitereg inventory sync`.")
			return nil
		}

		for _, item := range items {
			var flags string
			if item.Orphaned {
				flags += " ORPHANED"
			}
			if item.Drift {
				flags += " DRIFT"
			}
			fmt.Printf("%-8s %-14s %-40s %s%s\n",
				item.Platform, item.ResourceType, item.ResourceID, item.Name, flags)
		}
		return nil
	},
}

// ops command
var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "View the operation audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		slug, _ := cmd.Flags().GetString("tenant")

		a, err := newApp(cmd, "ListOperations")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Operations(lifecycle.OperationFilter{Slug: slug, Limit: limit})
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range entries {
			duration := ""
			if op.CompletedAt != nil {
				duration = op.Duration.Truncate(time.Millisecond).String()
			}
			fmt.Printf("%s  %-15s  %-24s  %-16s  %s\n",
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Kind,
				op.Slug,
				op.Status,
				duration,
			)
		}
		return nil
	},
}

// sweep command
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Manage lapsed deletion snapshots",
}

var sweepListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots past their recovery window",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "PendingPermanentDeletions")
		if err != nil {
			return err
		}
		defer a.Close()

		snapshots, err := a.PendingPermanentDeletions()
		if err != nil {
			return err
		}
		if len(snapshots) == 0 {
			fmt.Println("No snapshots pending permanent deletion.")
			return nil
		}

		for _, s := range snapshots {
			fmt.Printf("%-36s  %-24s  expired %s\n",
				s.ID, s.Slug, s.RecoveryDeadline.Format("2006-01-02"))
		}
		return nil
	},
}

var sweepMarkCmd = &cobra.Command{
	Use:   "mark SNAPSHOT_ID",
	Short: "Record that a sweep purged a snapshot's resources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		by, _ := cmd.Flags().GetString("by")

		a, err := newApp(cmd, "MarkPermanentlyDeleted")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.MarkPermanentlyDeleted(args[0], by); err != nil {
			return err
		}
		fmt.Printf("Snapshot %s marked permanently deleted.\n", args[0])
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysInitCmd)

	// tenant subcommands
	tenantCmd.AddCommand(tenantListCmd)
	tenantCmd.AddCommand(tenantShowCmd)
	tenantCmd.AddCommand(tenantImportCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tenantCmd)

	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().String("reason", "", "Reason for the deletion (required)")
	deleteCmd.Flags().String("by", "", "Operator performing the deletion (required)")
	deleteCmd.Flags().BoolP("yes", "y", false, "Confirm the deletion")

	rootCmd.AddCommand(recoverCmd)
	recoverCmd.Flags().String("by", "", "Operator performing the recovery (required)")

	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().Bool("check", false, "Probe the platforms instead of showing cached health")

	inventoryCmd.AddCommand(inventorySyncCmd)
	inventorySyncCmd.Flags().String("tenant", "", "Limit the sync to one tenant slug")
	inventoryCmd.AddCommand(inventoryListCmd)
	inventoryListCmd.Flags().String("platform", "", "Limit output to one platform")
	rootCmd.AddCommand(inventoryCmd)

	rootCmd.AddCommand(opsCmd)
	opsCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	opsCmd.Flags().String("tenant", "", "Limit output to one tenant slug")

	sweepCmd.AddCommand(sweepListCmd)
	sweepCmd.AddCommand(sweepMarkCmd)
	sweepMarkCmd.Flags().String("by", "", "Operator recording the purge")
	rootCmd.AddCommand(sweepCmd)
}
