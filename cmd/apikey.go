package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/auth"
	"github.com/docdex/docdex/internal/config"
)

var apikeyFlags struct {
	org         string
	permissions []string
	ttl         time.Duration
}

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API credentials",
}

var apikeyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a credential for an organization",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := openRegistry()
		if err != nil {
			return err
		}

		perms := make([]auth.Permission, len(apikeyFlags.permissions))
		for i, p := range apikeyFlags.permissions {
			switch auth.Permission(p) {
			case auth.PermRead, auth.PermWrite, auth.PermAdmin:
				perms[i] = auth.Permission(p)
			default:
				return fmt.Errorf("unknown permission %q (valid: read, write, admin)", p)
			}
		}

		cred, err := registry.Add(apikeyFlags.org, perms, apikeyFlags.ttl)
		if err != nil {
			return err
		}

		// The key is printed once here; its only other record is
		// the 0600 registry file.
		cmd.Printf("Credential ID: %s\n", cred.ID)
		cmd.Printf("API Key:       %s\n", cred.Key)
		cmd.Printf("Organization:  %s\n", cred.OrgID)
		cmd.Printf("Permissions:   %v\n", cred.Permissions)
		if !cred.ExpiresAt.IsZero() {
			cmd.Printf("Expires:       %s\n", cred.ExpiresAt.Format(time.RFC3339))
		}
		return nil
	},
}

var apikeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := openRegistry()
		if err != nil {
			return err
		}

		creds, err := registry.List()
		if err != nil {
			return err
		}
		if len(creds) == 0 {
			cmd.Println("No credentials registered.")
			return nil
		}

		for _, cred := range creds {
			status := cred.Status
			if cred.Deactivated {
				status += " (deactivated)"
			}
			cmd.Printf("%s  org=%s  perms=%v  status=%s", cred.ID, cred.OrgID, cred.Permissions, status)
			if !cred.LastUsedAt.IsZero() {
				cmd.Printf("  last_used=%s", cred.LastUsedAt.Format(time.RFC3339))
			}
			cmd.Println()
		}
		return nil
	},
}

var apikeyDeactivateCmd = &cobra.Command{
	Use:   "deactivate <credential-id>",
	Short: "Revoke a credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := openRegistry()
		if err != nil {
			return err
		}
		if err := registry.Deactivate(args[0]); err != nil {
			return err
		}
		cmd.Printf("Deactivated %s\n", args[0])
		return nil
	},
}

func openRegistry() (*auth.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return auth.NewRegistry(cfg.RegistryPath, newLogger()), nil
}

func init() {
	apikeyAddCmd.Flags().StringVar(&apikeyFlags.org, "org", "", "organization the credential belongs to (required)")
	apikeyAddCmd.Flags().StringSliceVar(&apikeyFlags.permissions, "permissions", []string{"read"}, "permissions to grant: read, write, admin")
	apikeyAddCmd.Flags().DurationVar(&apikeyFlags.ttl, "ttl", 0, "credential lifetime (0 = no expiry)")
	_ = apikeyAddCmd.MarkFlagRequired("org")

	apikeyCmd.AddCommand(apikeyAddCmd, apikeyListCmd, apikeyDeactivateCmd)
	rootCmd.AddCommand(apikeyCmd)
}
