package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const starterConfig = `db:
  host: 127.0.0.1
  port: 3306
  user: root
  password: ""
  database: dispatchline

server:
  port: 8080
  drain_secret: ""

gateway:
  account_sid: "%s"
  auth_token: "%s"
  from_number: "%s"

# Optional ops-channel mirroring of every operator alert.
mirror:
  slack_token: ""
  slack_channel: ""
  discord_token: ""
  discord_channel: ""

operator:
  name: ""
  phone: ""
  timezone: America/Chicago
  quiet_start: "21:00"
  quiet_end: "08:00"

triage:
  revenue_threshold: 1500

notify:
  context_window_minutes: 60
  cooldown_minutes: 0

drain:
  batch_size: 50
  cron: "*/5 * * * *"
`

func newSetupCmd() *cobra.Command {
	var (
		accountSID string
		fromNumber string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write a starter config file",
		Long:  "Writes dispatchline.yaml with commented defaults. The gateway auth token is read from the terminal so it never lands in shell history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, accountSID, fromNumber, force)
		},
	}

	cmd.Flags().StringVar(&accountSID, "account-sid", "", "SMS gateway account SID")
	cmd.Flags().StringVar(&fromNumber, "from-number", "", "SMS gateway sending number")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func runSetup(cmd *cobra.Command, accountSID, fromNumber string, force bool) error {
	const path = "dispatchline.yaml"
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("setup: %s already exists (use --force to overwrite)", path)
	}

	token, err := promptToken(cmd)
	if err != nil {
		return err
	}

	content := fmt.Sprintf(starterConfig, accountSID, token, fromNumber)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("setup: write %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	fmt.Fprintln(cmd.OutOrStdout(), "Fill in the operator section, then run: dl migrate && dl serve")
	return nil
}

// promptToken reads the gateway auth token without echo. Skipped when stdin
// is not a terminal (the token can be filled in by hand).
func promptToken(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprint(cmd.OutOrStdout(), "Gateway auth token (enter to skip): ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("setup: read token: %w", err)
	}
	return string(raw), nil
}
