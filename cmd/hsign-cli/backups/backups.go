package backups

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seclave/hsign/cmd/hsign-cli/utils"
)

var (
	natsURL string
	subject string
	timeout time.Duration

	backupID string
)

// NewBackupsCmd creates the backups command group
func NewBackupsCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "backups",
		Short: "Backup commands",
		Long:  "Commands for listing and restoring device seed backups",
	}

	cmd.PersistentFlags().StringVarP(&natsURL, "nats-url", "u", "", "NATS server URL")
	cmd.PersistentFlags().StringVarP(&subject, "subject", "s", "", "Device request subject")
	cmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "Per-request timeout")

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newRestoreCmd())

	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups on the device",
		Long:  "List every backup the device can read",
		RunE:  listBackups,
	}
}

func newRestoreCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "restore",
		Short: "Restore a backup on the device",
		Long:  "Reinstate the device seed from the identified backup",
		RunE:  restoreBackup,
	}

	cmd.Flags().StringVarP(&backupID, "id", "i", "", "Backup ID (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func listBackups(cmd *cobra.Command, args []string) error {
	conn, err := utils.Dial(natsURL, subject, timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	infos, err := conn.Client.ListBackups()
	if err != nil {
		return err
	}

	if len(infos) == 0 {
		fmt.Println("No backups found")
		return nil
	}

	for _, info := range infos {
		created := time.Unix(info.Timestamp, 0).UTC().Format(time.RFC3339)
		fmt.Printf("%s  %s  %s\n", info.ID, created, info.Name)
	}
	return nil
}

func restoreBackup(cmd *cobra.Command, args []string) error {
	conn, err := utils.Dial(natsURL, subject, timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Client.RestoreBackup(backupID); err != nil {
		return err
	}

	fmt.Printf("Backup %s restored\n", backupID)
	return nil
}
