package device

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	natsURL string
	subject string
	timeout time.Duration
)

// NewDeviceCmd creates the device command group
func NewDeviceCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "device",
		Short: "Device commands",
		Long:  "Commands for querying and configuring the signing device",
	}

	cmd.PersistentFlags().StringVarP(&natsURL, "nats-url", "u", "", "NATS server URL")
	cmd.PersistentFlags().StringVarP(&subject, "subject", "s", "", "Device request subject")
	cmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "Per-request timeout")

	cmd.AddCommand(newPubkeyCmd())
	cmd.AddCommand(newRegisterScriptCmd())
	cmd.AddCommand(newCheckScriptCmd())

	return cmd
}
