package device

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seclave/hsign/cmd/hsign-cli/utils"
)

var (
	keypath string
	display bool
)

func newPubkeyCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "pubkey",
		Short: "Export a public key from the device",
		Long:  "Ask the device for the public key at a derivation path",
		RunE:  exportPubkey,
	}

	cmd.Flags().StringVarP(&keypath, "keypath", "k", "", "Derivation path, e.g. 44/0/0 (required)")
	cmd.Flags().BoolVarP(&display, "display", "d", false, "Show the key on the device screen as well")
	_ = cmd.MarkFlagRequired("keypath")

	return cmd
}

func exportPubkey(cmd *cobra.Command, args []string) error {
	kp, err := utils.ParseKeypath(keypath)
	if err != nil {
		return err
	}

	conn, err := utils.Dial(natsURL, subject, timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	pubKey, err := conn.Client.PublicKey(kp, display)
	if err != nil {
		return err
	}

	fmt.Println(pubKey)
	return nil
}
