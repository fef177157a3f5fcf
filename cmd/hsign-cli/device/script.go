package device

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seclave/hsign/cmd/hsign-cli/utils"
)

var (
	scriptName string
	scriptHex  string
)

func newRegisterScriptCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "register-script",
		Short: "Register a named script on the device",
		Long:  "Register a named script so the device recognizes it in later requests",
		RunE:  registerScript,
	}

	addScriptFlags(cmd)
	return cmd
}

func newCheckScriptCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "check-script",
		Short: "Check whether a script is registered",
		Long:  "Check whether the named script content is registered on the device",
		RunE:  checkScript,
	}

	addScriptFlags(cmd)
	return cmd
}

func addScriptFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&scriptName, "name", "n", "", "Script name (required)")
	cmd.Flags().StringVar(&scriptHex, "script", "", "Script content as hex (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("script")
}

func registerScript(cmd *cobra.Command, args []string) error {
	script, err := hex.DecodeString(scriptHex)
	if err != nil {
		return fmt.Errorf("invalid script hex: %w", err)
	}

	conn, err := utils.Dial(natsURL, subject, timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Client.RegisterScript(scriptName, script); err != nil {
		return err
	}

	fmt.Printf("Script %q registered\n", scriptName)
	return nil
}

func checkScript(cmd *cobra.Command, args []string) error {
	script, err := hex.DecodeString(scriptHex)
	if err != nil {
		return fmt.Errorf("invalid script hex: %w", err)
	}

	conn, err := utils.Dial(natsURL, subject, timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	registered, err := conn.Client.IsScriptRegistered(scriptName, script)
	if err != nil {
		return err
	}

	if registered {
		fmt.Printf("Script %q is registered\n", scriptName)
	} else {
		fmt.Printf("Script %q is NOT registered\n", scriptName)
	}
	return nil
}
