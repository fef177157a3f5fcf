package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seclave/hsign/cmd/hsign-cli/backups"
	"github.com/seclave/hsign/cmd/hsign-cli/device"
	"github.com/seclave/hsign/cmd/hsign-cli/signing"
)

const (
	// Version information
	VERSION = "0.1.0"
)

func main() {
	rootCmd.AddCommand(device.NewDeviceCmd())
	rootCmd.AddCommand(backups.NewBackupsCmd())
	rootCmd.AddCommand(signing.NewSigningCmd())
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hsign-cli",
	Short: "Signing device CLI",
	Long:  "Host-side CLI for talking to a signing device over NATS",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display detailed version information",
	Long:  "Display detailed version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hsign-cli version %s\n", VERSION)
	},
}
