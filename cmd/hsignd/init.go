package main

import (
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seclave/hsign/pkg/backup"
	"github.com/seclave/hsign/pkg/config"
	"github.com/seclave/hsign/pkg/keystore"
	"github.com/seclave/hsign/pkg/logger"
	"github.com/seclave/hsign/pkg/security"
)

// NewInitCmd creates the device initialization command. It generates a
// fresh random seed and, when backups are configured, writes the first
// encrypted backup right away.
func NewInitCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize the device with a fresh seed",
		Long:  "Generate a new random device seed and store it in the keystore",
		RunE:  runInit,
	}

	cmd.Flags().StringP("name", "n", "", "Device name (required)")
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().BoolP("prompt-credentials", "p", false, "Prompt for sensitive parameters")
	cmd.Flags().StringP("password-file", "f", "", "Path to file containing the keystore password")
	cmd.Flags().Bool("force", false, "Replace an existing seed")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	deviceName, _ := cmd.Flags().GetString("name")
	configPath, _ := cmd.Flags().GetString("config")
	usePrompts, _ := cmd.Flags().GetBool("prompt-credentials")
	passwordFile, _ := cmd.Flags().GetString("password-file")
	force, _ := cmd.Flags().GetBool("force")

	config.SetEnvConfigPath(configPath)
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.Environment, false)

	if passwordFile != "" {
		if err := loadKeystorePasswordFromFile(passwordFile); err != nil {
			return err
		}
	}
	if usePrompts {
		promptForSensitiveCredentials(cfg)
	} else {
		checkRequiredConfigValues(cfg)
	}

	store := keystore.NewStore(deviceName)
	defer store.Close()
	ks := keystore.New(store)

	if ks.HasSeed() && !force {
		return fmt.Errorf("device already has a seed (use --force to replace it)")
	}

	seed := make([]byte, keystore.SeedLen)
	if _, err := rand.Read(seed); err != nil {
		return fmt.Errorf("failed to generate seed: %w", err)
	}
	defer security.ZeroBytes(seed)

	if err := ks.SetSeed(seed); err != nil {
		return fmt.Errorf("failed to store seed: %w", err)
	}
	logger.Info("Device seed initialized", "name", deviceName)

	if config.BackupEnabled() {
		manager := backup.NewManager(ks, config.BackupDir(), config.BackupPassword())
		info, err := manager.Create(deviceName)
		if err != nil {
			return fmt.Errorf("seed stored but initial backup failed: %w", err)
		}
		logger.Info("Initial backup created", "id", info.ID)
	}

	return nil
}
