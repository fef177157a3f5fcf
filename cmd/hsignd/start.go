package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seclave/hsign/pkg/audit"
	"github.com/seclave/hsign/pkg/backup"
	"github.com/seclave/hsign/pkg/coin"
	"github.com/seclave/hsign/pkg/commander"
	"github.com/seclave/hsign/pkg/config"
	"github.com/seclave/hsign/pkg/keystore"
	"github.com/seclave/hsign/pkg/logger"
	"github.com/seclave/hsign/pkg/screen"
	"github.com/seclave/hsign/pkg/session"
	"github.com/seclave/hsign/pkg/transport"
	"github.com/seclave/hsign/pkg/wire"
)

const sessionCleanupInterval = time.Minute

// NewStartCmd creates a new start command
func NewStartCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "start",
		Short: "Start the signing device daemon",
		Long:  "Start the signing device daemon with the specified configuration",
		RunE:  runDevice,
	}

	cmd.Flags().StringP("name", "n", "", "Device name (required)")
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().BoolP("prompt-credentials", "p", false, "Prompt for sensitive parameters")
	cmd.Flags().StringP("password-file", "f", "", "Path to file containing the keystore password")
	cmd.Flags().Bool("debug", false, "Enable debug logging")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runDevice(cmd *cobra.Command, args []string) error {
	deviceName, _ := cmd.Flags().GetString("name")
	configPath, _ := cmd.Flags().GetString("config")
	usePrompts, _ := cmd.Flags().GetBool("prompt-credentials")
	passwordFile, _ := cmd.Flags().GetString("password-file")
	debug, _ := cmd.Flags().GetBool("debug")

	ctx := context.Background()

	config.SetEnvConfigPath(configPath)
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.Environment, debug)

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

	if !ks.HasSeed() {
		logger.Warn("Device has no seed; run 'hsignd init' or restore a backup before signing")
	}

	backupManager := backup.NewManager(ks, config.BackupDir(), config.BackupPassword())
	if config.BackupEnabled() {
		stopBackup := StartPeriodicBackup(ctx, backupManager, deviceName, config.BackupPeriodSeconds())
		defer stopBackup()
	}

	sessions := session.NewManager(sessionCleanupInterval, config.SignSessionTimeout())
	// StartCleanup blocks until Stop.
	go sessions.StartCleanup()
	defer sessions.Stop()

	scr := screen.New()
	coinHandlers := coin.NewHandlers(config.CoinEnabled(), ks, store, scr, sessions)
	dispatcher := commander.New(wire.NewJSONCodec(), coinHandlers, backup.NewWorkflows(backupManager), scr)

	natsConn, err := transport.Connect()
	if err != nil {
		logger.Fatal("Failed to connect to NATS", err)
	}

	var trail audit.Trail = audit.NoopTrail{}
	if config.AuditEnabled() {
		trail, err = audit.NewJetStreamTrail(natsConn)
		if err != nil {
			logger.Fatal("Failed to create audit trail", err)
		}
	}

	responder := transport.NewResponder(natsConn, dispatcher, trail)
	if err := responder.Start(config.RequestSubject()); err != nil {
		logger.Fatal("Failed to start responder", err)
	}

	logger.Info("Device is running", "name", deviceName, "coinEnabled", config.CoinEnabled())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Warn("Shutdown signal received, draining...")

	if err := responder.Stop(); err != nil {
		logger.Error("Failed to stop responder", err)
	}
	if err := natsConn.Drain(); err != nil {
		logger.Error("Failed to drain NATS connection", err)
	}

	return nil
}
