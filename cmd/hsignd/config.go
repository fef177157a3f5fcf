package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/seclave/hsign/pkg/config"
	"github.com/seclave/hsign/pkg/logger"
	"github.com/seclave/hsign/pkg/security"
)

// loadKeystorePasswordFromFile reads the keystore encryption password
// from a file.
func loadKeystorePasswordFromFile(filePath string) error {
	passwordBytes, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read password file %s: %w", filePath, err)
	}

	// Trim whitespace/newlines without altering content
	password := strings.TrimSpace(string(passwordBytes))

	if password == "" {
		security.ZeroBytes(passwordBytes)
		return fmt.Errorf("password file %s is empty", filePath)
	}

	config.SetKeystorePassword(password)
	security.ZeroBytes(passwordBytes)
	security.ZeroString(&password)

	return nil
}

// promptForSensitiveCredentials asks for the keystore password on the
// terminal instead of taking it from the config file.
func promptForSensitiveCredentials(cfg *config.Config) {
	if cfg.StorageType != config.StorageTypeBadger {
		checkRequiredConfigValues(cfg)
		return
	}

	fmt.Println("WARNING: Please back up your keystore password in a secure location.")
	fmt.Println("If you lose this password, you will permanently lose access to the device seed!")

	var keystorePass []byte
	var confirmPass []byte
	var err error

	defer func() {
		security.ZeroBytes(keystorePass)
		security.ZeroBytes(confirmPass)
	}()

	for {
		fmt.Print("Enter keystore password: ")
		keystorePass, err = term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			logger.Fatal("Failed to read keystore password", err)
		}
		fmt.Println()

		if len(keystorePass) == 0 {
			fmt.Println("Password cannot be empty. Please try again.")
			continue
		}

		fmt.Print("Confirm keystore password: ")
		confirmPass, err = term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			logger.Fatal("Failed to read confirmation password", err)
		}
		fmt.Println()

		if string(keystorePass) != string(confirmPass) {
			fmt.Println("Passwords do not match. Please try again.")
			continue
		}

		break
	}

	passwordStr := string(keystorePass)
	fmt.Printf("Password set: %s\n", maskString(passwordStr))
	config.SetKeystorePassword(passwordStr)
	security.ZeroString(&passwordStr)
	checkRequiredConfigValues(cfg)
}

// maskString shows the first and last character of a string, replacing
// the middle with asterisks.
func maskString(s string) string {
	if len(s) <= 2 {
		return s // Too short to mask
	}

	masked := s[0:1]
	for i := 0; i < len(s)-2; i++ {
		masked += "*"
	}
	masked += s[len(s)-1:]

	return masked
}

// checkRequiredConfigValues refuses to start without the values the
// selected backends need.
func checkRequiredConfigValues(cfg *config.Config) {
	if cfg.NATs == nil || cfg.NATs.URL == "" {
		logger.Fatal("NATS URL is required", nil)
	}
	if cfg.StorageType == config.StorageTypeBadger && config.KeystorePassword() == "" {
		logger.Fatal("Keystore password is required for badger storage", nil)
	}
	if cfg.StorageType == config.StorageTypePostgres && cfg.PostgresDSN == "" {
		logger.Fatal("Postgres DSN is required for postgres storage", nil)
	}
	if cfg.BackupEnabled && cfg.BackupPassword == "" {
		logger.Fatal("Backup password is required when backups are enabled", nil)
	}
}
