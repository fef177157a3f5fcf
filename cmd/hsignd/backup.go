package main

import (
	"context"
	"time"

	"github.com/seclave/hsign/pkg/backup"
	"github.com/seclave/hsign/pkg/logger"
)

const (
	DefaultBackupPeriodSeconds = 300 // (5 minutes)
)

// StartPeriodicBackup snapshots the seed into a fresh encrypted backup
// on a fixed period until the returned cancel function is called.
func StartPeriodicBackup(ctx context.Context, manager *backup.Manager, deviceName string, periodSeconds int) func() {
	if periodSeconds <= 0 {
		periodSeconds = DefaultBackupPeriodSeconds
	}
	backupTicker := time.NewTicker(time.Duration(periodSeconds) * time.Second)
	backupCtx, backupCancel := context.WithCancel(ctx)
	go func() {
		defer backupTicker.Stop()
		for {
			select {
			case <-backupCtx.Done():
				logger.Info("Backup background job stopped")
				return
			case <-backupTicker.C:
				logger.Info("Running periodic seed backup...")
				info, err := manager.Create(deviceName)
				if err != nil {
					logger.Error("Periodic seed backup failed", err)
				} else {
					logger.Info("Periodic seed backup completed successfully", "id", info.ID)
				}
			}
		}
	}()
	return backupCancel
}
