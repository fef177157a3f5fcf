package backup

import (
	"github.com/seclave/hsign/pkg/logger"
	"github.com/seclave/hsign/pkg/wire"
)

// Workflows adapts the manager to the boolean contract the command
// dispatcher expects: success or not, with the detail kept in the log.
type Workflows struct {
	manager *Manager
}

func NewWorkflows(manager *Manager) *Workflows {
	return &Workflows{manager: manager}
}

func (w *Workflows) ListBackups(result *wire.ListBackupsResponse) bool {
	infos, err := w.manager.List()
	if err != nil {
		logger.Error("Listing backups failed", err)
		return false
	}
	result.Info = infos
	return true
}

func (w *Workflows) RestoreBackup(req *wire.RestoreBackupRequest) bool {
	if err := w.manager.Restore(req); err != nil {
		logger.Error("Backup restore failed", err, "id", req.ID)
		return false
	}
	return true
}
