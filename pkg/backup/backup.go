package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"filippo.io/age"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/seclave/hsign/pkg/filesystem"
	"github.com/seclave/hsign/pkg/keystore"
	"github.com/seclave/hsign/pkg/logger"
	"github.com/seclave/hsign/pkg/security"
	"github.com/seclave/hsign/pkg/wire"
)

const backupExt = ".age"

// Host clocks report their local offset alongside the restore
// timestamp. Anything outside the real-world UTC offset range is a
// corrupted or hostile request.
const (
	maxEastUTCOffset = 50400  // UTC+14
	maxWestUTCOffset = -43200 // UTC-12
)

var (
	ErrNotFound      = errors.New("backup: not found")
	ErrNoPassphrase  = errors.New("backup: passphrase not configured")
	ErrInvalidOffset = errors.New("backup: timezone offset out of range")
)

// snapshot is the plaintext layout inside an age envelope.
type snapshot struct {
	Name      string `json:"name"`
	Seed      []byte `json:"seed"`
	CreatedAt int64  `json:"created_at"`
}

// Manager creates, lists and restores seed backups as scrypt-encrypted
// age files named <id>_<unix>.age under the backup directory.
type Manager struct {
	ks         *keystore.Keystore
	dir        string
	passphrase string
}

func NewManager(ks *keystore.Keystore, dir, passphrase string) *Manager {
	return &Manager{ks: ks, dir: dir, passphrase: passphrase}
}

// Create snapshots the current seed into a new encrypted backup file
// and returns its listing entry.
func (m *Manager) Create(name string) (*wire.BackupInfo, error) {
	if m.passphrase == "" {
		return nil, ErrNoPassphrase
	}
	if err := os.MkdirAll(m.dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	seed, err := m.ks.Seed()
	if err != nil {
		return nil, err
	}
	defer security.ZeroBytes(seed)

	id := uuid.NewString()
	createdAt := time.Now().Unix()

	payload, err := json.Marshal(snapshot{Name: name, Seed: seed, CreatedAt: createdAt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal backup payload: %w", err)
	}
	defer security.ZeroBytes(payload)

	path, err := filesystem.SafePath(m.dir, fmt.Sprintf("%s_%d%s", id, createdAt, backupExt))
	if err != nil {
		return nil, err
	}

	recipient, err := age.NewScryptRecipient(m.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup recipient: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}

	w, err := age.Encrypt(f, recipient)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to start backup encryption: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to finalize backup: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close backup file: %w", err)
	}

	logger.Info("Backup created", "id", id, "name", name)
	return &wire.BackupInfo{ID: id, Name: name, Timestamp: createdAt}, nil
}

// List returns every readable backup, newest first. Files that do not
// follow the naming scheme or do not decrypt with the configured
// passphrase are skipped with a warning rather than failing the whole
// listing.
func (m *Manager) List() ([]wire.BackupInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	infos := lo.FilterMap(entries, func(entry os.DirEntry, _ int) (wire.BackupInfo, bool) {
		if entry.IsDir() {
			return wire.BackupInfo{}, false
		}
		id, createdAt, ok := parseBackupFilename(entry.Name())
		if !ok {
			return wire.BackupInfo{}, false
		}
		snap, err := m.readSnapshot(entry.Name())
		if err != nil {
			logger.Warn("Skipping unreadable backup", "file", entry.Name(), "error", err)
			return wire.BackupInfo{}, false
		}
		security.ZeroBytes(snap.Seed)
		return wire.BackupInfo{ID: id, Name: snap.Name, Timestamp: createdAt}, true
	})

	sort.Slice(infos, func(i, j int) bool { return infos[i].Timestamp > infos[j].Timestamp })
	return infos, nil
}

// Restore reinstates the seed from the identified backup. The request
// timestamp is the host's clock at restore time, used only for the
// audit log; the backup's own creation time lives in its filename.
func (m *Manager) Restore(req *wire.RestoreBackupRequest) error {
	if req.ID == "" {
		return ErrNotFound
	}
	if req.TimezoneOffset > maxEastUTCOffset || req.TimezoneOffset < maxWestUTCOffset {
		return ErrInvalidOffset
	}

	filename, err := m.findByID(req.ID)
	if err != nil {
		return err
	}

	snap, err := m.readSnapshot(filename)
	if err != nil {
		return err
	}
	defer security.ZeroBytes(snap.Seed)

	if len(snap.Seed) != keystore.SeedLen {
		return fmt.Errorf("backup: corrupted seed in %s", filename)
	}
	if err := m.ks.SetSeed(snap.Seed); err != nil {
		return err
	}

	hostTime := time.Unix(req.Timestamp, 0).UTC().Add(time.Duration(req.TimezoneOffset) * time.Second)
	logger.Info("Backup restored",
		"id", req.ID,
		"name", snap.Name,
		"hostLocalTime", hostTime.Format(time.RFC3339))
	return nil
}

func (m *Manager) findByID(id string) (string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read backup directory: %w", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), id+"_") && strings.HasSuffix(entry.Name(), backupExt) {
			return entry.Name(), nil
		}
	}
	return "", ErrNotFound
}

func (m *Manager) readSnapshot(filename string) (*snapshot, error) {
	if m.passphrase == "" {
		return nil, ErrNoPassphrase
	}
	path, err := filesystem.SafePath(m.dir, filename)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	identity, err := age.NewScryptIdentity(m.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup identity: %w", err)
	}
	r, err := age.Decrypt(f, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt backup: %w", err)
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	defer security.ZeroBytes(payload)

	var snap snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse backup payload: %w", err)
	}
	return &snap, nil
}

// parseBackupFilename splits <id>_<unix>.age into its parts.
func parseBackupFilename(name string) (id string, createdAt int64, ok bool) {
	base, found := strings.CutSuffix(name, backupExt)
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndex(base, "_")
	if idx <= 0 {
		return "", 0, false
	}
	createdAt, err := strconv.ParseInt(base[idx+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return base[:idx], createdAt, true
}
