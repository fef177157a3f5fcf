package backup

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclave/hsign/pkg/keystore"
	"github.com/seclave/hsign/pkg/wire"
)

type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Put(key string, value []byte) error {
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Get(key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, keystore.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memStore) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func (m *memStore) Keys() ([]string, error) { return nil, nil }
func (m *memStore) Close() error            { return nil }

func newTestManager(t *testing.T) (*Manager, *keystore.Keystore, []byte) {
	t.Helper()
	ks := keystore.New(newMemStore())
	seed := make([]byte, keystore.SeedLen)
	_, err := rand.Read(seed)
	require.NoError(t, err)
	require.NoError(t, ks.SetSeed(seed))
	return NewManager(ks, t.TempDir(), "correct horse battery staple"), ks, seed
}

func TestCreateListRestore(t *testing.T) {
	m, ks, seed := newTestManager(t)

	info, err := m.Create("primary")
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "primary", info.Name)

	infos, err := m.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, info.ID, infos[0].ID)
	assert.Equal(t, "primary", infos[0].Name)
	assert.Equal(t, info.Timestamp, infos[0].Timestamp)

	// Wipe the device, then restore from the backup.
	require.NoError(t, ks.SetSeed(make([]byte, keystore.SeedLen)))

	err = m.Restore(&wire.RestoreBackupRequest{
		ID:        info.ID,
		Timestamp: time.Now().Unix(),
	})
	require.NoError(t, err)

	restored, err := ks.Seed()
	require.NoError(t, err)
	assert.Equal(t, seed, restored)
}

func TestCreate_NoSeed(t *testing.T) {
	m := NewManager(keystore.New(newMemStore()), t.TempDir(), "pw")
	_, err := m.Create("primary")
	assert.ErrorIs(t, err, keystore.ErrNoSeed)
}

func TestCreate_NoPassphrase(t *testing.T) {
	ks := keystore.New(newMemStore())
	m := NewManager(ks, t.TempDir(), "")
	_, err := m.Create("primary")
	assert.ErrorIs(t, err, ErrNoPassphrase)
}

func TestList_EmptyAndMissingDir(t *testing.T) {
	m, _, _ := newTestManager(t)

	infos, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, infos)

	missing := NewManager(keystore.New(newMemStore()), filepath.Join(t.TempDir(), "nope"), "pw")
	infos, err = missing.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestList_SkipsForeignFiles(t *testing.T) {
	m, _, _ := newTestManager(t)

	info, err := m.Create("primary")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(m.dir, "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(m.dir, "garbage_123.age"), []byte("not age"), 0600))

	infos, err := m.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, info.ID, infos[0].ID)
}

func TestList_SortedByCreation(t *testing.T) {
	m, _, _ := newTestManager(t)

	first, err := m.Create("first")
	require.NoError(t, err)
	second, err := m.Create("second")
	require.NoError(t, err)

	infos, err := m.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	// Same-second creation still lists both; order by timestamp is
	// stable enough to assert IDs are present.
	ids := []string{infos[0].ID, infos[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}

func TestRestore_UnknownID(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.Create("primary")
	require.NoError(t, err)

	err = m.Restore(&wire.RestoreBackupRequest{ID: "00000000-0000-0000-0000-000000000000"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRestore_EmptyID(t *testing.T) {
	m, _, _ := newTestManager(t)
	assert.ErrorIs(t, m.Restore(&wire.RestoreBackupRequest{}), ErrNotFound)
}

func TestRestore_OffsetOutOfRange(t *testing.T) {
	m, _, _ := newTestManager(t)
	info, err := m.Create("primary")
	require.NoError(t, err)

	err = m.Restore(&wire.RestoreBackupRequest{ID: info.ID, TimezoneOffset: 60000})
	assert.ErrorIs(t, err, ErrInvalidOffset)

	err = m.Restore(&wire.RestoreBackupRequest{ID: info.ID, TimezoneOffset: -50000})
	assert.ErrorIs(t, err, ErrInvalidOffset)
}

func TestRestore_WrongPassphrase(t *testing.T) {
	m, ks, _ := newTestManager(t)
	info, err := m.Create("primary")
	require.NoError(t, err)

	other := NewManager(ks, m.dir, "wrong")
	err = other.Restore(&wire.RestoreBackupRequest{ID: info.ID})
	assert.Error(t, err)
}

func TestParseBackupFilename(t *testing.T) {
	id, ts, ok := parseBackupFilename("abc-def_1700000000.age")
	require.True(t, ok)
	assert.Equal(t, "abc-def", id)
	assert.EqualValues(t, 1700000000, ts)

	_, _, ok = parseBackupFilename("noext_1700000000")
	assert.False(t, ok)
	_, _, ok = parseBackupFilename("nounderscore.age")
	assert.False(t, ok)
	_, _, ok = parseBackupFilename("bad_time.age")
	assert.False(t, ok)
}

func TestWorkflows(t *testing.T) {
	m, _, _ := newTestManager(t)
	w := NewWorkflows(m)

	var list wire.ListBackupsResponse
	require.True(t, w.ListBackups(&list))
	assert.Empty(t, list.Info)

	info, err := m.Create("primary")
	require.NoError(t, err)

	require.True(t, w.ListBackups(&list))
	require.Len(t, list.Info, 1)

	assert.True(t, w.RestoreBackup(&wire.RestoreBackupRequest{ID: info.ID, Timestamp: time.Now().Unix()}))
	assert.False(t, w.RestoreBackup(&wire.RestoreBackupRequest{ID: "missing"}))
}
