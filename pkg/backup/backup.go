package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/harrisonrobin/tasker/pkg/model"
)

// Exclusive gives raw access to the store file while nothing else touches it.
type Exclusive interface {
	Exclusive(fn func(path string) error) error
}

// Snapshot describes one whole-file copy held in the backup slot.
type Snapshot struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
}

var ErrNoSnapshot = errors.New("no backup snapshot found")

// Manager copies the store file into a single backup slot and back.
type Manager struct {
	store Exclusive
	slot  string
}

// NewManager keeps snapshots at slot. A manifest is written next to it as slot + ".json".
func NewManager(store Exclusive, slot string) *Manager {
	return &Manager{store: store, slot: slot}
}

func (m *Manager) manifestPath() string {
	return m.slot + ".json"
}

// Backup copies the full store image into the slot, replacing any previous snapshot.
func (m *Manager) Backup() (*Snapshot, error) {
	snap := &Snapshot{ID: uuid.New().String(), Path: m.slot}
	err := m.store.Exclusive(func(path string) error {
		size, sum, err := copyFile(path, m.slot)
		if err != nil {
			return err
		}
		snap.Size, snap.SHA256 = size, sum
		return nil
	})
	if err != nil {
		return nil, &model.StorageError{Op: "backup", Err: err}
	}
	snap.CreatedAt = time.Now()

	if err := m.saveManifest(snap); err != nil {
		return nil, &model.StorageError{Op: "backup manifest", Err: err}
	}
	log.Printf("[backup] Snapshot %s written to %s (%d bytes)", snap.ID, snap.Path, snap.Size)
	return snap, nil
}

// Restore overwrites the live store with the snapshot. The snapshot file must still match
// the checksum recorded when it was taken.
func (m *Manager) Restore(snap *Snapshot) error {
	if snap == nil {
		return ErrNoSnapshot
	}
	sum, err := checksum(snap.Path)
	if err != nil {
		return &model.StorageError{Op: "restore", Err: err}
	}
	if sum != snap.SHA256 {
		return &model.StorageError{Op: "restore", Err: fmt.Errorf("snapshot %s checksum mismatch", snap.ID)}
	}

	err = m.store.Exclusive(func(path string) error {
		_, _, err := copyFile(snap.Path, path)
		return err
	})
	if err != nil {
		return &model.StorageError{Op: "restore", Err: err}
	}
	log.Printf("[backup] Restored snapshot %s from %s", snap.ID, snap.Path)
	return nil
}

// Latest reads the manifest of the snapshot currently held in the slot.
func (m *Manager) Latest() (*Snapshot, error) {
	f, err := os.Open(m.manifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	defer f.Close()

	var snap Snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode backup manifest: %w", err)
	}
	return &snap, nil
}

func (m *Manager) saveManifest(snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(m.manifestPath()), 0700); err != nil {
		return err
	}
	f, err := os.Create(m.manifestPath())
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snap)
}

// copyFile writes src to dst through a temporary file in dst's directory and renames it into place.
func copyFile(src, dst string) (int64, string, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, "", err
	}
	defer in.Close()

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return 0, "", err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(dst)+".tmp-*")
	if err != nil {
		return 0, "", err
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), in)
	if err != nil {
		tmp.Close()
		return 0, "", err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, "", err
	}
	if err := tmp.Close(); err != nil {
		return 0, "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, "", err
	}
	return size, hex.EncodeToString(h.Sum(nil)), nil
}

func checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
