package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no metadata exists for a keyname.
var ErrNotFound = errors.New("deployment metadata not found")

// Store persists deployment metadata keyed by keyname.
type Store interface {
	Load(keyname string) (*Metadata, error)
	Save(meta *Metadata) error
	Delete(keyname string) error
	Exists(keyname string) bool

	// PrivateKeyPath returns the path of the deployment's SSH private
	// key, creating key material storage if needed.
	PrivateKeyPath(keyname string) string
}

// FileStore keeps one YAML file per deployment under a directory,
// conventionally ~/.nimbus.
type FileStore struct {
	Dir string
}

// DefaultDir returns the standard metadata directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".nimbus"), nil
}

// NewFileStore creates a store rooted at dir, creating it if missing.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

func (s *FileStore) path(keyname string) string {
	return filepath.Join(s.Dir, keyname+".yaml")
}

// MetadataPath returns the on-disk location of the metadata record.
func (s *FileStore) MetadataPath(keyname string) string {
	return s.path(keyname)
}

// PrivateKeyPath returns the deployment's SSH private key location.
func (s *FileStore) PrivateKeyPath(keyname string) string {
	return filepath.Join(s.Dir, keyname+".key")
}

// Load reads the metadata record for keyname.
func (s *FileStore) Load(keyname string) (*Metadata, error) {
	data, err := os.ReadFile(s.path(keyname))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("deployment %q: %w", keyname, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("corrupted metadata for %q: %w", keyname, err)
	}
	return &meta, nil
}

// Save writes the record atomically: the contents land in a temp file
// that is renamed over the previous record.
func (s *FileStore) Save(meta *Metadata) error {
	if meta.Keyname == "" {
		return fmt.Errorf("cannot save metadata without a keyname")
	}
	meta.UpdatedAt = time.Now().UTC()

	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, meta.Keyname+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp metadata file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set metadata permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close metadata file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(meta.Keyname)); err != nil {
		return fmt.Errorf("failed to replace metadata: %w", err)
	}
	return nil
}

// Delete removes the record and the deployment's key material. Deleting a
// missing record is an error so callers can distinguish "nothing to do".
func (s *FileStore) Delete(keyname string) error {
	if err := os.Remove(s.path(keyname)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("deployment %q: %w", keyname, ErrNotFound)
		}
		return fmt.Errorf("failed to delete metadata: %w", err)
	}

	// Key material is best-effort cleanup.
	_ = os.Remove(s.PrivateKeyPath(keyname))
	_ = os.Remove(s.PrivateKeyPath(keyname) + ".pub")
	return nil
}

// Exists reports whether a record exists for keyname.
func (s *FileStore) Exists(keyname string) bool {
	_, err := os.Stat(s.path(keyname))
	return err == nil
}
