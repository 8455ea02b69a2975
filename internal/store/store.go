package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrNotFound = errors.New("not found")

const (
	accountsFile = "accounts.json"
	artifactDir  = "sentry"
)

// Store persists the account roster as a single JSON snapshot plus one
// opaque device-authorization artifact file per account. Writes are whole
// file overwrites; callers serialize them (the farm coordinator holds its
// lock across every save).
type Store struct {
	dataDir string
}

func New(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, errors.New("store: data dir required")
	}
	if err := os.MkdirAll(filepath.Join(dataDir, artifactDir), 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}
	return &Store{dataDir: dataDir}, nil
}

func (s *Store) accountsPath() string {
	return filepath.Join(s.dataDir, accountsFile)
}

// LoadAccounts reads the snapshot. A missing file is an empty roster.
func (s *Store) LoadAccounts() ([]Account, error) {
	data, err := os.ReadFile(s.accountsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read snapshot: %w", err)
	}
	var accounts []Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("store: decode snapshot: %w", err)
	}
	return accounts, nil
}

// SaveAccounts overwrites the snapshot with the full roster. The write goes
// through a temp file and rename so a crash mid-write never leaves a torn
// snapshot behind.
func (s *Store) SaveAccounts(accounts []Account) error {
	if accounts == nil {
		accounts = []Account{}
	}
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	return writeFileAtomic(s.accountsPath(), data, 0o644)
}

// ArtifactPath returns the deterministic on-disk location for an account's
// device-authorization artifact.
func (s *Store) ArtifactPath(accountID string) string {
	return filepath.Join(s.dataDir, artifactDir, accountID+".bin")
}

func (s *Store) WriteArtifact(accountID string, data []byte) (string, error) {
	path := s.ArtifactPath(accountID)
	if err := writeFileAtomic(path, data, 0o600); err != nil {
		return "", fmt.Errorf("store: write artifact: %w", err)
	}
	return path, nil
}

func (s *Store) ReadArtifact(accountID string) ([]byte, error) {
	data, err := os.ReadFile(s.ArtifactPath(accountID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: read artifact: %w", err)
	}
	return data, nil
}

// RemoveArtifact deletes the artifact file if present. Absence is not an
// error; account removal calls this unconditionally.
func (s *Store) RemoveArtifact(accountID string) error {
	err := os.Remove(s.ArtifactPath(accountID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: remove artifact: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	var ok bool
	defer func() {
		if !ok {
			_ = os.Remove(tmp)
		}
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	ok = true
	return nil
}
