package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"recap/internal/config"
	"recap/internal/services"
)

// Store persists job artifacts beneath a single root directory.
type Store struct {
	root string
}

// NewStore opens the object store rooted in the configured data directory.
func NewStore(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	root := filepath.Join(cfg.Paths.DataDir, "objects")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create object root: %w", err)
	}
	return &Store{root: root}, nil
}

// PathFor resolves a key to its local filesystem path. External tools write
// chunk output through this path; the key remains the canonical reference.
func (s *Store) PathFor(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create key dir: %w", err)
	}
	return full, nil
}

// Put streams content into the store under key, replacing any existing object.
func (s *Store) Put(key string, r io.Reader) error {
	target, err := s.PathFor(key)
	if err != nil {
		return err
	}
	tmp := target + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create object: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write object: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit object: %w", err)
	}
	return nil
}

// PutFile copies a local file into the store under key.
func (s *Store) PutFile(key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()
	return s.Put(key, f)
}

// Open returns a reader for the stored object.
func (s *Store) Open(key string) (io.ReadCloser, error) {
	target, err := s.PathFor(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "storage", "open", key, nil)
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	return f, nil
}

// Exists reports whether an object is present under key.
func (s *Store) Exists(key string) bool {
	cleaned, err := cleanKey(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(cleaned)))
	return err == nil && !info.IsDir()
}

// PutJSON marshals a document into the store under key.
func (s *Store) PutJSON(key string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Put(key, strings.NewReader(string(data)))
}

// GetJSON unmarshals a stored document into target.
func (s *Store) GetJSON(key string, target any) error {
	r, err := s.Open(key)
	if err != nil {
		return err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// RemoveJob deletes every artifact stored for a job.
func (s *Store) RemoveJob(jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return services.Wrap(services.ErrValidation, "storage", "remove_job", "job id is required", nil)
	}
	return os.RemoveAll(filepath.Join(s.root, "meetings", jobID))
}

func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", services.Wrap(services.ErrValidation, "storage", "key", "key is required", nil)
	}
	cleaned := filepath.ToSlash(filepath.Clean(filepath.FromSlash(key)))
	if strings.HasPrefix(cleaned, "..") || strings.HasPrefix(cleaned, "/") {
		return "", services.Wrap(services.ErrValidation, "storage", "key", fmt.Sprintf("key escapes store root: %s", key), nil)
	}
	return cleaned, nil
}
