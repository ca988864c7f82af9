package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/podforge-ai/podforge/pkg/models"
)

// Store persists a usage document with whole-document semantics.
type Store interface {
	// Load reads the whole document. A missing document is not an
	// error: implementations return an empty document.
	Load() (*models.UsageDocument, error)
	// Save writes the whole document.
	Save(doc *models.UsageDocument) error
}

// FileStore keeps the usage document in a single JSON file, written
// atomically via a temp file and rename.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path, creating parent
// directories as needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create usage dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load implements Store.
func (s *FileStore) Load() (*models.UsageDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewUsageDocument(), nil
		}
		return nil, fmt.Errorf("read usage file: %w", err)
	}

	doc := models.NewUsageDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse usage file: %w", err)
	}
	if doc.Daily == nil {
		doc.Daily = make(map[string]*models.UsageRecord)
	}
	if doc.Episodes == nil {
		doc.Episodes = make(map[string]*models.UsageRecord)
	}
	if doc.Monthly == nil {
		doc.Monthly = make(map[string]*models.UsageRecord)
	}
	return doc, nil
}

// Save implements Store.
func (s *FileStore) Save(doc *models.UsageDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode usage: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".usage-*.json")
	if err != nil {
		return fmt.Errorf("create temp usage file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write usage file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync usage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close usage file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace usage file: %w", err)
	}
	return nil
}
