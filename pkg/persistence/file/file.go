// Package file provides a JSON file persistence implementation for local runs and tests.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/estatedesk/partnerflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
// A single mutex serializes writes, which is what makes ledger appends atomic within
// one process.
type Persistence struct {
	root       string
	mu         sync.Mutex
	draftRepo  *DraftRepository
	entityRepo *EntityRepository
	ledgerRepo *LedgerRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	fp := &Persistence{root: cleanRoot}
	fp.draftRepo = &DraftRepository{store: fp}
	fp.entityRepo = &EntityRepository{store: fp}
	fp.ledgerRepo = &LedgerRepository{store: fp}

	return fp
}

func (fp *Persistence) Drafts() persistence.DraftRepository {
	return fp.draftRepo
}

func (fp *Persistence) Entities() persistence.EntityRepository {
	return fp.entityRepo
}

func (fp *Persistence) Ledger() persistence.LedgerRepository {
	return fp.ledgerRepo
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) dir(parts ...string) string {
	return filepath.Join(append([]string{fp.root}, parts...)...)
}

func readJSON(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.ErrNotFound
		}

		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return nil
}

// writeJSON writes through a temp file and rename so readers never see a partial record.
func writeJSON(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	return nil
}

// recordIDs lists the numeric ids of the *.json records in dir.
func recordIDs(dir string) ([]int64, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	ids := make([]int64, 0, len(matches))

	for _, match := range matches {
		id, err := strconv.ParseInt(strings.TrimSuffix(filepath.Base(match), ".json"), 10, 64)
		if err != nil {
			continue
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// nextID allocates an id above every id ever handed out in dir, including deleted ones.
func nextID(dir string) (int64, error) {
	ids, err := recordIDs(dir)
	if err != nil {
		return 0, err
	}

	var highest int64

	seqPath := filepath.Join(dir, "sequence")

	err = readJSON(seqPath, &highest)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return 0, err
	}

	for _, id := range ids {
		highest = max(highest, id)
	}

	if err := writeJSON(seqPath, highest+1); err != nil {
		return 0, err
	}

	return highest + 1, nil
}

func recordPath(dir string, id int64) string {
	return filepath.Join(dir, strconv.FormatInt(id, 10)+".json")
}
