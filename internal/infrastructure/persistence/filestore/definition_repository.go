package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/domain/reporterr"
	"github.com/dreschagin/monitoring-reports/internal/domain/repository"
)

const definitionExt = ".json"

var refPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// DefinitionRepository хранит каждое определение в отдельном JSON файле
// каталога; имя файла без расширения является идентификатором.
type DefinitionRepository struct {
	dir string
	mu  sync.Mutex
}

// NewDefinitionRepository создает каталог при необходимости
func NewDefinitionRepository(dir string) (*DefinitionRepository, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("definitions directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create definitions directory: %w", err)
	}
	return &DefinitionRepository{dir: dir}, nil
}

// List returns the refs of all *.json files, sorted by name. Directories,
// hidden and temporary files are ignored.
func (r *DefinitionRepository) List(ctx context.Context) ([]repository.DefinitionRef, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions directory: %w", err)
	}

	refs := make([]repository.DefinitionRef, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != definitionExt {
			continue
		}
		ref := strings.TrimSuffix(name, definitionExt)
		if !refPattern.MatchString(ref) {
			continue
		}
		refs = append(refs, repository.DefinitionRef(ref))
	}

	return refs, nil
}

func (r *DefinitionRepository) Load(ctx context.Context, ref repository.DefinitionRef) (*entity.ReportDefinition, error) {
	path, err := r.path(ref)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", ref, reporterr.ErrDefinitionNotFound)
		}
		return nil, fmt.Errorf("failed to read definition %s: %w", ref, err)
	}

	var def entity.ReportDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, reporterr.NewValidationError("", fmt.Sprintf("malformed definition %s: %v", ref, err))
	}
	if def.ID == "" {
		def.ID = ref.String()
	}

	return &def, nil
}

// Save replaces the whole file through a temporary file and a rename, so a
// reader never sees a half-written definition.
func (r *DefinitionRepository) Save(ctx context.Context, ref repository.DefinitionRef, def *entity.ReportDefinition) error {
	path, err := r.path(ref)
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal definition %s: %w", ref, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp, err := os.CreateTemp(r.dir, ".tmp-"+ref.String()+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary definition file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write definition %s: %w", ref, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync definition %s: %w", ref, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close definition %s: %w", ref, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace definition %s: %w", ref, err)
	}

	return nil
}

func (r *DefinitionRepository) path(ref repository.DefinitionRef) (string, error) {
	if !refPattern.MatchString(ref.String()) {
		return "", reporterr.NewValidationError("id", fmt.Sprintf("invalid definition ref %q", ref.String()))
	}
	return filepath.Join(r.dir, ref.String()+definitionExt), nil
}
