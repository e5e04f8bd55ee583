package local

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
)

// maxNameAttempts bounds the numeric suffixes tried on name collisions.
const maxNameAttempts = 100

// ArtifactStore пишет файлы отчетов в управляемый каталог.
// Существующие файлы никогда не перезаписываются.
type ArtifactStore struct {
	dir string
	now func() time.Time
}

func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &ArtifactStore{dir: dir, now: time.Now}, nil
}

// Dir returns the managed output directory.
func (s *ArtifactStore) Dir() string {
	return s.dir
}

func (s *ArtifactStore) Create(ctx context.Context, baseName, ext string, write func(w io.Writer) error) (*entity.GeneratedArtifact, error) {
	ext = strings.TrimPrefix(ext, ".")
	f, name, err := s.createExclusive(baseName, ext)
	if err != nil {
		return nil, err
	}
	path := f.Name()

	buf := bufio.NewWriter(f)
	if err := write(buf); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	if err := buf.Flush(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to close %s: %w", name, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	return &entity.GeneratedArtifact{
		Name:        name,
		Path:        path,
		ContentType: contentType(ext),
		SizeBytes:   info.Size(),
		CreatedAt:   s.now(),
	}, nil
}

func (s *ArtifactStore) createExclusive(baseName, ext string) (*os.File, string, error) {
	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		name := baseName + "." + ext
		if attempt > 1 {
			name = fmt.Sprintf("%s_%d.%s", baseName, attempt, ext)
		}

		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("failed to create %s: %w", name, err)
		}
	}

	return nil, "", fmt.Errorf("no free artifact name for %s after %d attempts", baseName, maxNameAttempts)
}

func contentType(ext string) string {
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
