package port

import (
	"context"
	"io"

	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
)

// ArtifactStore creates report files under the managed output location.
type ArtifactStore interface {
	// Create writes a new artifact named baseName + "." + ext through write.
	// An existing file is never overwritten; a partially written file is
	// removed when write fails.
	Create(ctx context.Context, baseName, ext string, write func(w io.Writer) error) (*entity.GeneratedArtifact, error)
}

// ArtifactArchive определяет интерфейс для архивного хранения отчетов.
type ArtifactArchive interface {
	// PutObject загружает объект и возвращает URL для чтения.
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)
}
