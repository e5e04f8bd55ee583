package port

import (
	"context"
	"io"

	"github.com/dreschagin/monitoring-reports/internal/application/dto"
)

// DocumentRenderer turns an assembled report into a paginated file.
type DocumentRenderer interface {
	Render(ctx context.Context, doc *dto.ReportDocument, w io.Writer) error
	Extension() string
	ContentType() string
}
