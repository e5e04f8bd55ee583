package port

import (
	"context"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/domain/valueobject"
)

// TicketProvider читает данные сервис-деска.
type TicketProvider interface {
	Tickets(ctx context.Context, entityID string, period valueobject.DateRange) ([]entity.TicketRecord, error)
	AuthorizedContacts(ctx context.Context, entityID string) ([]entity.Contact, error)
	// MonthlyCounts returns exactly months entries ending with the month of
	// asOf, oldest first.
	MonthlyCounts(ctx context.Context, entityID string, asOf time.Time, months int) ([]entity.MonthlyCount, error)
}
