package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/domain/valueobject"
)

// TicketProvider читает заявки сервис-деска из реплики его БД.
type TicketProvider struct {
	db *sql.DB
}

// NewTicketProvider создает новый провайдер заявок
func NewTicketProvider(db *sql.DB) *TicketProvider {
	return &TicketProvider{db: db}
}

// Tickets returns the tickets handled within the period, both days
// included: opened in it or resolved in it.
func (p *TicketProvider) Tickets(ctx context.Context, entityID string, period valueobject.DateRange) ([]entity.TicketRecord, error) {
	query := `
		SELECT id, title, status, category, technician, requester, origin,
		       opened_at, resolved_at, resolution_seconds
		FROM service_desk_tickets
		WHERE entity_id = $1
		  AND ((opened_at >= $2 AND opened_at < $3) OR (resolved_at >= $2 AND resolved_at < $3))
		ORDER BY opened_at ASC, id ASC
	`

	from := period.Start()
	to := period.End().AddDate(0, 0, 1)

	rows, err := p.db.QueryContext(ctx, query, entityID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]entity.TicketRecord, 0)
	for rows.Next() {
		var (
			t          entity.TicketRecord
			status     int
			title      sql.NullString
			category   sql.NullString
			technician sql.NullString
			requester  sql.NullString
			origin     sql.NullString
			resolvedAt sql.NullTime
			resolution sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &title, &status, &category, &technician, &requester, &origin,
			&t.OpenedAt, &resolvedAt, &resolution); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}

		t.Title = title.String
		t.Status = entity.TicketStatus(status)
		t.Category = category.String
		t.Technician = technician.String
		t.Requester = requester.String
		t.Origin = origin.String
		if resolvedAt.Valid {
			at := resolvedAt.Time
			t.ResolvedAt = &at
		}
		if resolution.Valid && resolution.Int64 > 0 {
			t.Duration = time.Duration(resolution.Int64) * time.Second
		}

		tickets = append(tickets, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tickets, nil
}

// AuthorizedContacts returns the people allowed to open tickets.
func (p *TicketProvider) AuthorizedContacts(ctx context.Context, entityID string) ([]entity.Contact, error) {
	query := `
		SELECT name, login, COALESCE(email, '')
		FROM service_desk_entity_contacts
		WHERE entity_id = $1
		ORDER BY name ASC
	`

	rows, err := p.db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]entity.Contact, 0)
	for rows.Next() {
		var c entity.Contact
		if err := rows.Scan(&c.Name, &c.Login, &c.Email); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return contacts, nil
}

// MonthlyCounts counts handled tickets per month of opening, whatever their
// current status. Months without tickets are reported with a zero count.
func (p *TicketProvider) MonthlyCounts(ctx context.Context, entityID string, asOf time.Time, months int) ([]entity.MonthlyCount, error) {
	if months <= 0 {
		months = 6
	}

	loc := asOf.Location()
	first := time.Date(asOf.Year(), asOf.Month()-time.Month(months-1), 1, 0, 0, 0, 0, loc)
	end := time.Date(asOf.Year(), asOf.Month()+1, 1, 0, 0, 0, 0, loc)

	query := `
		SELECT to_char(date_trunc('month', opened_at), 'YYYY-MM') AS month, COUNT(*)
		FROM service_desk_tickets
		WHERE entity_id = $1 AND opened_at >= $2 AND opened_at < $3
		GROUP BY 1
		ORDER BY 1
	`

	rows, err := p.db.QueryContext(ctx, query, entityID, first, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly counts: %w", err)
	}
	defer rows.Close()

	byMonth := make(map[string]int, months)
	for rows.Next() {
		var month string
		var count int
		if err := rows.Scan(&month, &count); err != nil {
			return nil, fmt.Errorf("failed to scan monthly count: %w", err)
		}
		byMonth[month] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	out := make([]entity.MonthlyCount, 0, months)
	for i := 0; i < months; i++ {
		label := first.AddDate(0, i, 0).Format("2006-01")
		out = append(out, entity.MonthlyCount{Month: label, Count: byMonth[label]})
	}

	return out, nil
}
