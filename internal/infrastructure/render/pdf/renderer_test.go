package pdf

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/application/dto"
	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/infrastructure/render/chart"
)

func writeLogo(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.RGBA{R: 13, G: 71, B: 161, A: 255})
	}
	path := filepath.Join(t.TempDir(), "acme.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func testDocument(logo string) *dto.ReportDocument {
	start := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.July, 31, 23, 59, 59, 0, time.UTC)
	points := []entity.SeriesPoint{
		{At: start, Value: 10},
		{At: start.Add(24 * time.Hour), Value: 30},
		{At: start.Add(48 * time.Hour), Value: 20},
	}

	return &dto.ReportDocument{
		Cover: dto.CoverSection{
			Title:       "ACME São Paulo",
			Analyst:     "Ana",
			Comments:    "Stable month.",
			PeriodLabel: "2025-07",
			GeneratedAt: time.Date(2025, time.August, 1, 6, 0, 0, 0, time.UTC),
			SpanStart:   start,
			SpanEnd:     end,
			LogoPath:    logo,
		},
		Tickets: &dto.TicketSection{
			EntityID:               "42",
			PeriodStart:            "2025-07-01",
			PeriodEnd:              "2025-07-31",
			Total:                  3,
			ByStatus:               []dto.CounterDTO{{Label: "Closed", Count: 2}, {Label: "Pending", Count: 1}},
			TopTechnicians:         []dto.CounterDTO{{Label: "ana", Count: 2}},
			TopRequester:           &dto.CounterDTO{Label: "maria", Count: 2},
			AverageResolutionHours: 2.5,
			Monthly:                []entity.MonthlyCount{{Month: "2025-06", Count: 1}, {Month: "2025-07", Count: 2}},
			Contacts:               []entity.Contact{{Name: "Maria", Login: "maria", Email: "maria@acme.example"}},
			OpenTickets:            []dto.OpenTicketRow{{ID: 9, Title: "Backup failed", Status: "Pending", OpenedAt: start}},
		},
		Hosts: []dto.HostSection{
			{
				HostID: "100",
				Name:   "web-1",
				Graphs: []dto.GraphSection{
					{
						GraphID: "501", Title: "CPU load", From: start, To: end,
						Series: []dto.SeriesDTO{{
							Name:   "CPU user",
							Points: points,
							Min:    dto.ExtremumDTO{At: start, Value: 10},
							Max:    dto.ExtremumDTO{At: start.Add(24 * time.Hour), Value: 30},
						}},
						LastValues: []dto.LastValueRow{{Name: "Agent version", Value: "6.0.4", At: end}},
					},
					{GraphID: "502", Title: "Disk", Placeholder: dto.PlaceholderNoData},
					{GraphID: "503", Title: "Memory", Error: "Failed to build graph: query timeout"},
				},
			},
			{HostID: "101"},
		},
	}
}

func TestRenderer_Render(t *testing.T) {
	tests := []struct {
		name string
		logo func(t *testing.T) string
	}{
		{"with logo", writeLogo},
		{"missing logo", func(t *testing.T) string { return filepath.Join(t.TempDir(), "none.png") }},
		{"no logo", func(*testing.T) string { return "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRenderer(Config{Location: time.UTC, Chart: chart.Options{Width: 600, Height: 250}})

			var buf bytes.Buffer
			if err := r.Render(context.Background(), testDocument(tt.logo(t)), &buf); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
				t.Error("output is not a PDF")
			}
			if buf.Len() < 1024 {
				t.Errorf("suspiciously small document: %d bytes", buf.Len())
			}
		})
	}
}

func TestRenderer_TicketError(t *testing.T) {
	doc := testDocument("")
	doc.Tickets = &dto.TicketSection{EntityID: "42", Error: "Ticket data unavailable: connection refused"}

	var buf bytes.Buffer
	if err := NewRenderer(Config{}).Render(context.Background(), doc, &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
}

func TestTicketHighlights(t *testing.T) {
	tests := []struct {
		name    string
		section *dto.TicketSection
		want    []string
	}{
		{
			name:    "full",
			section: testDocument("").Tickets,
			want:    []string{"Total tickets: 3", "Average resolution time: 2.5 h", "Top requester: maria (2 tickets)"},
		},
		{
			name:    "no durations and no requester",
			section: &dto.TicketSection{Total: 2},
			want:    []string{"Total tickets: 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ticketHighlights(tt.section)
			if len(got) != len(tt.want) {
				t.Fatalf("ticketHighlights() = %q, want %q", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRenderer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	if err := NewRenderer(Config{}).Render(ctx, testDocument(""), &buf); err == nil {
		t.Fatal("expected context error")
	}
	if buf.Len() != 0 {
		t.Error("partial document written")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("Relatório mensal completo", 10); got != "Relatór..." {
		t.Errorf("truncate() = %q", got)
	}
	if r := NewRenderer(Config{}); r.Extension() != "pdf" || r.ContentType() != "application/pdf" {
		t.Error("unexpected renderer metadata")
	}
}
