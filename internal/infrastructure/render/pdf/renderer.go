// Package pdf renders assembled reports as PDF documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/dreschagin/monitoring-reports/internal/application/dto"
	"github.com/dreschagin/monitoring-reports/internal/infrastructure/render/chart"
)

const (
	pageMargin   = 15.0
	lineHeight   = 6.0
	dateLayout   = "2006-01-02"
	stampLayout  = "2006-01-02 15:04"
	contentWidth = 210.0 - 2*pageMargin
)

type Config struct {
	// Location is used for every printed timestamp.
	Location *time.Location
	Chart    chart.Options
}

// Renderer реализует port.DocumentRenderer поверх fpdf.
type Renderer struct {
	config Config
}

func NewRenderer(config Config) *Renderer {
	if config.Location == nil {
		config.Location = time.Local
	}
	return &Renderer{config: config}
}

func (r *Renderer) Extension() string   { return "pdf" }
func (r *Renderer) ContentType() string { return "application/pdf" }

// Render writes the whole document. Chart failures are printed inline in the
// affected section; only a failure of the PDF writer itself is returned.
func (r *Renderer) Render(ctx context.Context, doc *dto.ReportDocument, w io.Writer) error {
	p := &page{
		pdf:    fpdf.New("P", "mm", "A4", ""),
		config: r.config,
	}
	p.tr = p.pdf.UnicodeTranslatorFromDescriptor("")

	p.pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	p.pdf.SetAutoPageBreak(true, pageMargin+5)
	p.pdf.SetTitle(doc.Cover.Title, true)
	p.pdf.SetAuthor(doc.Cover.Analyst, true)
	p.pdf.SetCreationDate(doc.Cover.GeneratedAt)
	p.pdf.SetFooterFunc(func() {
		if p.pdf.PageNo() <= 1 {
			return
		}
		p.pdf.SetY(-12)
		p.pdf.SetFont("Helvetica", "I", 8)
		p.pdf.SetTextColor(120, 120, 120)
		p.pdf.CellFormat(0, 6, fmt.Sprintf("Page %d", p.pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	p.cover(doc.Cover)

	if doc.Tickets != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.tickets(doc.Tickets)
	}

	for _, host := range doc.Hosts {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.host(host)
	}

	if err := p.pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := p.pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

type page struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	config Config
	images int
}

func (p *page) stamp(t time.Time) string {
	return t.In(p.config.Location).Format(stampLayout)
}

func (p *page) day(t time.Time) string {
	return t.In(p.config.Location).Format(dateLayout)
}

func (p *page) cover(c dto.CoverSection) {
	p.pdf.AddPage()

	if !p.logo(c.LogoPath) {
		p.pdf.SetDrawColor(180, 180, 180)
		p.pdf.SetTextColor(150, 150, 150)
		p.pdf.SetFont("Helvetica", "B", 12)
		p.pdf.SetXY(pageMargin+contentWidth/2-30, 40)
		p.pdf.CellFormat(60, 30, "CLIENT LOGO", "1", 1, "CM", false, 0, "")
	}

	p.pdf.SetY(95)
	p.pdf.SetTextColor(20, 20, 20)
	p.pdf.SetFont("Helvetica", "B", 22)
	p.pdf.MultiCell(0, 11, p.tr(c.Title), "", "C", false)
	p.pdf.Ln(4)

	p.pdf.SetFont("Helvetica", "", 12)
	p.pdf.CellFormat(0, 8, p.tr(fmt.Sprintf("Period: %s to %s", p.day(c.SpanStart), p.day(c.SpanEnd))), "", 1, "C", false, 0, "")
	if c.Analyst != "" {
		p.pdf.CellFormat(0, 8, p.tr("Analyst: "+c.Analyst), "", 1, "C", false, 0, "")
	}
	p.pdf.CellFormat(0, 8, "Generated at: "+p.stamp(c.GeneratedAt), "", 1, "C", false, 0, "")

	if strings.TrimSpace(c.Comments) != "" {
		p.pdf.Ln(10)
		p.pdf.SetFont("Helvetica", "I", 11)
		p.pdf.MultiCell(0, lineHeight, p.tr(c.Comments), "", "C", false)
	}
}

// logo draws the client logo and reports whether it was usable.
func (p *page) logo(path string) bool {
	if path == "" {
		return false
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return false
	}

	imageType := strings.ToUpper(format)
	if imageType == "JPEG" {
		imageType = "JPG"
	}
	opts := fpdf.ImageOptions{ImageType: imageType}
	name := "logo" + filepath.Ext(path)
	p.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(raw))
	if p.pdf.Err() {
		p.pdf.ClearError()
		return false
	}

	width := 60.0
	height := width * float64(cfg.Height) / float64(cfg.Width)
	if height > 40 {
		height = 40
		width = height * float64(cfg.Width) / float64(cfg.Height)
	}
	p.pdf.ImageOptions(name, pageMargin+(contentWidth-width)/2, 35, width, height, false, opts, 0, "")
	return true
}

func (p *page) heading(text string, size float64) {
	p.pdf.SetFont("Helvetica", "B", size)
	p.pdf.SetTextColor(13, 71, 161)
	p.pdf.MultiCell(0, size/2+2, p.tr(text), "", "L", false)
	p.pdf.SetTextColor(20, 20, 20)
	p.pdf.Ln(1)
}

func (p *page) paragraph(text string) {
	p.pdf.SetFont("Helvetica", "", 10)
	p.pdf.MultiCell(0, lineHeight, p.tr(text), "", "L", false)
}

func (p *page) notice(text string, red bool) {
	p.pdf.SetFont("Helvetica", "I", 10)
	if red {
		p.pdf.SetTextColor(198, 40, 40)
	} else {
		p.pdf.SetTextColor(110, 110, 110)
	}
	p.pdf.MultiCell(0, lineHeight, p.tr(text), "1", "C", false)
	p.pdf.SetTextColor(20, 20, 20)
	p.pdf.Ln(3)
}

// table prints a simple bordered table; widths are fractions of the page.
func (p *page) table(header []string, widths []float64, rows [][]string) {
	p.pdf.SetFont("Helvetica", "B", 9)
	p.pdf.SetFillColor(230, 236, 245)
	for i, h := range header {
		p.pdf.CellFormat(widths[i]*contentWidth, 7, p.tr(h), "1", 0, "L", true, 0, "")
	}
	p.pdf.Ln(-1)

	p.pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		for i, cell := range row {
			p.pdf.CellFormat(widths[i]*contentWidth, 6, p.tr(truncate(cell, int(widths[i]*110))), "1", 0, "L", false, 0, "")
		}
		p.pdf.Ln(-1)
	}
	p.pdf.Ln(4)
}

func (p *page) image(png []byte, height float64) {
	p.images++
	name := fmt.Sprintf("img%d", p.images)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	p.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))

	_, pageHeight := p.pdf.GetPageSize()
	if p.pdf.GetY()+height > pageHeight-pageMargin-5 {
		p.pdf.AddPage()
	}
	p.pdf.ImageOptions(name, pageMargin, p.pdf.GetY(), contentWidth, height, true, opts, 0, "")
	p.pdf.Ln(3)
}

// ticketHighlights are the summary lines printed above the counter tables.
func ticketHighlights(t *dto.TicketSection) []string {
	lines := []string{fmt.Sprintf("Total tickets: %d", t.Total)}
	if t.AverageResolutionHours > 0 {
		lines = append(lines, fmt.Sprintf("Average resolution time: %.1f h", t.AverageResolutionHours))
	}
	if t.TopRequester != nil {
		lines = append(lines, fmt.Sprintf("Top requester: %s (%d tickets)", t.TopRequester.Label, t.TopRequester.Count))
	}
	return lines
}

func (p *page) tickets(t *dto.TicketSection) {
	p.pdf.AddPage()
	p.heading("Service desk", 16)
	if t.PeriodStart != "" {
		p.paragraph(fmt.Sprintf("Entity %s, tickets handled from %s to %s.", t.EntityID, t.PeriodStart, t.PeriodEnd))
		p.pdf.Ln(2)
	}

	if t.Error != "" {
		p.notice(t.Error, true)
		return
	}

	for _, line := range ticketHighlights(t) {
		p.paragraph(line)
	}
	p.pdf.Ln(3)

	counters := []struct {
		title string
		rows  []dto.CounterDTO
	}{
		{"Tickets by status", t.ByStatus},
		{"Top technicians", t.TopTechnicians},
		{"Top categories", t.TopCategories},
		{"Tickets by origin", t.ByOrigin},
	}
	for _, c := range counters {
		if len(c.rows) == 0 {
			continue
		}
		p.heading(c.title, 12)
		rows := make([][]string, 0, len(c.rows))
		for _, row := range c.rows {
			rows = append(rows, []string{row.Label, fmt.Sprintf("%d", row.Count)})
		}
		p.table([]string{"", "Tickets"}, []float64{0.8, 0.2}, rows)
	}

	if len(t.Monthly) > 0 {
		p.heading("Treated tickets, last months", 12)
		months := make([]string, len(t.Monthly))
		counts := make([]int, len(t.Monthly))
		for i, m := range t.Monthly {
			months[i] = m.Month
			counts[i] = m.Count
		}
		png, err := chart.MonthlyBarsPNG(months, counts, p.config.Chart)
		if err != nil {
			rows := make([][]string, 0, len(t.Monthly))
			for _, m := range t.Monthly {
				rows = append(rows, []string{m.Month, fmt.Sprintf("%d", m.Count)})
			}
			p.table([]string{"Month", "Tickets"}, []float64{0.5, 0.5}, rows)
		} else {
			p.image(png, 65)
		}
	}

	p.heading("Authorized contacts", 12)
	if len(t.Contacts) == 0 {
		p.notice("No authorized contacts registered", false)
	} else {
		rows := make([][]string, 0, len(t.Contacts))
		for _, c := range t.Contacts {
			rows = append(rows, []string{c.Name, c.Login, c.Email})
		}
		p.table([]string{"Name", "Login", "Email"}, []float64{0.4, 0.2, 0.4}, rows)
	}

	p.heading("Open tickets", 12)
	if len(t.OpenTickets) == 0 {
		p.notice("No open tickets", false)
		return
	}
	rows := make([][]string, 0, len(t.OpenTickets))
	for _, o := range t.OpenTickets {
		rows = append(rows, []string{
			fmt.Sprintf("%d", o.ID),
			o.Title,
			o.Status,
			o.Technician,
			p.stamp(o.OpenedAt),
		})
	}
	p.table([]string{"ID", "Title", "Status", "Technician", "Opened"}, []float64{0.1, 0.36, 0.18, 0.18, 0.18}, rows)
}

func (p *page) host(h dto.HostSection) {
	p.pdf.AddPage()
	name := h.Name
	if name == "" {
		name = h.HostID
	}
	p.heading("Host: "+name, 16)

	if len(h.Graphs) == 0 {
		p.notice("No graphs requested for this host", false)
		return
	}

	for _, g := range h.Graphs {
		p.graph(g)
	}
}

func (p *page) graph(g dto.GraphSection) {
	p.heading(g.Title, 12)
	if !g.From.IsZero() && !g.To.IsZero() {
		p.pdf.SetFont("Helvetica", "", 8)
		p.pdf.CellFormat(0, 5, p.stamp(g.From)+" - "+p.stamp(g.To), "", 1, "L", false, 0, "")
	}

	switch {
	case g.Error != "":
		p.notice(g.Error, true)
	case g.Placeholder != "":
		p.notice(g.Placeholder, false)
	default:
		png, err := chart.SeriesPNG(g, p.config.Chart)
		if err != nil {
			p.notice("Failed to draw graph: "+err.Error(), true)
			break
		}
		p.image(png, 75)

		rows := make([][]string, 0, len(g.Series))
		for _, s := range g.Series {
			rows = append(rows, []string{
				s.Name,
				chart.FormatValue(s.Min.Value) + " (" + p.stamp(s.Min.At) + ")",
				chart.FormatValue(s.Max.Value) + " (" + p.stamp(s.Max.At) + ")",
			})
		}
		p.table([]string{"Item", "Min", "Max"}, []float64{0.4, 0.3, 0.3}, rows)
	}

	if len(g.LastValues) > 0 {
		rows := make([][]string, 0, len(g.LastValues))
		for _, v := range g.LastValues {
			rows = append(rows, []string{v.Name, v.Value, p.stamp(v.At)})
		}
		p.table([]string{"Item", "Last value", "At"}, []float64{0.35, 0.45, 0.2}, rows)
	}
}

func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
