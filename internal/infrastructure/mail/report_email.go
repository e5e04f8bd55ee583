package mail

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dreschagin/monitoring-reports/internal/application/port"
)

// Subject формирует тему письма с отчетом
func Subject(meta port.DeliveryMetadata) string {
	return fmt.Sprintf("Monitoring report - %s (%s to %s)", meta.Hostgroup, meta.PeriodStart, meta.PeriodEnd)
}

// commentLines splits analyst comments into lines joined with <br> in the
// body; blank comments give no lines.
func commentLines(comments string) []string {
	if strings.TrimSpace(comments) == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(comments, "\r\n", "\n"), "\n")
}

// RenderReportEmail builds the full message for one delivery request.
func RenderReportEmail(ctx context.Context, req port.DeliveryRequest, artifact []byte) (port.MailMessage, error) {
	var body bytes.Buffer
	if err := ReportBody(req.Metadata, req.ArtifactName).Render(ctx, &body); err != nil {
		return port.MailMessage{}, fmt.Errorf("render email body: %w", err)
	}

	return port.MailMessage{
		To:       req.Recipients,
		Subject:  Subject(req.Metadata),
		HTMLBody: body.String(),
		Attachments: []port.Attachment{{
			Filename:    req.ArtifactName,
			ContentType: req.ContentType,
			Data:        artifact,
		}},
	}, nil
}
