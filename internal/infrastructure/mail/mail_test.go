package mail

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/application/port"
)

func TestRenderReportEmail(t *testing.T) {
	req := port.DeliveryRequest{
		Recipients:   []string{"ops@acme.example"},
		ArtifactName: "acme_20250801_060000.pdf",
		ContentType:  "application/pdf",
		Metadata: port.DeliveryMetadata{
			Hostgroup:   "ACME <Prod>",
			Analyst:     "Ana",
			Comments:    "Disk usage grew.\nPlan an upgrade.",
			PeriodStart: "2025-07-01",
			PeriodEnd:   "2025-07-31",
			ArchiveURL:  "https://archive.example/reports/acme.pdf",
			GeneratedAt: time.Date(2025, time.August, 1, 6, 0, 0, 0, time.UTC),
		},
	}

	msg, err := RenderReportEmail(context.Background(), req, []byte("%PDF"))
	if err != nil {
		t.Fatalf("RenderReportEmail() error = %v", err)
	}

	if msg.Subject != "Monitoring report - ACME <Prod> (2025-07-01 to 2025-07-31)" {
		t.Errorf("subject = %q", msg.Subject)
	}
	for _, fragment := range []string{
		"ACME &lt;Prod&gt;",
		"Analyst: Ana",
		"Disk usage grew.<br>Plan an upgrade.",
		"acme_20250801_060000.pdf",
		`href="https://archive.example/reports/acme.pdf"`,
		"2025-08-01 06:00",
	} {
		if !strings.Contains(msg.HTMLBody, fragment) {
			t.Errorf("body does not contain %q", fragment)
		}
	}
	if strings.Contains(msg.HTMLBody, "<Prod>") {
		t.Error("hostgroup is not escaped")
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Filename != req.ArtifactName {
		t.Errorf("attachments = %+v", msg.Attachments)
	}
}

func TestReportBody_OptionalParts(t *testing.T) {
	var b strings.Builder
	if err := ReportBody(port.DeliveryMetadata{Hostgroup: "ACME"}, "").Render(context.Background(), &b); err != nil {
		t.Fatal(err)
	}
	body := b.String()
	for _, absent := range []string{"Analyst:", "<blockquote", "Attachment:", "href="} {
		if strings.Contains(body, absent) {
			t.Errorf("body unexpectedly contains %q", absent)
		}
	}
	if !strings.Contains(body, "generated automatically.</p>") {
		t.Error("footer without timestamp is missing")
	}
}

func TestReportBody_UntrustedInput(t *testing.T) {
	meta := port.DeliveryMetadata{
		Hostgroup:  "ACME",
		Comments:   "line one\r\n<script>alert(1)</script>",
		ArchiveURL: "javascript:alert(1)",
	}

	var b strings.Builder
	if err := ReportBody(meta, "report.pdf").Render(context.Background(), &b); err != nil {
		t.Fatal(err)
	}
	body := b.String()

	if strings.Contains(body, "<script>") || !strings.Contains(body, "line one<br>&lt;script&gt;") {
		t.Errorf("comments not escaped: %s", body)
	}
	if strings.Contains(body, `href="javascript:`) {
		t.Error("unsafe archive URL rendered as a link target")
	}
}

func TestCommentLines(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{" \n\t", 0},
		{"single", 1},
		{"a\nb", 2},
		{"a\r\nb\r\nc", 3},
	}
	for _, tt := range tests {
		if got := commentLines(tt.in); len(got) != tt.want {
			t.Errorf("commentLines(%q) = %q, want %d lines", tt.in, got, tt.want)
		}
	}
}

func TestSMTPMailer_BuildMessage(t *testing.T) {
	m := NewSMTPMailer(Config{Host: "smtp.example.com", Port: "587", From: "reports@example.com", FromName: "Relatórios"})
	m.now = func() time.Time { return time.Date(2025, time.August, 1, 6, 0, 0, 0, time.UTC) }

	attachment := []byte(strings.Repeat("A", 200))
	raw, err := m.buildMessage(port.MailMessage{
		To:       []string{"ops@acme.example", "noc@acme.example\r\nBcc: evil@example.com"},
		Subject:  "Monitoring report\r\nBcc: evil@example.com",
		HTMLBody: "<p>hello</p>",
		Attachments: []port.Attachment{
			{Filename: "report.pdf", ContentType: "application/pdf", Data: attachment},
			{Filename: "logo.png", ContentType: "image/png", Data: []byte("png"), ContentID: "logo"},
		},
	})
	if err != nil {
		t.Fatalf("buildMessage() error = %v", err)
	}
	msg := string(raw)

	headerEnd := strings.Index(msg, "\r\n\r\n")
	if headerEnd < 0 {
		t.Fatal("no header terminator")
	}
	for _, line := range strings.Split(msg[:headerEnd], "\r\n") {
		if strings.HasPrefix(line, "Bcc:") {
			t.Fatalf("header injection: %q", line)
		}
	}

	for _, fragment := range []string{
		"From: =?utf-8?q?Relat=C3=B3rios?= <reports@example.com>",
		"To: ops@acme.example, noc@acme.example",
		"Date: Fri, 01 Aug 2025 06:00:00 +0000",
		"@example.com>",
		"Content-Type: multipart/mixed; boundary=",
		`Content-Disposition: attachment; filename=report.pdf`,
		`Content-Disposition: inline; filename=logo.png`,
		"Content-Id: <logo>",
		base64.StdEncoding.EncodeToString([]byte("<p>hello</p>")),
	} {
		if !strings.Contains(msg, fragment) {
			t.Errorf("message does not contain %q", fragment)
		}
	}

	for _, line := range strings.Split(msg, "\r\n") {
		if len(line) > 76 && !strings.Contains(line, ":") {
			t.Errorf("body line longer than 76 chars: %d", len(line))
		}
	}
}

func TestSMTPMailer_SendRequiresRecipients(t *testing.T) {
	m := NewSMTPMailer(Config{Host: "localhost", Port: "25", From: "reports@example.com"})
	if err := m.Send(context.Background(), port.MailMessage{Subject: "x"}); err == nil {
		t.Fatal("expected error without recipients")
	}
}

func TestMessageDomain(t *testing.T) {
	tests := map[string]string{
		"reports@example.com": "example.com",
		"reports@":            "localhost",
		"reports":             "localhost",
	}
	for from, want := range tests {
		if got := messageDomain(from); got != want {
			t.Errorf("messageDomain(%q) = %q, want %q", from, got, want)
		}
	}
}
