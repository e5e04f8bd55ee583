package port

import (
	"context"
	"time"
)

// DeliveryMetadata is the display data of a report email.
type DeliveryMetadata struct {
	DefinitionID string
	Hostgroup    string
	Analyst      string
	Comments     string
	PeriodStart  string
	PeriodEnd    string
	PeriodLabel  string
	ArchiveURL   string
	GeneratedAt  time.Time
}

// DeliveryRequest is handed to the outbound delivery worker.
type DeliveryRequest struct {
	ID           string
	Recipients   []string
	ArtifactPath string
	ArtifactName string
	ContentType  string
	Metadata     DeliveryMetadata
}

// DeliveryQueue schedules an email without waiting for it to be sent.
type DeliveryQueue interface {
	Enqueue(ctx context.Context, req DeliveryRequest) error
}

// Attachment is a file carried by an email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
	// ContentID marks the attachment as inline when set.
	ContentID string
}

// MailMessage is a rendered email.
type MailMessage struct {
	To          []string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// Mailer sends one email.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}
