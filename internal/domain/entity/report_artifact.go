package entity

import "time"

// GeneratedArtifact references a written report file. Write-once.
type GeneratedArtifact struct {
	Name        string
	Path        string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
	ArchiveURL  string
}
