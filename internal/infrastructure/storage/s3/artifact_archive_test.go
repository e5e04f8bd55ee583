package s3

import (
	"context"
	"testing"
)

func TestArtifactArchive_PublicURL(t *testing.T) {
	tests := []struct {
		name    string
		archive ArtifactArchive
		want    string
	}{
		{
			name:    "aws",
			archive: ArtifactArchive{bucket: "reports", region: "sa-east-1"},
			want:    "https://reports.s3.sa-east-1.amazonaws.com/reports/acme/2025/08/acme%20corp.pdf",
		},
		{
			name:    "path style",
			archive: ArtifactArchive{bucket: "reports", endpoint: "http://minio:9000", usePathStyle: true},
			want:    "http://minio:9000/reports/reports/acme/2025/08/acme%20corp.pdf",
		},
		{
			name:    "virtual host",
			archive: ArtifactArchive{bucket: "reports", endpoint: "https://storage.example.com"},
			want:    "https://reports.storage.example.com/reports/acme/2025/08/acme%20corp.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.archive.publicURL("reports/acme/2025/08/acme corp.pdf"); got != tt.want {
				t.Errorf("publicURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewArtifactArchive_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing bucket", Config{}},
		{"unknown url mode", Config{Bucket: "reports", URLMode: "signed"}},
		{"partial credentials", Config{Bucket: "reports", SecretAccessKey: "secret"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewArtifactArchive(ctx, tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestArtifactArchive_PutObjectRequiresKey(t *testing.T) {
	a := &ArtifactArchive{bucket: "reports"}
	if _, err := a.PutObject(context.Background(), " ", "application/pdf", nil); err == nil {
		t.Fatal("expected error for blank key")
	}
}
