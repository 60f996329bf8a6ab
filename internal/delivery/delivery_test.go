package delivery

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFilename(t *testing.T) {
	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		client   string
		from, to *time.Time
		ext      string
		want     string
	}{
		{"Acme", &from, &to, "xlsx", "Acme-2023-01-01-2023-01-31.xlsx"},
		{"Acme", &from, nil, "pdf", "Acme-2023-01-01.pdf"},
		{"Acme", nil, nil, "pdf", "Acme.pdf"},
		{"", nil, nil, "xlsx", "export.xlsx"},
	}

	for _, c := range cases {
		if got := Filename(c.client, c.from, c.to, c.ext); got != c.want {
			t.Errorf("Filename(%q) = %s, expected %s", c.client, got, c.want)
		}
	}
}

func TestBackupFilename(t *testing.T) {
	at := time.Date(2023, 3, 15, 10, 0, 0, 0, time.UTC)
	if got := BackupFilename(at, "zip"); got != "backup-2023-03-15.zip" {
		t.Errorf("Expected backup-2023-03-15.zip, got %s", got)
	}
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")

	path, err := Save(dir, "Acme.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Errorf("Content mismatch: %q", data)
	}
}
