package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/billed/internal/views"
	"github.com/pigeonworks-llc/billed/pkg/bills"
)

func TestReadReceipt(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name        string
		file        string
		content     []byte
		contentType string
	}{
		{"extension wins", "receipt.jpg", []byte("not really a jpeg"), "image/jpeg"},
		{"content sniffed without extension", "receipt", []byte("\x89PNG\r\n\x1a\n0000"), "image/png"},
		{"pdf", "doc.pdf", []byte("%PDF-1.4"), "application/pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, tt.content, 0o644); err != nil {
				t.Fatalf("Failed to write file: %v", err)
			}

			f, err := readReceipt(path)
			if err != nil {
				t.Fatalf("readReceipt failed: %v", err)
			}
			if f.Name != tt.file {
				t.Errorf("Expected name %s, got %s", tt.file, f.Name)
			}
			if f.ContentType != tt.contentType {
				t.Errorf("Expected type %s, got %s", tt.contentType, f.ContentType)
			}
		})
	}

	if _, err := readReceipt(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestPositiveDecimal(t *testing.T) {
	for _, s := range []string{"50", "12.5"} {
		if err := positiveDecimal(s); err != nil {
			t.Errorf("positiveDecimal(%q) = %v", s, err)
		}
	}
	for _, s := range []string{"", "abc", "0", "-3"} {
		if err := positiveDecimal(s); err == nil {
			t.Errorf("positiveDecimal(%q) should fail", s)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "json", false).Info("hello", "key", "value")
	if !strings.Contains(buf.String(), `"key":"value"`) {
		t.Errorf("Expected JSON output, got %s", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "text", false).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("Debug should be hidden without --debug, got %s", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "pretty", true).Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("Expected pretty debug output, got %s", buf.String())
	}
}

func TestWriteBillsTable(t *testing.T) {
	rows := []views.BillRow{
		{Bill: bills.Bill{ID: "1", Email: "a@a", Name: "Taxi", Date: "2022-07-02", Amount: decimal.NewFromInt(50), Status: bills.StatusPending}, DisplayDate: "2 Jui. 22"},
		{Bill: bills.Bill{ID: "2", Email: "b@b", Name: "Hôtel", Date: "2004-04-04", Amount: decimal.NewFromInt(400), Status: bills.StatusRefused, FileURL: "https://x/files/a.jpg", FileName: "a.jpg"}},
	}

	var buf bytes.Buffer
	if err := writeBillsTable(&buf, rows); err != nil {
		t.Fatalf("writeBillsTable() error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", buf.String())
	}
	for _, want := range []string{"a@a", "b@b", "2 Jui. 22", "2004-04-04", "50 €", "a.jpg", "Refused"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("table misses %q:\n%s", want, buf.String())
		}
	}
}
