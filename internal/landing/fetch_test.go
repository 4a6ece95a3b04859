package landing

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestDownloadZip(t *testing.T) {
	payload := buildZip(t, map[string]string{"columns.csv": "column,datatype\nUPRN,integer\n"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user" || pass != "key" {
			t.Errorf("expected basic auth, got %q %q", user, pass)
		}
		w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	path, err := DownloadZip(context.Background(), server.URL, dir, "domestic-bristol.zip", "user", "key")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("downloaded file unreadable: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("downloaded content differs from served payload")
	}
}

func TestDownloadZip_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	if _, err := DownloadZip(context.Background(), server.URL, t.TempDir(), "x.zip", "", ""); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestExtractColumnsCSV(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bulk.zip")
	manifest := "column,datatype\nUPRN,integer\nLODGEMENT_DATE,date\n"
	payload := buildZip(t, map[string]string{
		"certificates.csv":    "UPRN\n1\n",
		"columns.csv":         manifest,
		"recommendations.csv": "LMK_KEY\nx\n",
	})
	if err := os.WriteFile(zipPath, payload, 0o644); err != nil {
		t.Fatalf("write zip: %v", err)
	}

	dest := filepath.Join(dir, "schemas", "domestic-columns.csv")
	if err := ExtractColumnsCSV(zipPath, dest); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("extracted file unreadable: %v", err)
	}
	if string(data) != manifest {
		t.Errorf("unexpected manifest content: %q", data)
	}
}

func TestExtractColumnsCSV_NotPresent(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bulk.zip")
	if err := os.WriteFile(zipPath, buildZip(t, map[string]string{"other.csv": "x\n"}), 0o644); err != nil {
		t.Fatalf("write zip: %v", err)
	}

	if err := ExtractColumnsCSV(zipPath, filepath.Join(dir, "out.csv")); err == nil {
		t.Fatal("expected error when columns.csv is absent")
	}
}
