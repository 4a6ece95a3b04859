package extract

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func TestLoadCredentials(t *testing.T) {
	path := writeEnvFile(t, "EPC_USERNAME=user@example.org\nEPC_PASSWORD=secret\n")

	creds, err := LoadCredentials(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if creds.Username != "user@example.org" || creds.Password != "secret" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
}

func TestLoadCredentials_Missing(t *testing.T) {
	path := writeEnvFile(t, "EPC_USERNAME=user@example.org\n")

	if _, err := LoadCredentials(path); err == nil {
		t.Fatal("expected error when EPC_PASSWORD is absent")
	}
}

func TestLoadCredentials_NoFile(t *testing.T) {
	if _, err := LoadCredentials(filepath.Join(t.TempDir(), "nope.env")); err == nil {
		t.Fatal("expected error for missing env file")
	}
}
