package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
)

// DSNs carry characters that need quoting in a .env file.
func TestDotenvKeepsQuotedDSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "SMARTBIZ_DSN='shop:p@ss#1@tcp(db:3306)/smartbiz?parseTime=true'\nSMARTBIZ_SNAPSHOT=\"march sales\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatalf("reading env: %v", err)
	}

	if want := "shop:p@ss#1@tcp(db:3306)/smartbiz?parseTime=true"; env["SMARTBIZ_DSN"] != want {
		t.Errorf("SMARTBIZ_DSN = %q, want %q", env["SMARTBIZ_DSN"], want)
	}
	if want := "march sales"; env["SMARTBIZ_SNAPSHOT"] != want {
		t.Errorf("SMARTBIZ_SNAPSHOT = %q, want %q", env["SMARTBIZ_SNAPSHOT"], want)
	}
}
