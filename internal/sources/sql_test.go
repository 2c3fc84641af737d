package sources

import (
	"context"
	"errors"
	"testing"

	"smartbiz-ml/internal/business"
)

func TestToMySQLDSN(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
		wantErr  bool
	}{
		{"MariaDBURL", "mariadb://shop:secret@db:3306/smartbiz", "shop:secret@tcp(db:3306)/smartbiz?parseTime=true&loc=UTC&interpolateParams=true", false},
		{"MySQLURL", "mysql://shop@localhost/smartbiz", "shop:@tcp(localhost)/smartbiz?parseTime=true&loc=UTC&interpolateParams=true", false},
		{"NativeDSN", "shop:pw@tcp(db)/smartbiz?parseTime=true", "shop:pw@tcp(db)/smartbiz?parseTime=true", false},
		{"MissingDatabase", "mysql://shop@localhost/", "", true},
		{"Empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toMySQLDSN(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("toMySQLDSN() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("toMySQLDSN() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOpenSQL_RejectsTableNames(t *testing.T) {
	tables := DefaultTables
	tables.Sales = "sales; DROP TABLE customers"
	_, err := OpenSQL("mysql://u:p@localhost/db", tables)
	var inv *business.InvalidInputError
	if !errors.As(err, &inv) || inv.Field != "table" {
		t.Errorf("expected invalid table error, got %v", err)
	}
}

func TestLoadSnapshot_FallsBackToJSONL(t *testing.T) {
	dir := t.TempDir()
	src := NewStore()
	src.Append(business.Data{Customers: []business.CustomerRecord{{ID: "c1", Name: "Asha"}}})
	if err := src.Save(dir, "shop"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	dst := NewStore()
	if err := LoadSnapshot(context.Background(), dst, "", dir, "shop"); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if dst.Count(KindCustomer) != 1 {
		t.Errorf("expected the JSONL customer, got %d", dst.Count(KindCustomer))
	}
}

func TestLoadSnapshot_BadDSN(t *testing.T) {
	err := LoadSnapshot(context.Background(), NewStore(), "mysql://localhost/", t.TempDir(), "shop")
	var inv *business.InvalidInputError
	if !errors.As(err, &inv) || inv.Field != "dsn" {
		t.Errorf("expected invalid dsn, got %v", err)
	}
}
