package business

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestData_Validate(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		data    Data
		wantErr bool
		field   string
	}{
		{"Empty", Data{}, false, ""},
		{"ValidSale", Data{Sales: []SalesRecord{{Date: day, Amount: 500, ProductID: "rice-1kg", CustomerID: "c1"}}}, false, ""},
		{"MissingProduct", Data{Sales: []SalesRecord{{Date: day, Amount: 5}}}, true, "productId"},
		{"NaNAmount", Data{Sales: []SalesRecord{{Date: day, Amount: math.NaN(), ProductID: "p"}}}, true, "amount"},
		{"NegativeStock", Data{Inventory: []InventoryRecord{{ProductID: "p", CurrentStock: -1}}}, true, "currentStock"},
		{"MaxBelowMin", Data{Inventory: []InventoryRecord{{ProductID: "p", MinStock: 10, MaxStock: 5}}}, true, "maxStock"},
		{"TransactionWithoutCustomer", Data{Transactions: []TransactionRecord{{ID: "t1", Date: day, Amount: 1}}}, true, "customerId"},
		{"CustomerWithoutID", Data{Customers: []CustomerRecord{{Name: "Asha"}}}, true, "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var inv *InvalidInputError
			if !errors.As(err, &inv) {
				t.Fatalf("expected InvalidInputError, got %T", err)
			}
			if inv.Field != tt.field {
				t.Errorf("Field = %q, want %q", inv.Field, tt.field)
			}
		})
	}
}

func TestSalesRecord_Units(t *testing.T) {
	s := SalesRecord{Amount: 120}
	if s.Units() != 1 || s.UnitPrice() != 120 {
		t.Errorf("zero quantity should count as one unit, got units=%v price=%v", s.Units(), s.UnitPrice())
	}
	s.Quantity = 4
	if s.UnitPrice() != 30 {
		t.Errorf("UnitPrice() = %v, want 30", s.UnitPrice())
	}
}
