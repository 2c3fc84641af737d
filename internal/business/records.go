package business

import (
	"time"
)

// SalesRecord is a single sale as reported by the point-of-sale history.
type SalesRecord struct {
	Date       time.Time `json:"date"`
	Amount     float64   `json:"amount"`
	ProductID  string    `json:"productId"`
	CustomerID string    `json:"customerId"`
	// Quantity is the number of units sold. Zero means a single unit.
	Quantity float64 `json:"quantity,omitempty"`
}

// Units returns the effective number of units of the sale.
func (s SalesRecord) Units() float64 {
	if s.Quantity <= 0 {
		return 1
	}
	return s.Quantity
}

// UnitPrice returns the amount paid per unit.
func (s SalesRecord) UnitPrice() float64 {
	return s.Amount / s.Units()
}

// TransactionRecord is a customer purchase as seen by the CRM.
type TransactionRecord struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	Amount     float64   `json:"amount"`
	Date       time.Time `json:"date"`
	ProductID  string    `json:"productId"`
}

// InventoryRecord is the stock position of one product.
type InventoryRecord struct {
	ProductID    string  `json:"productId"`
	Name         string  `json:"name,omitempty"`
	CurrentStock int     `json:"currentStock"`
	MinStock     int     `json:"minStock"`
	MaxStock     int     `json:"maxStock"`
	UnitCost     float64 `json:"unitCost,omitempty"`
	UnitPrice    float64 `json:"unitPrice,omitempty"`
}

// DisplayName returns the product name, falling back to its ID.
func (r InventoryRecord) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ProductID
}

// CustomerRecord is the static reference data of a customer.
type CustomerRecord struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	RegistrationDate time.Time `json:"registrationDate"`
}

// Data is a point-in-time snapshot of everything the engine trains on.
type Data struct {
	Sales            []SalesRecord       `json:"sales"`
	Inventory        []InventoryRecord   `json:"inventory"`
	Customers        []CustomerRecord    `json:"customers"`
	Transactions     []TransactionRecord `json:"transactions"`
	CompetitorPrices []CompetitorPrice   `json:"competitorPrices,omitempty"`
	Suppliers        []SupplierTerms     `json:"suppliers,omitempty"`
}

// TransactionsFor returns the transactions belonging to one customer.
func TransactionsFor(txs []TransactionRecord, customerID string) []TransactionRecord {
	var out []TransactionRecord
	for _, t := range txs {
		if t.CustomerID == customerID {
			out = append(out, t)
		}
	}
	return out
}

// SalesFor returns the sales of one product.
func SalesFor(sales []SalesRecord, productID string) []SalesRecord {
	var out []SalesRecord
	for _, s := range sales {
		if s.ProductID == productID {
			out = append(out, s)
		}
	}
	return out
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
