package business

import (
	"fmt"
	"math"
)

// InvalidInputError reports a malformed record or request parameter.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Invalid builds an InvalidInputError.
func Invalid(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func badNumber(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// ValidateSale rejects sales that would poison downstream aggregates.
func ValidateSale(s SalesRecord) error {
	switch {
	case s.ProductID == "":
		return Invalid("productId", "missing")
	case s.Date.IsZero():
		return Invalid("date", "missing for product %s", s.ProductID)
	case badNumber(s.Amount) || s.Amount < 0:
		return Invalid("amount", "must be a non-negative number, got %v", s.Amount)
	case badNumber(s.Quantity) || s.Quantity < 0:
		return Invalid("quantity", "must be a non-negative number, got %v", s.Quantity)
	}
	return nil
}

// ValidateTransaction rejects transactions without a customer, date or sane amount.
func ValidateTransaction(t TransactionRecord) error {
	switch {
	case t.CustomerID == "":
		return Invalid("customerId", "missing on transaction %q", t.ID)
	case t.Date.IsZero():
		return Invalid("date", "missing on transaction %q", t.ID)
	case badNumber(t.Amount) || t.Amount < 0:
		return Invalid("amount", "must be a non-negative number, got %v", t.Amount)
	}
	return nil
}

// ValidateInventory rejects negative or inconsistent stock levels.
func ValidateInventory(r InventoryRecord) error {
	switch {
	case r.ProductID == "":
		return Invalid("productId", "missing")
	case r.CurrentStock < 0:
		return Invalid("currentStock", "negative stock %d for %s", r.CurrentStock, r.ProductID)
	case r.MinStock < 0:
		return Invalid("minStock", "negative value %d for %s", r.MinStock, r.ProductID)
	case r.MaxStock < 0:
		return Invalid("maxStock", "negative value %d for %s", r.MaxStock, r.ProductID)
	case r.MaxStock > 0 && r.MaxStock < r.MinStock:
		return Invalid("maxStock", "%d below minStock %d for %s", r.MaxStock, r.MinStock, r.ProductID)
	case badNumber(r.UnitCost) || r.UnitCost < 0:
		return Invalid("unitCost", "must be a non-negative number for %s", r.ProductID)
	case badNumber(r.UnitPrice) || r.UnitPrice < 0:
		return Invalid("unitPrice", "must be a non-negative number for %s", r.ProductID)
	}
	return nil
}

// ValidateCustomer rejects customers without an ID.
func ValidateCustomer(c CustomerRecord) error {
	if c.ID == "" {
		return Invalid("id", "customer %q has no id", c.Name)
	}
	return nil
}

// Validate checks every record of the snapshot and returns the first problem found.
func (d Data) Validate() error {
	for i, s := range d.Sales {
		if err := ValidateSale(s); err != nil {
			return fmt.Errorf("sales[%d]: %w", i, err)
		}
	}
	for i, t := range d.Transactions {
		if err := ValidateTransaction(t); err != nil {
			return fmt.Errorf("transactions[%d]: %w", i, err)
		}
	}
	for i, r := range d.Inventory {
		if err := ValidateInventory(r); err != nil {
			return fmt.Errorf("inventory[%d]: %w", i, err)
		}
	}
	for i, c := range d.Customers {
		if err := ValidateCustomer(c); err != nil {
			return fmt.Errorf("customers[%d]: %w", i, err)
		}
	}
	for i, p := range d.CompetitorPrices {
		if p.ProductID == "" || badNumber(p.Price) || p.Price <= 0 {
			return fmt.Errorf("competitorPrices[%d]: %w", i, Invalid("price", "needs a product and a positive price"))
		}
	}
	for i, s := range d.Suppliers {
		if s.ProductID == "" || s.LeadTimeDays < 0 || s.OrderCost < 0 {
			return fmt.Errorf("suppliers[%d]: %w", i, Invalid("supplier", "needs a product and non-negative terms"))
		}
	}
	return nil
}
