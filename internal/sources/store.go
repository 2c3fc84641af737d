package sources

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"smartbiz-ml/internal/business"
)

// Record kinds used in the JSONL snapshot.
const (
	KindSale        = "sale"
	KindTransaction = "transaction"
	KindInventory   = "inventory"
	KindCustomer    = "customer"
	KindCompetitor  = "competitor_price"
	KindSupplier    = "supplier"
	KindStorage     = "storage"
)

// Store is a thread-safe in-memory business snapshot. It implements
// SalesProvider, InventoryProvider, CustomerStore and MarketSource.
type Store struct {
	mu      sync.RWMutex
	data    business.Data
	storage business.StorageConstraints

	// identities of append-only records
	sales map[string]bool
	txs   map[string]bool
}

func NewStore() *Store {
	return &Store{
		sales: make(map[string]bool),
		txs:   make(map[string]bool),
	}
}

func saleIdentity(s business.SalesRecord) string {
	return fmt.Sprintf("%s|%s|%d|%g|%g", s.ProductID, s.CustomerID, s.Date.UnixMicro(), s.Amount, s.Quantity)
}

func txIdentity(t business.TransactionRecord) string {
	if t.ID != "" {
		return t.ID
	}
	return fmt.Sprintf("%s|%s|%d|%g", t.CustomerID, t.ProductID, t.Date.UnixMicro(), t.Amount)
}

// upsert replaces the element with the same key or appends it.
func upsert[T any](list []T, item T, key func(T) string) []T {
	k := key(item)
	for i := range list {
		if key(list[i]) == k {
			list[i] = item
			return list
		}
	}
	return append(list, item)
}

// Append merges d into the store. Sales and transactions are deduplicated by
// identity and kept in date order; inventory, customers, competitor prices and
// suppliers are keyed and replaced by the newer record.
func (s *Store) Append(d business.Data) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, r := range d.Sales {
		if id := saleIdentity(r); !s.sales[id] {
			s.sales[id] = true
			s.data.Sales = append(s.data.Sales, r)
			added++
		}
	}
	for _, t := range d.Transactions {
		if id := txIdentity(t); !s.txs[id] {
			s.txs[id] = true
			s.data.Transactions = append(s.data.Transactions, t)
			added++
		}
	}
	for _, r := range d.Inventory {
		s.data.Inventory = upsert(s.data.Inventory, r, func(r business.InventoryRecord) string { return r.ProductID })
	}
	for _, c := range d.Customers {
		s.data.Customers = upsert(s.data.Customers, c, func(c business.CustomerRecord) string { return c.ID })
	}
	for _, p := range d.CompetitorPrices {
		s.data.CompetitorPrices = upsert(s.data.CompetitorPrices, p, func(p business.CompetitorPrice) string { return p.ProductID + "|" + p.Competitor })
	}
	for _, t := range d.Suppliers {
		s.data.Suppliers = upsert(s.data.Suppliers, t, func(t business.SupplierTerms) string { return t.ProductID })
	}

	if added > 0 {
		slices.SortStableFunc(s.data.Sales, func(a, b business.SalesRecord) int { return a.Date.Compare(b.Date) })
		slices.SortStableFunc(s.data.Transactions, func(a, b business.TransactionRecord) int { return a.Date.Compare(b.Date) })
	}
}

// SetStorageConstraints replaces the storage limits.
func (s *Store) SetStorageConstraints(c business.StorageConstraints) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storage = c
}

// Snapshot returns a copy of everything in the store.
func (s *Store) Snapshot() business.Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return business.Data{
		Sales:            slices.Clone(s.data.Sales),
		Inventory:        slices.Clone(s.data.Inventory),
		Customers:        slices.Clone(s.data.Customers),
		Transactions:     slices.Clone(s.data.Transactions),
		CompetitorPrices: slices.Clone(s.data.CompetitorPrices),
		Suppliers:        slices.Clone(s.data.Suppliers),
	}
}

// Count returns the number of records of the given kind.
func (s *Store) Count(kind string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch kind {
	case KindSale:
		return len(s.data.Sales)
	case KindTransaction:
		return len(s.data.Transactions)
	case KindInventory:
		return len(s.data.Inventory)
	case KindCustomer:
		return len(s.data.Customers)
	case KindCompetitor:
		return len(s.data.CompetitorPrices)
	case KindSupplier:
		return len(s.data.Suppliers)
	}
	return 0
}

func (s *Store) Sales(ctx context.Context) ([]business.SalesRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.Sales), nil
}

func (s *Store) Inventory(ctx context.Context) ([]business.InventoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.Inventory), nil
}

func (s *Store) Customers(ctx context.Context) ([]business.CustomerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.Customers), nil
}

func (s *Store) Transactions(ctx context.Context) ([]business.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.Transactions), nil
}

// CompetitorPrices returns the prices observed for productID, or all of them when productID is empty.
func (s *Store) CompetitorPrices(ctx context.Context, productID string) ([]business.CompetitorPrice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []business.CompetitorPrice
	for _, p := range s.data.CompetitorPrices {
		if productID == "" || p.ProductID == productID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) Suppliers(ctx context.Context) ([]business.SupplierTerms, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.Suppliers), nil
}

func (s *Store) StorageConstraints(ctx context.Context) (business.StorageConstraints, error) {
	if err := ctx.Err(); err != nil {
		return business.StorageConstraints{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storage, nil
}

// record is one line of the JSONL snapshot.
type record struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// SnapshotPath returns the JSONL file of a named snapshot.
func SnapshotPath(dir, name string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.jsonl", name))
}

// Load merges a JSONL snapshot into the store. A missing file is not an error.
func (s *Store) Load(dir, name string) error {
	file, err := os.Open(SnapshotPath(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	d, rejected, err := s.Merge(file, name)
	if err != nil {
		return err
	}
	log.Info().Str("snapshot", name).Int("rejected", rejected).Int("sales", len(d.Sales)).Int("customers", len(d.Customers)).Int("inventory", len(d.Inventory)).Msg("Loaded business snapshot")
	return nil
}

// Merge reads tagged JSONL records from r and appends them to the store,
// returning what was accepted and how many lines were rejected. Malformed
// lines and records that fail validation are logged and skipped.
func (s *Store) Merge(r io.Reader, source string) (business.Data, int, error) {
	var d business.Data
	var storage *business.StorageConstraints
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line, rejected := 0, 0
	for scanner.Scan() {
		line++
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			log.Warn().Err(err).Str("source", source).Int("line", line).Msg("Skipping invalid JSON line")
			rejected++
			continue
		}
		if err := decodeInto(&d, &storage, rec); err != nil {
			log.Warn().Err(err).Str("source", source).Int("line", line).Str("kind", rec.Kind).Msg("Skipping invalid record")
			rejected++
		}
	}
	if err := scanner.Err(); err != nil {
		return business.Data{}, rejected, fmt.Errorf("error reading %s: %w", source, err)
	}

	s.Append(d)
	if storage != nil {
		s.SetStorageConstraints(*storage)
	}
	return d, rejected, nil
}

// dropInvalid keeps the records that pass validation and counts the rest.
func dropInvalid(d business.Data, source string) (business.Data, int) {
	rejected := 0
	keep := func(kind string, err error) bool {
		if err == nil {
			return true
		}
		log.Warn().Err(err).Str("source", source).Str("kind", kind).Msg("Skipping invalid record")
		rejected++
		return false
	}
	out := d
	out.Sales = slices.DeleteFunc(slices.Clone(d.Sales), func(r business.SalesRecord) bool {
		return !keep(KindSale, business.ValidateSale(r))
	})
	out.Transactions = slices.DeleteFunc(slices.Clone(d.Transactions), func(t business.TransactionRecord) bool {
		return !keep(KindTransaction, business.ValidateTransaction(t))
	})
	out.Inventory = slices.DeleteFunc(slices.Clone(d.Inventory), func(r business.InventoryRecord) bool {
		return !keep(KindInventory, business.ValidateInventory(r))
	})
	out.Customers = slices.DeleteFunc(slices.Clone(d.Customers), func(c business.CustomerRecord) bool {
		return !keep(KindCustomer, business.ValidateCustomer(c))
	})
	return out, rejected
}

func decodeInto(d *business.Data, storage **business.StorageConstraints, r record) error {
	switch r.Kind {
	case KindSale:
		var v business.SalesRecord
		if err := json.Unmarshal(r.Data, &v); err != nil {
			return err
		}
		if err := business.ValidateSale(v); err != nil {
			return err
		}
		d.Sales = append(d.Sales, v)
	case KindTransaction:
		var v business.TransactionRecord
		if err := json.Unmarshal(r.Data, &v); err != nil {
			return err
		}
		if err := business.ValidateTransaction(v); err != nil {
			return err
		}
		d.Transactions = append(d.Transactions, v)
	case KindInventory:
		var v business.InventoryRecord
		if err := json.Unmarshal(r.Data, &v); err != nil {
			return err
		}
		if err := business.ValidateInventory(v); err != nil {
			return err
		}
		d.Inventory = append(d.Inventory, v)
	case KindCustomer:
		var v business.CustomerRecord
		if err := json.Unmarshal(r.Data, &v); err != nil {
			return err
		}
		if err := business.ValidateCustomer(v); err != nil {
			return err
		}
		d.Customers = append(d.Customers, v)
	case KindCompetitor:
		var v business.CompetitorPrice
		if err := json.Unmarshal(r.Data, &v); err != nil {
			return err
		}
		d.CompetitorPrices = append(d.CompetitorPrices, v)
	case KindSupplier:
		var v business.SupplierTerms
		if err := json.Unmarshal(r.Data, &v); err != nil {
			return err
		}
		d.Suppliers = append(d.Suppliers, v)
	case KindStorage:
		var v business.StorageConstraints
		if err := json.Unmarshal(r.Data, &v); err != nil {
			return err
		}
		*storage = &v
	default:
		return fmt.Errorf("unknown record kind %q", r.Kind)
	}
	return nil
}

// Save writes the store as a JSONL snapshot, replacing the file atomically.
func (s *Store) Save(dir, name string) error {
	d := s.Snapshot()
	storage, _ := s.StorageConstraints(context.Background())

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	path := SnapshotPath(dir, name)
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot file: %w", err)
	}
	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)

	write := func(kind string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return encoder.Encode(record{Kind: kind, Data: raw})
	}
	fail := func(err error) error {
		file.Close()
		os.Remove(tmpPath)
		return err
	}

	for _, c := range d.Customers {
		if err := write(KindCustomer, c); err != nil {
			return fail(fmt.Errorf("failed to encode customer: %w", err))
		}
	}
	for _, r := range d.Inventory {
		if err := write(KindInventory, r); err != nil {
			return fail(fmt.Errorf("failed to encode inventory: %w", err))
		}
	}
	for _, r := range d.Sales {
		if err := write(KindSale, r); err != nil {
			return fail(fmt.Errorf("failed to encode sale: %w", err))
		}
	}
	for _, t := range d.Transactions {
		if err := write(KindTransaction, t); err != nil {
			return fail(fmt.Errorf("failed to encode transaction: %w", err))
		}
	}
	for _, p := range d.CompetitorPrices {
		if err := write(KindCompetitor, p); err != nil {
			return fail(fmt.Errorf("failed to encode competitor price: %w", err))
		}
	}
	for _, t := range d.Suppliers {
		if err := write(KindSupplier, t); err != nil {
			return fail(fmt.Errorf("failed to encode supplier: %w", err))
		}
	}
	if storage != (business.StorageConstraints{}) {
		if err := write(KindStorage, storage); err != nil {
			return fail(fmt.Errorf("failed to encode storage constraints: %w", err))
		}
	}

	if err := writer.Flush(); err != nil {
		return fail(fmt.Errorf("failed to flush writer: %w", err))
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}

	log.Info().Str("snapshot", name).Int("sales", len(d.Sales)).Int("transactions", len(d.Transactions)).Msg("Business snapshot saved")
	return nil
}
