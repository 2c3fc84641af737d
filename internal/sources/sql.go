package sources

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"smartbiz-ml/internal/business"
)

var tableName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Tables names the four record tables read by SQLLoader.
type Tables struct {
	Sales        string
	Transactions string
	Inventory    string
	Customers    string
}

// DefaultTables are the table names used when none are configured.
var DefaultTables = Tables{Sales: "sales", Transactions: "transactions", Inventory: "inventory", Customers: "customers"}

func (t Tables) validate() error {
	for _, name := range []string{t.Sales, t.Transactions, t.Inventory, t.Customers} {
		if !tableName.MatchString(name) {
			return business.Invalid("table", "invalid table name %q", name)
		}
	}
	return nil
}

// SQLLoader reads a business snapshot from MySQL or MariaDB.
type SQLLoader struct {
	db     *sql.DB
	tables Tables
}

// OpenSQL opens a mysql:// or mariadb:// URL, or a native driver DSN.
func OpenSQL(dsn string, tables Tables) (*SQLLoader, error) {
	if err := tables.validate(); err != nil {
		return nil, err
	}
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &SQLLoader{db: db, tables: tables}, nil
}

func (l *SQLLoader) Close() error {
	return l.db.Close()
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user, pass := "", ""
		if u.User != nil {
			user = u.User.Username()
			pass, _ = u.User.Password()
		}
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || u.Host == "" || db == "" {
			return "", business.Invalid("dsn", "incomplete dsn, need user, host and database")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true", user, pass, u.Host, db), nil
	}
	if dsn == "" {
		return "", business.Invalid("dsn", "missing")
	}
	return dsn, nil
}

// LoadInto reads every record table and appends the rows to store.
func (l *SQLLoader) LoadInto(ctx context.Context, store *Store) error {
	var d business.Data
	var err error

	if d.Customers, err = l.customers(ctx); err != nil {
		return fmt.Errorf("load customers: %w", err)
	}
	if d.Inventory, err = l.inventory(ctx); err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}
	if d.Sales, err = l.sales(ctx); err != nil {
		return fmt.Errorf("load sales: %w", err)
	}
	if d.Transactions, err = l.transactions(ctx); err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	d, rejected := dropInvalid(d, "database")
	store.Append(d)
	log.Info().Int("rejected", rejected).Int("sales", len(d.Sales)).Int("transactions", len(d.Transactions)).Int("customers", len(d.Customers)).Int("inventory", len(d.Inventory)).Msg("Loaded business snapshot from database")
	return nil
}

// LoadSnapshot fills store from the database when dsn is set, otherwise from
// the JSONL snapshot name under dir.
func LoadSnapshot(ctx context.Context, store *Store, dsn, dir, name string) error {
	if dsn == "" {
		return store.Load(dir, name)
	}
	loader, err := OpenSQL(dsn, DefaultTables)
	if err != nil {
		return err
	}
	defer loader.Close()
	return loader.LoadInto(ctx, store)
}

func (l *SQLLoader) sales(ctx context.Context) ([]business.SalesRecord, error) {
	q := fmt.Sprintf("SELECT sale_date, amount, product_id, COALESCE(customer_id, ''), COALESCE(quantity, 0) FROM %s ORDER BY sale_date", l.tables.Sales)
	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []business.SalesRecord
	for rows.Next() {
		var r business.SalesRecord
		if err := rows.Scan(&r.Date, &r.Amount, &r.ProductID, &r.CustomerID, &r.Quantity); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (l *SQLLoader) transactions(ctx context.Context) ([]business.TransactionRecord, error) {
	q := fmt.Sprintf("SELECT id, customer_id, amount, tx_date, COALESCE(product_id, '') FROM %s ORDER BY tx_date", l.tables.Transactions)
	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []business.TransactionRecord
	for rows.Next() {
		var t business.TransactionRecord
		if err := rows.Scan(&t.ID, &t.CustomerID, &t.Amount, &t.Date, &t.ProductID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (l *SQLLoader) inventory(ctx context.Context) ([]business.InventoryRecord, error) {
	q := fmt.Sprintf("SELECT product_id, COALESCE(name, ''), current_stock, min_stock, max_stock, COALESCE(unit_cost, 0), COALESCE(unit_price, 0) FROM %s", l.tables.Inventory)
	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []business.InventoryRecord
	for rows.Next() {
		var r business.InventoryRecord
		if err := rows.Scan(&r.ProductID, &r.Name, &r.CurrentStock, &r.MinStock, &r.MaxStock, &r.UnitCost, &r.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (l *SQLLoader) customers(ctx context.Context) ([]business.CustomerRecord, error) {
	q := fmt.Sprintf("SELECT id, name, registration_date FROM %s", l.tables.Customers)
	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []business.CustomerRecord
	for rows.Next() {
		var c business.CustomerRecord
		if err := rows.Scan(&c.ID, &c.Name, &c.RegistrationDate); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
