package main

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite" // driver 100% Go
)

var ErrNotFound = errors.New("order not found")

type Repository struct {
	DB *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxIdleTime(2 * time.Minute)
	db.SetMaxOpenConns(1)

	r := &Repository{DB: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS orders(
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  item_id    INTEGER NOT NULL,
  created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

func (r *Repository) Close() error { return r.DB.Close() }

// Insert añade exactamente una fila al log; created_at lo pone el store.
func (r *Repository) Insert(ctx context.Context, itemID int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO orders(item_id) VALUES (?)`, itemID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repository) Get(ctx context.Context, orderID int64) (*Order, error) {
	var o Order
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, item_id, created_at FROM orders WHERE id=?`, orderID).
		Scan(&o.ID, &o.ItemID, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil { return nil, err }
	return &o, nil
}

func (r *Repository) CountByItem(ctx context.Context, itemID int64) (int64, error) {
	var c int64
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM orders WHERE item_id=?`, itemID).Scan(&c)
	return c, err
}
