package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // driver 100% Go
)

var (
	ErrNotFound      = errors.New("book not found")
	ErrOutOfStock    = errors.New("out of stock")
	ErrNoValidFields = errors.New("no valid fields in patch")
)

type Repository struct {
	DB *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	// _pragma busy_timeout para evitar "database is locked"
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
CREATE TABLE IF NOT EXISTS books(
  id       INTEGER PRIMARY KEY,
  title    TEXT    NOT NULL,
  topic    TEXT    NOT NULL,
  price    REAL    NOT NULL,
  quantity INTEGER NOT NULL CHECK(quantity >= 0)
);
CREATE INDEX IF NOT EXISTS idx_books_topic ON books(topic);
`
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

func (r *Repository) Close() error { return r.DB.Close() }

// Seed inicial idempotente (solo inserta ids que no existan).
func (r *Repository) Seed(ctx context.Context) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil { return err }
	defer tx.Rollback()

	stmt := `
INSERT INTO books(id, title, topic, price, quantity)
VALUES(?,?,?,?,?)
ON CONFLICT(id) DO NOTHING;
`
	inserts := [][]any{
		{1, "How to finish Project 3 on time", "distributed systems", 19.99, 8},
		{2, "Why theory classes are so hard.", "distributed systems", 24.90, 12},
		{3, "Spring in the Pioneer Valley", "distributed systems", 17.50, 5},
		{4, "Notes on Practical Microservices", "microservices", 29.00, 10},
	}
	for _, v := range inserts {
		if _, err := tx.ExecContext(ctx, stmt, v...); err != nil { return err }
	}
	return tx.Commit()
}

// Search devuelve title -> id; con topic vacío lista todo el catálogo.
func (r *Repository) Search(ctx context.Context, topic string) (map[string]int64, error) {
	topic = strings.ToLower(strings.TrimSpace(topic))

	var rows *sql.Rows
	var err error
	if topic == "" {
		rows, err = r.DB.QueryContext(ctx, `SELECT id, title FROM books`)
	} else {
		rows, err = r.DB.QueryContext(ctx,
			`SELECT id, title FROM books WHERE lower(topic) LIKE ?`, "%"+topic+"%")
	}
	if err != nil { return nil, err }
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var id int64
		var title string
		if err := rows.Scan(&id, &title); err != nil { return nil, err }
		out[title] = id
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (*Book, error) {
	var b Book
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, title, price, quantity, topic FROM books WHERE id=?`, id).
		Scan(&b.ID, &b.Title, &b.Price, &b.Quantity, &b.Topic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil { return nil, err }
	return &b, nil
}

// Decrement resta exactamente 1 si y solo si quantity > 0 en el momento
// del write. La lectura previa solo distingue not_found de out_of_stock;
// la verificación autoritativa es el UPDATE con guarda: dos compradores
// concurrentes sobre quantity=1 nunca pueden ganar ambos.
func (r *Repository) Decrement(ctx context.Context, id int64) (int64, error) {
	var qty int64
	err := r.DB.QueryRowContext(ctx,
		`SELECT quantity FROM books WHERE id=?`, id).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil { return 0, err }
	if qty <= 0 {
		return 0, ErrOutOfStock
	}

	res, err := r.DB.ExecContext(ctx,
		`UPDATE books SET quantity = quantity - 1 WHERE id=? AND quantity > 0`, id)
	if err != nil { return 0, err }
	affected, err := res.RowsAffected()
	if err != nil { return 0, err }
	if affected == 0 {
		// llegó a cero entre la lectura y el update
		return 0, ErrOutOfStock
	}

	var remaining int64
	if err := r.DB.QueryRowContext(ctx,
		`SELECT quantity FROM books WHERE id=?`, id).Scan(&remaining); err != nil {
		return 0, fmt.Errorf("read back quantity: %w", err)
	}
	return remaining, nil
}

// Update aplica el patch en un único write durable: price es reemplazo
// absoluto, quantity es delta con signo. Sin SQL dinámico: una sentencia
// parametrizada por combinación de campos reconocidos. Sobre un id
// inexistente el write es un no-op silencioso y el read-back posterior
// devuelve ErrNotFound.
func (r *Repository) Update(ctx context.Context, id int64, p Patch) (*Book, error) {
	if p.Empty() {
		return nil, ErrNoValidFields
	}

	var err error
	switch {
	case p.Price != nil && p.QuantityDelta != nil:
		_, err = r.DB.ExecContext(ctx,
			`UPDATE books SET price=?, quantity=quantity+? WHERE id=?`,
			*p.Price, *p.QuantityDelta, id)
	case p.Price != nil:
		_, err = r.DB.ExecContext(ctx,
			`UPDATE books SET price=? WHERE id=?`, *p.Price, id)
	default:
		_, err = r.DB.ExecContext(ctx,
			`UPDATE books SET quantity=quantity+? WHERE id=?`, *p.QuantityDelta, id)
	}
	if err != nil {
		return nil, fmt.Errorf("apply patch: %w", err)
	}
	return r.Get(ctx, id)
}
