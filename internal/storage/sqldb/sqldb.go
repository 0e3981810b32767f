package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IlyasAtabaev731/inventory-service/internal/domain/models"
	"github.com/IlyasAtabaev731/inventory-service/internal/storage"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"
)

type Storage struct {
	db      *sqlx.DB
	dialect string
	logger  *slog.Logger
}

// New opens the database named by dbURL and makes sure the tables exist.
// postgresql:// URLs go through lib/pq, sqlite:///path URLs through the
// pure-Go sqlite driver. sqlite:// with no path opens an in-memory database.
func New(dbURL string, log *slog.Logger) (*Storage, error) {
	const op = "storage.sqldb.New"

	dialect, dsn, err := parseURL(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := sqlx.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: database connection error: %w", op, err)
	}

	if dialect == dialectSQLite {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: failed to connect database: %w", op, err)
	}

	s := &Storage{db: db, dialect: dialect, logger: log}

	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("storage ready", slog.String("dialect", dialect))

	return s, nil
}

func parseURL(dbURL string) (dialect, dsn string, err error) {
	switch {
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		return dialectPostgres, dbURL, nil
	case strings.HasPrefix(dbURL, "sqlite://"):
		path := strings.TrimPrefix(strings.TrimPrefix(dbURL, "sqlite://"), "/")
		if path == "" {
			path = ":memory:"
		}
		return dialectSQLite, path, nil
	default:
		return "", "", fmt.Errorf("unsupported database url %q", dbURL)
	}
}

func (s *Storage) ensureSchema(ctx context.Context) error {
	const op = "storage.sqldb.ensureSchema"

	idColumn, floatColumn := "SERIAL PRIMARY KEY", "DOUBLE PRECISION"
	if s.dialect == dialectSQLite {
		idColumn, floatColumn = "INTEGER PRIMARY KEY AUTOINCREMENT", "REAL"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id ` + idColumn + `,
			username VARCHAR(80) NOT NULL UNIQUE,
			password_hash VARCHAR(128) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id ` + idColumn + `,
			name VARCHAR(100) NOT NULL,
			quantity INTEGER NOT NULL,
			price ` + floatColumn + ` NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Stop() error {
	return s.db.Close()
}

func (s *Storage) SaveUser(ctx context.Context, username string, passHash []byte) (int64, error) {
	const op = "storage.sqldb.SaveUser"

	var id int64
	err := s.db.QueryRowxContext(ctx,
		s.db.Rebind("INSERT INTO users (username, password_hash) VALUES (?, ?) RETURNING id"),
		username, string(passHash),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) GetUser(ctx context.Context, username string) (models.User, error) {
	const op = "storage.sqldb.GetUser"

	var user models.User
	err := s.db.GetContext(ctx, &user,
		s.db.Rebind("SELECT id, username, password_hash FROM users WHERE username = ?"),
		username,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Storage) SaveProduct(ctx context.Context, product models.Product) (int64, error) {
	const op = "storage.sqldb.SaveProduct"

	var id int64
	err := s.db.QueryRowxContext(ctx,
		s.db.Rebind("INSERT INTO products (name, quantity, price) VALUES (?, ?, ?) RETURNING id"),
		product.Name, product.Quantity, product.Price,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// GetProducts returns every product in insertion order.
func (s *Storage) GetProducts(ctx context.Context) ([]models.Product, error) {
	const op = "storage.sqldb.GetProducts"

	products := []models.Product{}
	if err := s.db.SelectContext(ctx, &products,
		"SELECT id, name, quantity, price FROM products ORDER BY id",
	); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return products, nil
}

func (s *Storage) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	const op = "storage.sqldb.GetProduct"

	var product models.Product
	err := s.db.GetContext(ctx, &product,
		s.db.Rebind("SELECT id, name, quantity, price FROM products WHERE id = ?"),
		id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Product{}, fmt.Errorf("%s: %w", op, storage.ErrProductNotFound)
		}
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	return product, nil
}

func (s *Storage) UpdateProduct(ctx context.Context, product models.Product) error {
	const op = "storage.sqldb.UpdateProduct"

	res, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE products SET name = ?, quantity = ?, price = ? WHERE id = ?"),
		product.Name, product.Quantity, product.Price, product.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return affectedOne(op, res)
}

func (s *Storage) DeleteProduct(ctx context.Context, id int64) error {
	const op = "storage.sqldb.DeleteProduct"

	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM products WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return affectedOne(op, res)
}

func affectedOne(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrProductNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}

	return false
}
