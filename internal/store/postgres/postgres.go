package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"belajoia/backend/internal/domain"
	"belajoia/backend/internal/store"
	"belajoia/backend/internal/xid"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const productColumns = `id, stock_id, title, category, description, price, pix_price, image_urls, stock, sold, featured, tags, created_day, created_month, created_year`

var searchColumns = map[store.SearchField]string{
	store.FieldTitle:       "title_lower",
	store.FieldDescription: "description_lower",
	store.FieldCategory:    "category",
}

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}
	driver, err := pgxmigrate.WithInstance(s.db, &pgxmigrate.Config{
		MigrationsTable: "belajoia_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p         domain.Product
		imageURLs []byte
		tags      []byte
	)
	err := row.Scan(
		&p.ID, &p.StockID, &p.Title, &p.Category, &p.Description,
		&p.Price, &p.PixPrice, &imageURLs, &p.Stock, &p.Sold, &p.Featured, &tags,
		&p.CreatedAt.Day, &p.CreatedAt.Month, &p.CreatedAt.Year,
	)
	if err != nil {
		return p, err
	}
	p.ImageURLs = decodeStrings(imageURLs)
	p.Tags = decodeStrings(tags)
	return p, nil
}

func decodeStrings(raw []byte) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return []string{}
	}
	return out
}

func encodeStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	payload, _ := json.Marshal(values)
	return string(payload)
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 32)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) ListProducts(ctx context.Context, query domain.ProductQuery) ([]domain.Product, error) {
	var (
		where []string
		args  []any
	)
	if query.Category != "" {
		args = append(args, query.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if query.Featured != nil {
		args = append(args, *query.Featured)
		where = append(where, fmt.Sprintf("featured = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT " + productColumns + " FROM products")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if query.OrderBy == domain.OrderBestSelling {
		b.WriteString(" ORDER BY sold DESC, id")
	} else {
		b.WriteString(" ORDER BY created_year DESC, created_month DESC, created_day DESC, id")
	}
	if query.Limit > 0 {
		args = append(args, query.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	return s.queryProducts(ctx, b.String(), args...)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := store.ValidateProduct(product); err != nil {
		return nil, err
	}
	product.ID = xid.New("prd")
	product = store.ApplyPatch(product, domain.ProductPatch{Tags: &product.Tags})

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, stock_id, title, title_lower, category, description, description_lower,
			price, pix_price, image_urls, stock, sold, featured, tags,
			created_day, created_month, created_year, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10::jsonb,$11,$12,$13,$14::jsonb,$15,$16,$17,now(),now())
	`,
		product.ID, product.StockID, product.Title, strings.ToLower(product.Title), product.Category,
		product.Description, strings.ToLower(product.Description),
		product.Price, product.PixPrice, encodeStrings(product.ImageURLs), product.Stock, product.Sold,
		product.Featured, encodeStrings(product.Tags),
		product.CreatedAt.Day, product.CreatedAt.Month, product.CreatedAt.Year,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := scanProduct(tx.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	updated := store.ApplyPatch(current, patch)
	if err := store.ValidateProduct(updated); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE products
		SET title = $2, title_lower = $3, category = $4, description = $5, description_lower = $6,
			price = $7, pix_price = $8, image_urls = $9::jsonb, stock = $10, sold = $11,
			featured = $12, tags = $13::jsonb, updated_at = now()
		WHERE id = $1
	`,
		id, updated.Title, strings.ToLower(updated.Title), updated.Category,
		updated.Description, strings.ToLower(updated.Description),
		updated.Price, updated.PixPrice, encodeStrings(updated.ImageURLs), updated.Stock, updated.Sold,
		updated.Featured, encodeStrings(updated.Tags),
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) PrefixSearch(ctx context.Context, field store.SearchField, term string) ([]domain.Product, error) {
	column, ok := searchColumns[field]
	if !ok {
		return nil, store.ErrInvalidInput
	}
	query := fmt.Sprintf(
		`SELECT %s FROM products WHERE %s COLLATE "C" >= $1 AND %s COLLATE "C" <= $2 ORDER BY id`,
		productColumns, column, column,
	)
	return s.queryProducts(ctx, query, term, term+store.PrefixUpperBound)
}

func (s *Store) TagSearch(ctx context.Context, tag string) ([]domain.Product, error) {
	return s.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE tags @> jsonb_build_array($1::text) ORDER BY id`, tag)
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) SaveCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if strings.TrimSpace(category.ID) == "" || strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		RETURNING created_at
	`, category.ID, category.Name, category.CreatedAt).Scan(&category.CreatedAt)
	if err != nil {
		return nil, err
	}
	category.CreatedAt = category.CreatedAt.UTC()
	return &category, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = "admin"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 4)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
