package store

import (
	"context"
	"errors"
	"fmt"

	perrors "github.com/dongyi/catalog/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	productColumns = `id, name, price, size, description, categories, discount, image_url, version, created_at, updated_at`

	uniqueViolation = "23505"
)

// PgStore implements ProductStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.Size,
		&p.Description,
		&p.Categories,
		&p.Discount,
		&p.ImageKeys,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (p *PgStore) queryProducts(ctx context.Context, op, sql string, args ...any) ([]Product, error) {
	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, perrors.Upstream(op, err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		return nil, perrors.Upstream(op, err)
	}
	return products, nil
}

// FindByID retrieves a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id int64) (*Product, error) {
	product, err := scanProduct(p.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &perrors.ProductNotFoundError{ProductID: id}
		}
		return nil, perrors.Upstream("failed to find product by ID", err)
	}
	return &product, nil
}

// FindAll retrieves every product ordered by id.
func (p *PgStore) FindAll(ctx context.Context) ([]Product, error) {
	return p.queryProducts(ctx, "failed to find all products",
		`SELECT `+productColumns+` FROM products ORDER BY id`)
}

// FindByCategory retrieves products whose categories contain the substring, ignoring case.
func (p *PgStore) FindByCategory(ctx context.Context, category string) ([]Product, error) {
	return p.queryProducts(ctx, "failed to find products by category",
		`SELECT `+productColumns+` FROM products
		WHERE strpos(lower(coalesce(categories, '')), lower($1)) > 0
		ORDER BY id`, category)
}

// FindByName retrieves products whose name contains the fragment or is contained in it, ignoring case.
func (p *PgStore) FindByName(ctx context.Context, fragment string) ([]Product, error) {
	return p.queryProducts(ctx, "failed to find products by name",
		`SELECT `+productColumns+` FROM products
		WHERE strpos(lower(name), lower($1)) > 0 OR strpos(lower($1), lower(name)) > 0
		ORDER BY id`, fragment)
}

// Create inserts a new product.
// Returns ErrProductExists if a product with the same id already exists.
func (p *PgStore) Create(ctx context.Context, product Product) (*Product, error) {
	size := product.Size
	if size == nil {
		size = map[string]int32{}
	}
	images := product.ImageKeys
	if images == nil {
		images = []string{}
	}
	created, err := scanProduct(p.db.QueryRow(ctx,
		`INSERT INTO products (id, name, price, size, description, categories, discount, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+productColumns,
		product.ID, product.Name, product.Price, size,
		product.Description, product.Categories, product.Discount, images,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("product %d: %w", product.ID, perrors.ErrProductExists)
		}
		return nil, perrors.Upstream("failed to create product", err)
	}
	return &created, nil
}

// Update applies the present fields of update.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) Update(ctx context.Context, id int64, update ProductUpdate) (*Product, error) {
	var size any
	if update.Size != nil {
		size = update.Size
	}
	updated, err := scanProduct(p.db.QueryRow(ctx,
		`UPDATE products SET
			name        = COALESCE($2, name),
			price       = COALESCE($3, price),
			size        = COALESCE($4::jsonb, size),
			description = COALESCE($5, description),
			categories  = COALESCE($6, categories),
			discount    = COALESCE($7, discount),
			version     = version + 1,
			updated_at  = now()
		WHERE id = $1
		RETURNING `+productColumns,
		id, update.Name, update.Price, size, update.Description, update.Categories, update.Discount,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &perrors.ProductNotFoundError{ProductID: id}
		}
		return nil, perrors.Upstream("failed to update product", err)
	}
	return &updated, nil
}

// DeleteByID removes a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) DeleteByID(ctx context.Context, id int64) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return perrors.Upstream("failed to delete product by ID", err)
	}
	if tag.RowsAffected() == 0 {
		return &perrors.ProductNotFoundError{ProductID: id}
	}
	return nil
}

// AdjustStock locks every referenced row in ascending id order, validates the batch against the
// locked stock and writes each changed product once. Any failure rolls the whole batch back.
func (p *PgStore) AdjustStock(ctx context.Context, items []StockAdjustment) ([]Product, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, perrors.Upstream("failed to begin stock adjustment", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `SELECT id, size FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, batchIDs(items))
	if err != nil {
		return nil, perrors.Upstream("failed to lock products", err)
	}
	stock := make(map[int64]map[string]int32)
	var (
		id   int64
		size map[string]int32
	)
	_, err = pgx.ForEachRow(rows, []any{&id, &size}, func() error {
		if size == nil {
			size = map[string]int32{}
		}
		stock[id] = size
		size = nil
		return nil
	})
	if err != nil {
		return nil, perrors.Upstream("failed to read locked stock", err)
	}

	touched, err := applyAdjustments(stock, items)
	if err != nil {
		return nil, err
	}

	updated := make([]Product, 0, len(touched))
	for _, id := range touched {
		product, err := scanProduct(tx.QueryRow(ctx,
			`UPDATE products SET size = $2, version = version + 1, updated_at = now()
			WHERE id = $1
			RETURNING `+productColumns, id, stock[id]))
		if err != nil {
			return nil, perrors.Upstream("failed to write adjusted stock", err)
		}
		updated = append(updated, product)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, perrors.Upstream("failed to commit stock adjustment", err)
	}
	return updated, nil
}

// AppendImage adds key to the end of the product's image list.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) AppendImage(ctx context.Context, id int64, key string) (*Product, error) {
	product, err := scanProduct(p.db.QueryRow(ctx,
		`UPDATE products SET image_url = array_append(image_url, $2), version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns, id, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &perrors.ProductNotFoundError{ProductID: id}
		}
		return nil, perrors.Upstream("failed to append product image", err)
	}
	return &product, nil
}
