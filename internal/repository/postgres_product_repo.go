package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/konsfekt/internal/model"
)

// PostgresProductRepo はPostgreSQLを使用した商品リポジトリ。
type PostgresProductRepo struct {
	db *sql.DB
}

// NewPostgresProductRepo はPostgresProductRepoを生成する。
func NewPostgresProductRepo(db *sql.DB) *PostgresProductRepo {
	return &PostgresProductRepo{db: db}
}

// Create は商品を作成する。
func (r *PostgresProductRepo) Create(ctx context.Context, product *model.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, name, price, description, stock, flags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		product.ID, product.Name, product.Price, product.Description,
		product.Stock, product.Flags.String(), product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	product := &model.Product{}
	var flags string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, price, description, stock, flags, created_at, updated_at
		 FROM products WHERE id = $1`,
		id,
	).Scan(&product.ID, &product.Name, &product.Price, &product.Description,
		&product.Stock, &flags, &product.CreatedAt, &product.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	parsed, err := model.ParseProductFlags(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to parse product flags: %w", err)
	}
	product.Flags = parsed
	return product, nil
}

// List は全商品を新しい順に返す。
func (r *PostgresProductRepo) List(ctx context.Context) ([]*model.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, price, description, stock, flags, created_at, updated_at
		 FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		product := &model.Product{}
		var flags string
		if err := rows.Scan(&product.ID, &product.Name, &product.Price, &product.Description,
			&product.Stock, &flags, &product.CreatedAt, &product.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		parsed, err := model.ParseProductFlags(flags)
		if err != nil {
			return nil, fmt.Errorf("failed to parse product flags: %w", err)
		}
		product.Flags = parsed
		products = append(products, product)
	}
	return products, rows.Err()
}

// Update は商品情報を更新する。
func (r *PostgresProductRepo) Update(ctx context.Context, product *model.Product) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE products SET
			name = $2, price = $3, description = $4, stock = $5, flags = $6, updated_at = now()
		 WHERE id = $1`,
		product.ID, product.Name, product.Price, product.Description,
		product.Stock, product.Flags.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// UpdateStock は在庫数のみを更新する。
func (r *PostgresProductRepo) UpdateStock(ctx context.Context, id string, stock *int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`, id, stock)
	if err != nil {
		return fmt.Errorf("failed to update product stock: %w", err)
	}
	return nil
}

// Delete は指定IDの商品を削除する。
func (r *PostgresProductRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProductRepository = (*PostgresProductRepo)(nil)
