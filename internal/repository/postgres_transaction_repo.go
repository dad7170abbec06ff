package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/konsfekt/internal/model"
)

// PostgresTransactionRepo はPostgreSQLを使用した取引リポジトリ。
type PostgresTransactionRepo struct {
	db *sql.DB
}

// NewPostgresTransactionRepo はPostgresTransactionRepoを生成する。
func NewPostgresTransactionRepo(db *sql.DB) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{db: db}
}

// CreatePurchase は取引・明細の作成、購入者の残高更新、在庫の更新を
// 同一トランザクションで行う。途中で失敗した場合は何も反映されない。
func (r *PostgresTransactionRepo) CreatePurchase(ctx context.Context, transaction *model.Transaction, balance float64, stock map[string]*int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, amount, created_at)
		 VALUES ($1, $2, $3, $4)`,
		transaction.ID, transaction.UserID, transaction.Amount, transaction.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	for _, item := range transaction.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_items (id, transaction_id, product_id, quantity, name, price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, transaction.ID, item.ProductID, item.Quantity, item.Name, item.Price,
		); err != nil {
			return fmt.Errorf("failed to create transaction item: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = $2, updated_at = now() WHERE id = $1`,
		transaction.UserID, balance,
	); err != nil {
		return fmt.Errorf("failed to update user balance: %w", err)
	}

	for productID, remaining := range stock {
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`,
			productID, remaining,
		); err != nil {
			return fmt.Errorf("failed to update product stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListByUserID は指定ユーザーの取引一覧を明細付きで新しい順に返す。
func (r *PostgresTransactionRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Transaction, error) {
	return r.list(ctx, `WHERE user_id = $1`, userID)
}

// ListAll は全取引を明細付きで新しい順に返す。
func (r *PostgresTransactionRepo) ListAll(ctx context.Context) ([]*model.Transaction, error) {
	return r.list(ctx, ``)
}

// list は取引一覧を取得し、明細を取引ごとにまとめて付与する。
func (r *PostgresTransactionRepo) list(ctx context.Context, where string, args ...any) ([]*model.Transaction, error) {
	query := `SELECT id, user_id, amount, created_at FROM transactions ` + where + ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	byID := make(map[string]*model.Transaction)
	var ids []any
	for rows.Next() {
		t := &model.Transaction{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		return transactions, nil
	}

	// 明細をIN句でまとめて取得する
	placeholders := ""
	for i := range ids {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += fmt.Sprintf("$%d", i+1)
	}
	itemRows, err := r.db.QueryContext(ctx,
		`SELECT id, transaction_id, product_id, quantity, name, price
		 FROM transaction_items WHERE transaction_id IN (`+placeholders+`)`, ids...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item := model.TransactionItem{}
		if err := itemRows.Scan(&item.ID, &item.TransactionID, &item.ProductID,
			&item.Quantity, &item.Name, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan transaction item: %w", err)
		}
		if t, ok := byID[item.TransactionID]; ok {
			t.Items = append(t.Items, item)
		}
	}
	return transactions, itemRows.Err()
}

// ProductTotals は指定時刻以降の商品ごとの販売集計を返す。
func (r *PostgresTransactionRepo) ProductTotals(ctx context.Context, since time.Time) ([]model.ProductStat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ti.product_id, ti.name, SUM(ti.quantity), SUM(ti.quantity * ti.price)
		 FROM transaction_items ti
		 JOIN transactions t ON t.id = ti.transaction_id
		 WHERE t.created_at >= $1
		 GROUP BY ti.product_id, ti.name
		 ORDER BY SUM(ti.quantity * ti.price) DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate product totals: %w", err)
	}
	defer rows.Close()

	var stats []model.ProductStat
	for rows.Next() {
		var s model.ProductStat
		if err := rows.Scan(&s.ProductID, &s.Name, &s.Quantity, &s.Total); err != nil {
			return nil, fmt.Errorf("failed to scan product stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// UserTotals は指定時刻以降のユーザーごとの購入集計を返す。
func (r *PostgresTransactionRepo) UserTotals(ctx context.Context, since time.Time) ([]model.UserStat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.hidden, SUM(t.amount)
		 FROM transactions t
		 JOIN users u ON u.id = t.user_id
		 WHERE t.created_at >= $1
		 GROUP BY u.id, u.name, u.hidden
		 ORDER BY SUM(t.amount) DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate user totals: %w", err)
	}
	defer rows.Close()

	var stats []model.UserStat
	for rows.Next() {
		var s model.UserStat
		if err := rows.Scan(&s.UserID, &s.Name, &s.Hidden, &s.Total); err != nil {
			return nil, fmt.Errorf("failed to scan user stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// compile-time interface check
var _ TransactionRepository = (*PostgresTransactionRepo)(nil)
