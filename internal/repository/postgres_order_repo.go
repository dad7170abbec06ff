package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/konsfekt/internal/model"
)

// PostgresOrderRepo はPostgreSQLを使用したBankID本人確認オーダーリポジトリ。
type PostgresOrderRepo struct {
	db *sql.DB
}

// NewPostgresOrderRepo はPostgresOrderRepoを生成する。
func NewPostgresOrderRepo(db *sql.DB) *PostgresOrderRepo {
	return &PostgresOrderRepo{db: db}
}

// Create はオーダーを作成する。
func (r *PostgresOrderRepo) Create(ctx context.Context, order *model.VerificationOrder) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_orders (order_ref, nonce, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		order.OrderRef, order.Nonce, string(order.Status), order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create verification order: %w", err)
	}
	return nil
}

// FindByNonce は照合値でオーダーを検索する。見つからない場合はnilを返す。
func (r *PostgresOrderRepo) FindByNonce(ctx context.Context, nonce string) (*model.VerificationOrder, error) {
	order := &model.VerificationOrder{}
	var userID sql.NullString
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT order_ref, nonce, user_id, status, created_at, updated_at
		 FROM verification_orders
		 WHERE nonce = $1`,
		nonce,
	).Scan(&order.OrderRef, &order.Nonce, &userID, &status, &order.CreatedAt, &order.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find verification order: %w", err)
	}

	order.UserID = userID.String
	order.Status = model.OrderStatus(status)
	return order, nil
}

// Update はオーダーの状態と解決済みユーザーIDを更新する。
// WHERE句でstatus = 'pending'を要求するため、終端状態の行は二度と変化しない。
func (r *PostgresOrderRepo) Update(ctx context.Context, orderRef string, status model.OrderStatus, userID string) error {
	var uid any
	if userID != "" {
		uid = userID
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE verification_orders
		 SET status = $2, user_id = COALESCE($3, user_id), updated_at = now()
		 WHERE order_ref = $1 AND status = 'pending'`,
		orderRef, string(status), uid,
	)
	if err != nil {
		return fmt.Errorf("failed to update verification order: %w", err)
	}
	return nil
}

// compile-time interface check
var _ VerificationOrderRepository = (*PostgresOrderRepo)(nil)
