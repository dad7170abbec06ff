package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/konsfekt/internal/model"
)

// PostgresPaymentRepo はPostgreSQLを使用したSwish支払いリクエストリポジトリ。
type PostgresPaymentRepo struct {
	db *sql.DB
}

// NewPostgresPaymentRepo はPostgresPaymentRepoを生成する。
func NewPostgresPaymentRepo(db *sql.DB) *PostgresPaymentRepo {
	return &PostgresPaymentRepo{db: db}
}

// Create は支払いリクエストを作成する。
func (r *PostgresPaymentRepo) Create(ctx context.Context, req *model.PaymentRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_requests (id, user_id, amount, token, location, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.ID, req.UserID, req.Amount, req.Token, req.Location, string(req.Status), req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment request: %w", err)
	}
	return nil
}

// FindByToken はSwishトークンで支払いリクエストを検索する。見つからない場合はnilを返す。
func (r *PostgresPaymentRepo) FindByToken(ctx context.Context, token string) (*model.PaymentRequest, error) {
	req := &model.PaymentRequest{}
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount, token, location, status, created_at
		 FROM payment_requests WHERE token = $1`,
		token,
	).Scan(&req.ID, &req.UserID, &req.Amount, &req.Token, &req.Location, &status, &req.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment request: %w", err)
	}
	req.Status = model.PaymentStatus(status)
	return req, nil
}

// MarkPaid はpending状態の支払いリクエストをpaidに更新し、更新後の行を返す。
// RETURNINGとstatus条件により、コールバックが二重配送されても2回目はnilになる。
func (r *PostgresPaymentRepo) MarkPaid(ctx context.Context, id string) (*model.PaymentRequest, error) {
	req := &model.PaymentRequest{}
	var status string
	err := r.db.QueryRowContext(ctx,
		`UPDATE payment_requests SET status = 'paid'
		 WHERE id = $1 AND status = 'pending'
		 RETURNING id, user_id, amount, token, location, status, created_at`,
		id,
	).Scan(&req.ID, &req.UserID, &req.Amount, &req.Token, &req.Location, &status, &req.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark payment request paid: %w", err)
	}
	req.Status = model.PaymentStatus(status)
	return req, nil
}

// compile-time interface check
var _ PaymentRepository = (*PostgresPaymentRepo)(nil)
