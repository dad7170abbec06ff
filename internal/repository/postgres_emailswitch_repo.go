package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/konsfekt/internal/model"
)

// PostgresEmailSwitchRepo はPostgreSQLを使用したメール切替リクエストリポジトリ。
type PostgresEmailSwitchRepo struct {
	db *sql.DB
}

// NewPostgresEmailSwitchRepo はPostgresEmailSwitchRepoを生成する。
func NewPostgresEmailSwitchRepo(db *sql.DB) *PostgresEmailSwitchRepo {
	return &PostgresEmailSwitchRepo{db: db}
}

// Upsert はユーザーIDをキーに保留リクエストを作成または更新する。
// user_idが主キーのためON CONFLICTでcreated_atを上書きし、
// 連続して初期化してもユーザーごとに1行を超えない。
func (r *PostgresEmailSwitchRepo) Upsert(ctx context.Context, userID string, createdAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO email_switch_requests (user_id, created_at)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET created_at = EXCLUDED.created_at`,
		userID, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert email switch request: %w", err)
	}
	return nil
}

// Find は指定ユーザーの保留リクエストを取得する。見つからない場合はnilを返す。
func (r *PostgresEmailSwitchRepo) Find(ctx context.Context, userID string) (*model.EmailSwitchRequest, error) {
	req := &model.EmailSwitchRequest{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, created_at FROM email_switch_requests WHERE user_id = $1`,
		userID,
	).Scan(&req.UserID, &req.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find email switch request: %w", err)
	}
	return req, nil
}

// Delete は指定ユーザーの保留リクエストを削除する。
func (r *PostgresEmailSwitchRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM email_switch_requests WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete email switch request: %w", err)
	}
	return nil
}

// compile-time interface check
var _ EmailSwitchRepository = (*PostgresEmailSwitchRepo)(nil)
