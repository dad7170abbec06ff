package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/konsfekt/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, name, email, google_id, personal_number, role, balance, hidden, created_at, updated_at`

// scanUser は1行分のユーザーをスキャンする。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var role int
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.GoogleID, &user.PersonalNumber,
		&role, &user.Balance, &user.Hidden, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	user.Role = model.Role(role)
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByGoogleID はGoogleのsubでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = $1 AND google_id <> ''`, googleID)
	return scanUser(row)
}

// FindByPersonalNumber はBankIDの人格番号でユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByPersonalNumber(ctx context.Context, personalNumber string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE personal_number = $1 AND personal_number <> ''`, personalNumber)
	return scanUser(row)
}

// HasAny はユーザーが1人でも存在するかを返す。
func (r *PostgresUserRepo) HasAny(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, google_id, personal_number, role, balance, hidden, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.Name, user.Email, user.GoogleID, user.PersonalNumber,
		int(user.Role), user.Balance, user.Hidden, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Update はユーザーの全フィールドを更新する。
func (r *PostgresUserRepo) Update(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET
			name = $2, email = $3, google_id = $4, personal_number = $5,
			role = $6, balance = $7, hidden = $8, updated_at = now()
		 WHERE id = $1`,
		user.ID, user.Name, user.Email, user.GoogleID, user.PersonalNumber,
		int(user.Role), user.Balance, user.Hidden,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// UpdateName は表示名のみを更新する。
func (r *PostgresUserRepo) UpdateName(ctx context.Context, id, name string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $2, updated_at = now() WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("failed to update user name: %w", err)
	}
	return nil
}

// UpdateBalance は残高のみを更新する。
func (r *PostgresUserRepo) UpdateBalance(ctx context.Context, id string, balance float64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET balance = $2, updated_at = now() WHERE id = $1`, id, balance)
	if err != nil {
		return fmt.Errorf("failed to update user balance: %w", err)
	}
	return nil
}

// ListByRole は指定ロールのユーザー一覧を返す。
func (r *PostgresUserRepo) ListByRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at`, int(role))
	if err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		var roleVal int
		if err := rows.Scan(
			&user.ID, &user.Name, &user.Email, &user.GoogleID, &user.PersonalNumber,
			&roleVal, &user.Balance, &user.Hidden, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.Role = model.Role(roleVal)
		users = append(users, user)
	}
	return users, rows.Err()
}

// FinalizeEmailSwitch はユーザーのemail/google_idの書き換えと
// 保留リクエストの削除を同一トランザクションで行う。
// どちらか一方だけが反映される状態を防ぐ。
func (r *PostgresUserRepo) FinalizeEmailSwitch(ctx context.Context, userID, email, googleID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET email = $2, google_id = $3, updated_at = now() WHERE id = $1`,
		userID, email, googleID,
	); err != nil {
		return fmt.Errorf("failed to update user identity: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM email_switch_requests WHERE user_id = $1`, userID,
	); err != nil {
		return fmt.Errorf("failed to delete email switch request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit email switch: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのユーザーを削除する。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
