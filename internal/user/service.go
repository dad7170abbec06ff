// Package user はユーザープロフィールと管理操作を提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/konsfekt/internal/auth"
	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/repository"
	"github.com/hitoshi/konsfekt/internal/security"
)

// Service はユーザー管理のビジネスロジックを提供する。
type Service struct {
	users     repository.UserRepository
	sessions  *auth.SessionManager
	sanitizer *security.InputSanitizer
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, sessions *auth.SessionManager, sanitizer *security.InputSanitizer) *Service {
	return &Service{
		users:     users,
		sessions:  sessions,
		sanitizer: sanitizer,
	}
}

// Get は指定IDのユーザーを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// ListByRole は指定ロールのユーザー一覧を返す。管理画面用。
func (s *Service) ListByRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	users, err := s.users.ListByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ChangeName は表示名を変更する。名前は保存前にサニタイズされる。
func (s *Service) ChangeName(ctx context.Context, id, name string) error {
	name = s.sanitizer.SanitizeText(name)
	if name == "" {
		return model.NewMissingFieldError("name")
	}

	if err := s.users.UpdateName(ctx, id, name); err != nil {
		return fmt.Errorf("failed to update name: %w", err)
	}

	slog.Info("user name changed", slog.String("user_id", id))
	return nil
}

// SetRole は指定ユーザーのロールを変更する。Admin専用の管理操作。
// 自分自身のロール降格も許可される（最後のAdminを失わないよう注意するのは運用側）。
func (s *Service) SetRole(ctx context.Context, id string, role model.Role) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	slog.Info("user role changed",
		slog.String("user_id", id),
		slog.String("role", role.String()),
	)
	return nil
}

// SetBalance は指定ユーザーの残高を直接設定する。Admin専用の管理操作。
// 通常の残高増減は取引・チャージ経由で行われ、この操作は調整用。
func (s *Service) SetBalance(ctx context.Context, id string, balance float64) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.users.UpdateBalance(ctx, user.ID, balance); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	slog.Info("user balance adjusted",
		slog.String("user_id", id),
		slog.Float64("balance", balance),
	)
	return nil
}

// SetHidden は集計上の非表示フラグを変更する。
func (s *Service) SetHidden(ctx context.Context, id string, hidden bool) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	user.Hidden = hidden
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update hidden flag: %w", err)
	}
	return nil
}

// Withdraw は退会処理として指定ユーザーの全セッションを破棄する。
// ユーザー行と残高・取引履歴は残る（行の削除は明示的なDelete操作のみ）。
func (s *Service) Withdraw(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.sessions.InvalidateAll(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to invalidate sessions: %w", err)
	}

	slog.Info("user withdrew", slog.String("user_id", id))
	return nil
}

// Delete は指定ユーザーを削除する。
// 先に全セッションを破棄してから行を削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.sessions.InvalidateAll(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to invalidate sessions: %w", err)
	}
	if err := s.users.DeleteByID(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("user deleted", slog.String("user_id", id))
	return nil
}
