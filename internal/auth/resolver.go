package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/repository"
)

// Resolver は外部IdPの安定識別子からローカルユーザーを解決する。
// 未登録の場合はユーザーを新規作成する。OAuthブリッジとBankID本人確認の
// 両方から使われる共通ロジック。
type Resolver struct {
	users repository.UserRepository
}

// NewResolver はResolverを生成する。
func NewResolver(users repository.UserRepository) *Resolver {
	return &Resolver{users: users}
}

// ResolveGoogle はGoogleのsubでユーザーを解決する。未登録なら作成する。
func (r *Resolver) ResolveGoogle(ctx context.Context, name, email, googleID string) (*model.User, error) {
	user, err := r.users.FindByGoogleID(ctx, googleID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google id: %w", err)
	}
	if user != nil {
		return user, nil
	}

	return r.create(ctx, &model.User{
		Name:     name,
		Email:    email,
		GoogleID: googleID,
	})
}

// ResolvePersonalNumber はBankIDの人格番号でユーザーを解決する。未登録なら作成する。
func (r *Resolver) ResolvePersonalNumber(ctx context.Context, name, personalNumber string) (*model.User, error) {
	user, err := r.users.FindByPersonalNumber(ctx, personalNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by personal number: %w", err)
	}
	if user != nil {
		return user, nil
	}

	return r.create(ctx, &model.User{
		Name:           name,
		PersonalNumber: personalNumber,
	})
}

// create はユーザーを新規作成する。
// システムの最初のユーザーにはAdminを付与する（ブートストラップ規則）。
// それ以降のユーザーはすべてデフォルトのUserロールになる。
func (r *Resolver) create(ctx context.Context, user *model.User) (*model.User, error) {
	hasAny, err := r.users.HasAny(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}

	role := model.RoleUser
	if !hasAny {
		role = model.RoleAdmin
	}

	now := time.Now()
	user.ID = uuid.New().String()
	user.Role = role
	user.Balance = 0
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := r.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role.String()),
	)

	return user, nil
}
