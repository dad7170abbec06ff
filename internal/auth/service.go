package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/repository"
)

// ErrIdentityProvider はOAuthプロバイダーとの通信・応答の失敗を表す。
// 呼び出し元はこれで永続化の失敗と区別できる。
var ErrIdentityProvider = errors.New("identity provider request failed")

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	// 非2xxレスポンスやペイロード不正は現在のリクエストに対して致命的で、リトライしない。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// EmailSwitchChecker はメール切替保留リクエストの生存確認インターフェース。
type EmailSwitchChecker interface {
	// Live は指定ユーザーにTTL内の保留リクエストが存在するかを返す。
	Live(ctx context.Context, userID string) (bool, error)
}

// Service はOAuth認証ブリッジのビジネスロジックを提供する。
// 認可コード交換からローカルユーザー解決、セッション発行までを担う。
type Service struct {
	oauth    OAuthProvider
	users    repository.UserRepository
	resolver *Resolver
	sessions *SessionManager
	switches EmailSwitchChecker
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	users repository.UserRepository,
	resolver *Resolver,
	sessions *SessionManager,
	switches EmailSwitchChecker,
) *Service {
	return &Service{
		oauth:    oauth,
		users:    users,
		resolver: resolver,
		sessions: sessions,
		switches: switches,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
//
// currentUserIDは呼び出し時点で有効なセッションを持つユーザーのID（未認証なら空）。
// そのユーザーにTTL内のメール切替リクエストが存在する場合、新しいIdPの
// email/google_idで既存ユーザーを上書きし、保留リクエストを削除して、
// 新規ユーザーは作成しない。それ以外は通常のログイン（解決または新規作成）になる。
//
// ユーザー作成・更新はコード交換とプロファイル取得の成功後にのみ行われるため、
// IdP障害時に中途半端な状態が残ることはない。
func (s *Service) HandleCallback(ctx context.Context, code, currentUserID string) (*model.Session, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w: %v", ErrIdentityProvider, err)
	}

	if currentUserID != "" {
		live, err := s.switches.Live(ctx, currentUserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check email switch request: %w", err)
		}
		if live {
			// メール切替の確定: ユーザー更新と保留リクエスト削除は単一トランザクション
			if err := s.users.FinalizeEmailSwitch(ctx, currentUserID, userInfo.Email, userInfo.ProviderUserID); err != nil {
				return nil, fmt.Errorf("failed to finalize email switch: %w", err)
			}
			slog.Info("email switch finalized",
				slog.String("user_id", currentUserID),
			)
			return s.sessions.Create(ctx, currentUserID)
		}
	}

	user, err := s.resolver.ResolveGoogle(ctx, userInfo.Name, userInfo.Email, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("method", "google"),
	)

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessions.Invalidate(ctx, sessionID); err != nil {
		return err
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッショントークンから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, fmt.Errorf("session token is required")
	}

	session, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}
