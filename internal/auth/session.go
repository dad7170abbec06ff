// Package auth はセッション管理、OAuth認証フロー、ローカルユーザー解決を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/repository"
)

// SessionManager は不透明セッショントークンの発行・検証・破棄を行う。
// トークンはセッションIDそのものであり、CookieにHTTP Onlyで載せる。
type SessionManager struct {
	sessions repository.SessionRepository
	maxAge   time.Duration
}

// NewSessionManager はSessionManagerを生成する。
func NewSessionManager(sessions repository.SessionRepository, maxAge time.Duration) *SessionManager {
	return &SessionManager{
		sessions: sessions,
		maxAge:   maxAge,
	}
}

// Create は指定ユーザーのセッションを発行し永続化する。
// 永続化に失敗した場合はエラーを返し、トークンは発行されない。
func (m *SessionManager) Create(ctx context.Context, userID string) (*model.Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &model.Session{
		ID:        token,
		UserID:    userID,
		ExpiresAt: time.Now().Add(m.maxAge),
		CreatedAt: time.Now(),
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// Validate はトークンに対応する有効なセッションを返す。
// 未存在・期限切れ・不正形式はすべてnil（エラーではない）として扱い、
// 呼び出し元はCookieのクリアとログインへの誘導を行う。
// 読み取り専用で、副作用は持たない。
func (m *SessionManager) Validate(ctx context.Context, token string) (*model.Session, error) {
	session, err := m.sessions.FindByID(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// Invalidate は指定セッションを破棄する。
// すでに存在しないセッションの破棄もエラーにしない（冪等）。
func (m *SessionManager) Invalidate(ctx context.Context, sessionID string) error {
	if err := m.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// InvalidateAll は指定ユーザーの全セッションを破棄する。退会処理で使用する。
func (m *SessionManager) InvalidateAll(ctx context.Context, userID string) error {
	if err := m.sessions.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// MaxAge はセッションの有効期間を返す。Cookieのmax-age設定用。
func (m *SessionManager) MaxAge() time.Duration {
	return m.maxAge
}

// generateSessionToken は暗号的に安全なセッショントークンを生成する。
func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
