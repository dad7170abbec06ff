// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/konsfekt/internal/model"
)

// SessionCookieName はセッショントークンを載せるCookie名。
const SessionCookieName = "session_token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("user")

// SessionValidator はセッショントークンの検証インターフェース。
// 不正・期限切れのトークンはエラーではなくnilセッションとして返る。
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*model.Session, error)
}

// UserFinder はユーザー検索のインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// SessionMiddlewareConfig はセッションミドルウェアの設定。
type SessionMiddlewareConfig struct {
	// Whitelist は認証なしで通過できるパス（完全一致）。
	Whitelist []string
	// CookieSecure はCookieクリア時のSecure属性。
	CookieSecure bool
}

// NewSessionMiddleware はCookieのセッショントークンを検証し、
// 認証済みユーザーをリクエストコンテキストに注入するミドルウェアを返す。
//
// トークンが無効な場合はCookieをクリアし、/api配下のリクエストには
// 401のJSONエラーを、それ以外には/loginへの302リダイレクトを返す。
// 有効なセッションで/loginにアクセスした場合は/へリダイレクトする。
// ホワイトリストのパスは未認証でも通過できる。
func NewSessionMiddleware(sessions SessionValidator, users UserFinder, config SessionMiddlewareConfig) func(next http.Handler) http.Handler {
	whitelist := make(map[string]bool, len(config.Whitelist))
	for _, path := range config.Whitelist {
		whitelist[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := resolveUser(r, sessions, users)

			// 認証済みユーザーのログインページアクセスはトップへ戻す
			if r.URL.Path == "/login" && user != nil {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

			if whitelist[r.URL.Path] {
				if user != nil {
					r = r.WithContext(ContextWithUser(r.Context(), user))
				}
				next.ServeHTTP(w, r)
				return
			}

			if user == nil {
				clearSessionCookie(w, config.CookieSecure)
				if strings.HasPrefix(r.URL.Path, "/api") {
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				} else {
					http.Redirect(w, r, "/login", http.StatusFound)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// resolveUser はCookieのトークンから認証済みユーザーを解決する。
// トークンの欠落・無効・ユーザー不在はすべてnilになる。
func resolveUser(r *http.Request, sessions SessionValidator, users UserFinder) *model.User {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := sessions.Validate(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to validate session",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if session == nil {
		return nil
	}

	user, err := users.FindByID(r.Context(), session.UserID)
	if err != nil {
		slog.Error("failed to find session user",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return user
}

// clearSessionCookie は無効なセッションCookieをブラウザから削除する。
func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("user not found in context")
	}
	return user, nil
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
