package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/konsfekt/internal/middleware"
	"github.com/hitoshi/konsfekt/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Get(ctx context.Context, id string) (*model.User, error)
	ListByRole(ctx context.Context, role model.Role) ([]*model.User, error)
	ChangeName(ctx context.Context, id, name string) error
	SetRole(ctx context.Context, id string, role model.Role) error
	SetBalance(ctx context.Context, id string, balance float64) error
	SetHidden(ctx context.Context, id string, hidden bool) error
	Withdraw(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// EmailSwitchInitiator はメール切替開始のインターフェース。
type EmailSwitchInitiator interface {
	Initiate(ctx context.Context, userID string) error
}

// UserHandler はユーザープロフィールと管理操作のHTTPハンドラー。
type UserHandler struct {
	service  UserServiceInterface
	switches EmailSwitchInitiator
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, switches EmailSwitchInitiator) *UserHandler {
	return &UserHandler{
		service:  service,
		switches: switches,
	}
}

// userResponse はユーザーのAPIレスポンス表現。
type userResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Role    string  `json:"role"`
	Balance float64 `json:"balance"`
	Hidden  bool    `json:"hidden"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Role:    u.Role.String(),
		Balance: u.Balance,
		Hidden:  u.Hidden,
	}
}

// ListByRole は指定ロールのユーザー一覧を返す。管理画面用。
// GET /api/users?role=user
func (h *UserHandler) ListByRole(w http.ResponseWriter, r *http.Request) {
	role, err := model.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("role"))
		return
	}

	users, err := h.service.ListByRole(r.Context(), role)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// changeNameRequest は表示名変更のリクエストボディ。
type changeNameRequest struct {
	Name string `json:"name"`
}

// ChangeName は現在のユーザーの表示名を変更する。
// PUT /api/users/me/name
func (h *UserHandler) ChangeName(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req changeNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("name"))
		return
	}

	if err := h.service.ChangeName(r.Context(), user.ID, req.Name); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setHiddenRequest は非表示フラグ変更のリクエストボディ。
type setHiddenRequest struct {
	Hidden bool `json:"hidden"`
}

// SetHidden は現在のユーザーの集計上の非表示フラグを変更する。
// PUT /api/users/me/hidden
func (h *UserHandler) SetHidden(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req setHiddenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("hidden"))
		return
	}

	if err := h.service.SetHidden(r.Context(), user.ID, req.Hidden); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Withdraw は現在のユーザーの退会処理を行う。
// 全セッションを破棄してCookieをクリアする。ユーザー行は残る。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Withdraw(r.Context(), user.ID); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// ChangeEmail はメール切替を開始し、Googleログインへリダイレクトする。
// ブラウザ遷移用のエントリポイントで、期限内に新しいGoogleアカウントで
// 認証を完了すると切替が確定する。
// GET /api/auth/change_email
func (h *UserHandler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.switches.Initiate(r.Context(), user.ID); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	http.Redirect(w, r, "/auth/google/login", http.StatusTemporaryRedirect)
}

// InitiateEmailSwitch は現在のユーザーのメール切替を開始する。
// 短いTTLの保留リクエストが記録され、期限内に新しいGoogleアカウントで
// ログインフローを完了すると切替が確定する。
// POST /api/users/me/email-switch
func (h *UserHandler) InitiateEmailSwitch(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.switches.Initiate(r.Context(), user.ID); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// setRoleRequest はロール変更のリクエストボディ。
type setRoleRequest struct {
	Role string `json:"role"`
}

// SetRole は指定ユーザーのロールを変更する。Admin専用。
// PUT /api/users/{id}/role
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("role"))
		return
	}

	role, err := model.ParseRole(req.Role)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("role"))
		return
	}

	if err := h.service.SetRole(r.Context(), chi.URLParam(r, "id"), role); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setBalanceRequest は残高調整のリクエストボディ。
type setBalanceRequest struct {
	Balance float64 `json:"balance"`
}

// SetBalance は指定ユーザーの残高を直接設定する。Admin専用。
// PUT /api/users/{id}/balance
func (h *UserHandler) SetBalance(w http.ResponseWriter, r *http.Request) {
	var req setBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("balance"))
		return
	}

	if err := h.service.SetBalance(r.Context(), chi.URLParam(r, "id"), req.Balance); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete は指定ユーザーを削除する。Admin専用。
// DELETE /api/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
