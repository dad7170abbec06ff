package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/hitoshi/konsfekt/internal/middleware"
	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/verification"
)

// VerificationServiceInterface は本人確認ハンドラーが必要とするサービスインターフェース。
type VerificationServiceInterface interface {
	Start(ctx context.Context, endUserIP string) (*verification.StartResult, error)
	Finalize(ctx context.Context, nonce string) (*verification.FinalizeResult, error)
}

// VerificationHandler はBankID本人確認のHTTPハンドラー。
type VerificationHandler struct {
	service VerificationServiceInterface
	config  AuthHandlerConfig
}

// NewVerificationHandler はVerificationHandlerを生成する。
func NewVerificationHandler(service VerificationServiceInterface, config AuthHandlerConfig) *VerificationHandler {
	return &VerificationHandler{
		service: service,
		config:  config,
	}
}

// Start は本人確認オーダーを開始し、BankIDアプリの起動情報を返す。
// POST /auth/bankid/start
func (h *VerificationHandler) Start(w http.ResponseWriter, r *http.Request) {
	ip := requestIP(r)
	if ip == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("end user IP"))
		return
	}

	result, err := h.service.Start(r.Context(), ip)
	if err != nil {
		slog.Error("failed to start verification", slog.String("error", err.Error()))
		if errors.Is(err, verification.ErrProvider) {
			middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewIdentityProviderError())
			return
		}
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Finalize は照合値でオーダーの状態を確認し、完了していればセッションを発行する。
//
// pendingのオーダーには202を返し、クライアントは再試行する。
// failedのオーダーと未知の照合値には401を返す（失敗したオーダーは再利用できない）。
// GET /auth/bankid/finalize?nonce=xxx
func (h *VerificationHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	nonce := r.URL.Query().Get("nonce")
	if nonce == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("nonce"))
		return
	}

	result, err := h.service.Finalize(r.Context(), nonce)
	if err != nil {
		if errors.Is(err, verification.ErrOrderNotFound) {
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewOrderNotFoundError())
			return
		}
		slog.Error("failed to finalize verification", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	switch result.Status {
	case model.OrderStatusPending:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": string(result.Status)})

	case model.OrderStatusComplete:
		setSessionCookie(w, result.Session.ID, h.config.SessionMaxAge, h.config.CookieSecure)
		writeJSON(w, http.StatusOK, map[string]string{"status": string(result.Status)})

	default:
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewVerificationFailedError())
	}
}

// requestIP はリクエスト元のIPアドレスを返す。
func requestIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
