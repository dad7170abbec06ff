package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/konsfekt/internal/middleware"
	"github.com/hitoshi/konsfekt/internal/model"
)

// PaymentServiceInterface は支払いハンドラーが必要とするサービスインターフェース。
type PaymentServiceInterface interface {
	CreateTopUp(ctx context.Context, userID string, amount float64) (*model.PaymentRequest, error)
	HandleCallback(ctx context.Context, paymentRef, status string) error
	Status(ctx context.Context, token string) (*model.PaymentRequest, error)
}

// PaymentHandler はSwish残高チャージのHTTPハンドラー。
type PaymentHandler struct {
	service PaymentServiceInterface
}

// NewPaymentHandler はPaymentHandlerを生成する。
func NewPaymentHandler(service PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// topUpRequest は残高チャージのリクエストボディ。
type topUpRequest struct {
	Amount float64 `json:"amount"`
}

// CreateTopUp は現在のユーザーの残高チャージを開始する。
// POST /api/payments/topup
func (h *PaymentHandler) CreateTopUp(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("amount"))
		return
	}

	payment, err := h.service.CreateTopUp(r.Context(), user.ID, req.Amount)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     payment.ID,
		"token":  payment.Token,
		"amount": payment.Amount,
		"status": payment.Status,
	})
}

// swishCallbackBody はSwishからのコールバックボディ。
type swishCallbackBody struct {
	PayeePaymentReference string `json:"payeePaymentReference"`
	Status                string `json:"status"`
}

// Callback はSwishからの支払い状態通知を処理する。
// 処理の成否にかかわらず200を返す（Swish側のリトライ制御に任せない）。
// POST /api/payments/callback
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var body swishCallbackBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("body"))
		return
	}

	if err := h.service.HandleCallback(r.Context(), body.PayeePaymentReference, body.Status); err != nil {
		slog.Error("failed to handle payment callback",
			slog.String("payment_id", body.PayeePaymentReference),
			slog.String("error", err.Error()),
		)
	}

	w.WriteHeader(http.StatusOK)
}

// Status はSwishトークンで支払いリクエストの状態を返す。
// GET /api/payments/{token}
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.Status(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     payment.ID,
		"status": payment.Status,
		"amount": payment.Amount,
	})
}
