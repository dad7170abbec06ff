package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/konsfekt/internal/middleware"
	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/transaction"
)

// TransactionServiceInterface は取引ハンドラーが必要とするサービスインターフェース。
type TransactionServiceInterface interface {
	Purchase(ctx context.Context, userID string, items []transaction.PurchaseItem) (*model.Transaction, error)
	History(ctx context.Context, userID string) ([]*model.Transaction, error)
	ListAll(ctx context.Context) ([]*model.Transaction, error)
}

// TransactionHandler は購入と取引履歴のHTTPハンドラー。
type TransactionHandler struct {
	service TransactionServiceInterface
}

// NewTransactionHandler はTransactionHandlerを生成する。
func NewTransactionHandler(service TransactionServiceInterface) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// purchaseRequest は購入のリクエストボディ。
type purchaseRequest struct {
	Items []transaction.PurchaseItem `json:"items"`
}

// Purchase は現在のユーザーの購入を処理する。
// POST /api/transactions
func (h *TransactionHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("items"))
		return
	}

	tx, err := h.service.Purchase(r.Context(), user.ID, req.Items)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// History は現在のユーザーの取引履歴を返す。
// GET /api/transactions
func (h *TransactionHandler) History(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	txs, err := h.service.History(r.Context(), user.ID)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// ListAll は全取引を返す。管理画面用。
// GET /api/transactions/all
func (h *TransactionHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.ListAll(r.Context())
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}
