package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/konsfekt/internal/middleware"
	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/stats"
)

// StatsServiceInterface は集計ハンドラーが必要とするサービスインターフェース。
type StatsServiceInterface interface {
	ProductTotals(ctx context.Context, period stats.Period) ([]model.ProductStat, error)
	UserTotals(ctx context.Context, period stats.Period) ([]model.UserStat, error)
}

// StatsHandler は販売・購入集計のHTTPハンドラー。
type StatsHandler struct {
	service StatsServiceInterface
}

// NewStatsHandler はStatsHandlerを生成する。
func NewStatsHandler(service StatsServiceInterface) *StatsHandler {
	return &StatsHandler{service: service}
}

// ProductTotals は商品ごとの販売集計を返す。
// GET /api/stats/products?period=week|month|all
func (h *StatsHandler) ProductTotals(w http.ResponseWriter, r *http.Request) {
	period, err := stats.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("period"))
		return
	}

	totals, err := h.service.ProductTotals(r.Context(), period)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// UserTotals はユーザーごとの購入集計を返す。非表示ユーザーの名前はマスク済み。
// GET /api/stats/users?period=week|month|all
func (h *StatsHandler) UserTotals(w http.ResponseWriter, r *http.Request) {
	period, err := stats.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("period"))
		return
	}

	totals, err := h.service.UserTotals(r.Context(), period)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}
