// Package stats は販売・購入の集計機能を提供する。
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/repository"
)

// maskedName は非表示設定のユーザーに使う表示名。
const maskedName = "Anonym"

// Period は集計期間を表す。
type Period string

const (
	// PeriodWeek は直近7日間。
	PeriodWeek Period = "week"
	// PeriodMonth は直近30日間。
	PeriodMonth Period = "month"
	// PeriodAll は全期間。
	PeriodAll Period = "all"
)

// ParsePeriod は文字列からPeriodを解析する。空文字はPeriodAllになる。
func ParsePeriod(s string) (Period, error) {
	switch s {
	case "", string(PeriodAll):
		return PeriodAll, nil
	case string(PeriodWeek):
		return PeriodWeek, nil
	case string(PeriodMonth):
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("unknown period: %s", s)
	}
}

// since は集計の開始時刻を返す。
func (p Period) since(now time.Time) time.Time {
	switch p {
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodMonth:
		return now.AddDate(0, 0, -30)
	default:
		return time.Time{}
	}
}

// Service は集計のビジネスロジックを提供する。
type Service struct {
	transactions repository.TransactionRepository
}

// NewService はServiceを生成する。
func NewService(transactions repository.TransactionRepository) *Service {
	return &Service{transactions: transactions}
}

// ProductTotals は指定期間の商品ごとの販売集計を返す。
func (s *Service) ProductTotals(ctx context.Context, period Period) ([]model.ProductStat, error) {
	stats, err := s.transactions.ProductTotals(ctx, period.since(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate product totals: %w", err)
	}
	return stats, nil
}

// UserTotals は指定期間のユーザーごとの購入集計を返す。
// 非表示設定のユーザーは名前をマスクして返す。
func (s *Service) UserTotals(ctx context.Context, period Period) ([]model.UserStat, error) {
	stats, err := s.transactions.UserTotals(ctx, period.since(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate user totals: %w", err)
	}

	for i := range stats {
		if stats[i].Hidden {
			stats[i].Name = maskedName
		}
	}
	return stats, nil
}
