package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/konsfekt/internal/metrics"
	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/repository"
)

// Service は残高チャージのビジネスロジックを提供する。
type Service struct {
	payments repository.PaymentRepository
	users    repository.UserRepository
	swish    SwishProvider
	metrics  metrics.MetricsCollector

	payeeAlias  string
	callbackURL string
	minAmount   float64
}

// NewService はServiceを生成する。
// minAmountを下回るチャージは拒否される。
func NewService(
	payments repository.PaymentRepository,
	users repository.UserRepository,
	swish SwishProvider,
	collector metrics.MetricsCollector,
	payeeAlias string,
	callbackURL string,
	minAmount float64,
) *Service {
	return &Service{
		payments:    payments,
		users:       users,
		swish:       swish,
		metrics:     collector,
		payeeAlias:  payeeAlias,
		callbackURL: callbackURL,
		minAmount:   minAmount,
	}
}

// CreateTopUp は指定ユーザーの残高チャージ用Swish支払いリクエストを作成する。
// 最低金額未満はエラーになる。
func (s *Service) CreateTopUp(ctx context.Context, userID string, amount float64) (*model.PaymentRequest, error) {
	if amount < s.minAmount {
		return nil, model.NewInvalidAmountError(s.minAmount)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	id := uuid.New().String()
	result, err := s.swish.CreatePaymentRequest(ctx, SwishPaymentRequest{
		PayeeAlias:            s.payeeAlias,
		Amount:                strconv.FormatFloat(amount, 'f', 2, 64),
		Currency:              "SEK",
		Message:               "Konsfekt saldo",
		CallbackURL:           s.callbackURL,
		PayeePaymentReference: id,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create swish payment request: %w", err)
	}

	req := &model.PaymentRequest{
		ID:        id,
		UserID:    userID,
		Amount:    amount,
		Token:     result.Token,
		Location:  result.Location,
		Status:    model.PaymentStatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.payments.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to persist payment request: %w", err)
	}

	slog.Info("top-up payment request created",
		slog.String("payment_id", req.ID),
		slog.String("user_id", userID),
		slog.Float64("amount", amount),
	)
	return req, nil
}

// HandleCallback はSwishからの支払い状態コールバックを処理する。
//
// statusがPAIDの場合のみ支払いを完了として記録し、ユーザーの残高を加算する。
// 完了済みリクエストへの再配送は何もしない（冪等）。残高の二重加算は
// リポジトリ側のpending→paidガードで構造的に防がれる。
func (s *Service) HandleCallback(ctx context.Context, paymentRef, status string) error {
	if status != "PAID" {
		slog.Info("ignoring non-paid payment callback",
			slog.String("payment_id", paymentRef),
			slog.String("status", status),
		)
		return nil
	}

	paid, err := s.payments.MarkPaid(ctx, paymentRef)
	if err != nil {
		return fmt.Errorf("failed to mark payment as paid: %w", err)
	}
	if paid == nil {
		// すでに処理済み、または未知のリクエスト
		return nil
	}

	user, err := s.users.FindByID(ctx, paid.UserID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.users.UpdateBalance(ctx, user.ID, user.Balance+paid.Amount); err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}

	s.metrics.RecordPaymentMarkedPaid()
	slog.Info("top-up completed",
		slog.String("payment_id", paid.ID),
		slog.String("user_id", paid.UserID),
		slog.Float64("amount", paid.Amount),
	)
	return nil
}

// Status はSwishトークンで支払いリクエストの現在状態を返す。
func (s *Service) Status(ctx context.Context, token string) (*model.PaymentRequest, error) {
	req, err := s.payments.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find payment request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("payment request not found")
	}
	return req, nil
}
