// Package verification はBankIDによる本人確認フローを提供する。
// オーダーの開始、バックグラウンドでの状態ポーリング、照合値による確定を含む。
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/konsfekt/internal/auth"
	"github.com/hitoshi/konsfekt/internal/bankid"
	"github.com/hitoshi/konsfekt/internal/metrics"
	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/repository"
)

// 呼び出し元がエラーの原因を区別するための番兵エラー。
var (
	// ErrOrderNotFound は照合値に対応するオーダーが存在しないことを表す。
	ErrOrderNotFound = errors.New("verification order not found")

	// ErrProvider はBankID API呼び出しの失敗を表す。永続化の失敗とは区別する。
	ErrProvider = errors.New("bankid request failed")
)

// BankIDClient はBankID RP APIクライアントのインターフェース。
type BankIDClient interface {
	Auth(ctx context.Context, endUserIP, returnURL string) (*bankid.OrderResponse, error)
	Collect(ctx context.Context, orderRef string) (*bankid.CollectResponse, error)
	Cancel(ctx context.Context, orderRef string) error
}

// StartResult はオーダー開始の結果。クライアントへ返す起動情報を含む。
type StartResult struct {
	OrderRef       string `json:"orderRef"`
	Nonce          string `json:"nonce"`
	AutoStartToken string `json:"autoStartToken"`
	QRStartToken   string `json:"qrStartToken"`
	QRStartSecret  string `json:"qrStartSecret"`
}

// FinalizeResult は照合値による確定の結果。
// Statusがcompleteの場合のみSessionが設定される。
type FinalizeResult struct {
	Status  model.OrderStatus
	Session *model.Session
}

// Service は本人確認フローのビジネスロジックを提供する。
type Service struct {
	orders   repository.VerificationOrderRepository
	client   BankIDClient
	resolver *auth.Resolver
	sessions *auth.SessionManager
	metrics  metrics.MetricsCollector
	logger   *slog.Logger

	baseURL         string
	pollInterval    time.Duration
	pollMaxDuration time.Duration
}

// NewService はServiceを生成する。
// baseURLは照合値付きreturnUrlの組み立てに使用する。
func NewService(
	orders repository.VerificationOrderRepository,
	client BankIDClient,
	resolver *auth.Resolver,
	sessions *auth.SessionManager,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	baseURL string,
	pollInterval time.Duration,
	pollMaxDuration time.Duration,
) *Service {
	return &Service{
		orders:          orders,
		client:          client,
		resolver:        resolver,
		sessions:        sessions,
		metrics:         collector,
		logger:          logger,
		baseURL:         baseURL,
		pollInterval:    pollInterval,
		pollMaxDuration: pollMaxDuration,
	}
}

// Start は本人確認オーダーを開始する。
//
// endUserIPは実際のエンドユーザーのIPアドレスで、空の場合はエラーになる。
// オーダーごとに一意な照合値（nonce）を生成し、returnUrlに埋め込んでBankIDへ渡す。
// オーダーの永続化後、状態ポーリングのゴルーチンを1つだけ起動する。
// ポーリングはHTTPリクエストと独立したライフサイクルを持ち、
// 最大継続時間を超えた場合はオーダーを取り消して失敗として終端する。
func (s *Service) Start(ctx context.Context, endUserIP string) (*StartResult, error) {
	if endUserIP == "" {
		return nil, fmt.Errorf("end user IP is required")
	}

	nonce := uuid.New().String()
	returnURL := fmt.Sprintf("%s/verify?nonce=%s", s.baseURL, url.QueryEscape(nonce))

	order, err := s.client.Auth(ctx, endUserIP, returnURL)
	if err != nil {
		return nil, fmt.Errorf("failed to start verification order: %w: %v", ErrProvider, err)
	}

	now := time.Now()
	if err := s.orders.Create(ctx, &model.VerificationOrder{
		OrderRef:  order.OrderRef,
		Nonce:     nonce,
		Status:    model.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("failed to persist verification order: %w", err)
	}

	s.metrics.RecordVerificationStarted()
	s.logger.Info("本人確認オーダーを開始しました",
		slog.String("order_ref", order.OrderRef),
	)

	p := &poller{
		orders:      s.orders,
		client:      s.client,
		resolver:    s.resolver,
		metrics:     s.metrics,
		logger:      s.logger,
		interval:    s.pollInterval,
		maxDuration: s.pollMaxDuration,
	}
	go p.run(order.OrderRef)

	return &StartResult{
		OrderRef:       order.OrderRef,
		Nonce:          nonce,
		AutoStartToken: order.AutoStartToken,
		QRStartToken:   order.QRStartToken,
		QRStartSecret:  order.QRStartSecret,
	}, nil
}

// Finalize は照合値でオーダーを検索し、現在の状態を返す。
//
// オーダーが見つからない場合はErrOrderNotFound、pendingの場合はセッションなしで状態のみ、
// completeの場合は解決済みユーザーのセッションを発行して返す。
// 状態の判定は永続化済みのオーダー行のみに基づき、BankID APIへの
// 追加呼び出しは行わない（状態更新はポーラーの専任）。
func (s *Service) Finalize(ctx context.Context, nonce string) (*FinalizeResult, error) {
	if nonce == "" {
		return nil, fmt.Errorf("nonce is required")
	}

	order, err := s.orders.FindByNonce(ctx, nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to find verification order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	result := &FinalizeResult{Status: order.Status}

	if order.Status == model.OrderStatusComplete {
		if order.UserID == "" {
			return nil, fmt.Errorf("completed order has no resolved user")
		}
		session, err := s.sessions.Create(ctx, order.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		result.Session = session

		s.metrics.RecordLoginSuccess("bankid")
		s.logger.Info("本人確認によるログインが完了しました",
			slog.String("order_ref", order.OrderRef),
			slog.String("user_id", order.UserID),
		)
	}

	return result, nil
}
