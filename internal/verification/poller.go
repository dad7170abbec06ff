package verification

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/konsfekt/internal/auth"
	"github.com/hitoshi/konsfekt/internal/bankid"
	"github.com/hitoshi/konsfekt/internal/metrics"
	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/repository"
)

// poller は1つのオーダーの状態をBankID APIへ定期的に問い合わせ、
// 結果を永続化する。オーダーごとに1つだけ起動される。
type poller struct {
	orders      repository.VerificationOrderRepository
	client      BankIDClient
	resolver    *auth.Resolver
	metrics     metrics.MetricsCollector
	logger      *slog.Logger
	interval    time.Duration
	maxDuration time.Duration
}

// run はオーダーが終端状態に達するか最大継続時間を超えるまでポーリングを続ける。
// 元のHTTPリクエストのコンテキストには依存せず、独立したライフサイクルを持つ。
func (p *poller) run(orderRef string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.maxDuration)
	defer cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.abandon(orderRef)
			return
		case <-ticker.C:
			if done := p.poll(ctx, orderRef); done {
				return
			}
		}
	}
}

// poll は状態を1回問い合わせる。終端に達した場合はtrueを返す。
// 一時的なAPIエラーではポーリングを止めない。
func (p *poller) poll(ctx context.Context, orderRef string) bool {
	p.metrics.RecordVerificationPoll()

	resp, err := p.client.Collect(ctx, orderRef)
	if err != nil {
		p.logger.Warn("本人確認の状態取得に失敗しました",
			slog.String("order_ref", orderRef),
			slog.String("error", err.Error()),
		)
		return false
	}

	switch resp.Status {
	case string(model.OrderStatusPending):
		// 応答のたびに行を更新し、最終確認時刻を記録する
		if err := p.orders.Update(ctx, orderRef, model.OrderStatusPending, ""); err != nil {
			p.logger.Warn("本人確認オーダーの更新に失敗しました",
				slog.String("order_ref", orderRef),
				slog.String("error", err.Error()),
			)
		}
		return false

	case string(model.OrderStatusComplete):
		p.complete(ctx, orderRef, resp)
		return true

	default:
		// failedおよび未知の状態はすべて失敗として終端する
		p.fail(ctx, orderRef, resp.HintCode)
		return true
	}
}

// complete は完了した本人情報からユーザーを解決し、オーダーを終端する。
func (p *poller) complete(ctx context.Context, orderRef string, resp *bankid.CollectResponse) {
	user, err := p.resolver.ResolvePersonalNumber(ctx, resp.CompletionData.User.Name, resp.CompletionData.User.PersonalNumber)
	if err != nil {
		p.logger.Error("本人確認ユーザーの解決に失敗しました",
			slog.String("order_ref", orderRef),
			slog.String("error", err.Error()),
		)
		p.fail(ctx, orderRef, "userResolutionFailed")
		return
	}

	if err := p.orders.Update(ctx, orderRef, model.OrderStatusComplete, user.ID); err != nil {
		p.logger.Error("本人確認オーダーの更新に失敗しました",
			slog.String("order_ref", orderRef),
			slog.String("error", err.Error()),
		)
		return
	}

	p.metrics.RecordVerificationOutcome(string(model.OrderStatusComplete))
	p.logger.Info("本人確認オーダーが完了しました",
		slog.String("order_ref", orderRef),
		slog.String("user_id", user.ID),
	)
}

// fail はオーダーを失敗として終端する。
func (p *poller) fail(ctx context.Context, orderRef, hint string) {
	if err := p.orders.Update(ctx, orderRef, model.OrderStatusFailed, ""); err != nil {
		p.logger.Error("本人確認オーダーの更新に失敗しました",
			slog.String("order_ref", orderRef),
			slog.String("error", err.Error()),
		)
		return
	}

	p.metrics.RecordVerificationOutcome(string(model.OrderStatusFailed))
	p.logger.Info("本人確認オーダーが失敗しました",
		slog.String("order_ref", orderRef),
		slog.String("hint", hint),
	)
}

// abandon は最大継続時間を超えたオーダーを取り消し、失敗として終端する。
// タイムアウト済みのコンテキストは使えないため、短命の新しいコンテキストで行う。
func (p *poller) abandon(orderRef string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.client.Cancel(ctx, orderRef); err != nil {
		p.logger.Warn("本人確認オーダーの取り消しに失敗しました",
			slog.String("order_ref", orderRef),
			slog.String("error", err.Error()),
		)
	}

	p.fail(ctx, orderRef, "pollTimeout")
}
