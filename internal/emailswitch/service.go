// Package emailswitch はログイン用メールアドレス切替の保留ワークフローを提供する。
//
// ユーザーが切替を開始すると短いTTL付きの保留リクエストが記録され、
// TTL内に新しいGoogleアカウントでOAuth認証を完了した場合のみ切替が確定する。
// 確定処理そのものはOAuthコールバック側（auth.Service）が行う。
package emailswitch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/konsfekt/internal/repository"
)

// Service はメール切替保留リクエストの開始と生存確認を提供する。
type Service struct {
	switches repository.EmailSwitchRepository
	ttl      time.Duration
}

// NewService はServiceを生成する。ttlは保留リクエストの有効期間。
func NewService(switches repository.EmailSwitchRepository, ttl time.Duration) *Service {
	return &Service{
		switches: switches,
		ttl:      ttl,
	}
}

// Initiate は指定ユーザーの切替リクエストを開始する。
// すでに保留中のリクエストがある場合はTTLウィンドウを現在時刻から延長する
// （ユーザーごとに高々1件という不変条件はUPSERTで保証される）。
func (s *Service) Initiate(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}

	if err := s.switches.Upsert(ctx, userID, time.Now()); err != nil {
		return fmt.Errorf("failed to initiate email switch: %w", err)
	}

	slog.Info("email switch initiated",
		slog.String("user_id", userID),
		slog.Duration("ttl", s.ttl),
	)
	return nil
}

// Live は指定ユーザーにTTL内の保留リクエストが存在するかを返す。
// 期限切れのリクエストは存在しないものとして扱う（遅延削除で構わない）。
func (s *Service) Live(ctx context.Context, userID string) (bool, error) {
	req, err := s.switches.Find(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to find email switch request: %w", err)
	}
	if req == nil {
		return false, nil
	}
	return time.Since(req.CreatedAt) < s.ttl, nil
}

// Cancel は指定ユーザーの保留リクエストを取り消す。存在しなくてもエラーにしない。
func (s *Service) Cancel(ctx context.Context, userID string) error {
	if err := s.switches.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to cancel email switch request: %w", err)
	}
	return nil
}

// TTL は保留リクエストの有効期間を返す。
func (s *Service) TTL() time.Duration {
	return s.ttl
}
