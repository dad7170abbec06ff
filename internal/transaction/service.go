// Package transaction は商品購入と取引履歴の機能を提供する。
package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/repository"
)

// Service は購入処理と取引履歴のビジネスロジックを提供する。
type Service struct {
	transactions repository.TransactionRepository
	products     repository.ProductRepository
	users        repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(
	transactions repository.TransactionRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
) *Service {
	return &Service{
		transactions: transactions,
		products:     products,
		users:        users,
	}
}

// PurchaseItem は購入する商品と数量。
type PurchaseItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Purchase は指定ユーザーの購入を処理する。
//
// 商品の名前と価格は購入時点のスナップショットとして明細に保存されるため、
// 後から商品が変更・削除されても履歴は変わらない。
// 残高不足の場合は取引を作成せずエラーを返す。
// 在庫管理対象の商品は在庫を数量分減らす。取引の作成・残高の減額・
// 在庫の更新は同一トランザクションで行われ、途中で失敗した場合は何も残らない。
func (s *Service) Purchase(ctx context.Context, userID string, items []PurchaseItem) (*model.Transaction, error) {
	if len(items) == 0 {
		return nil, model.NewMissingFieldError("items")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	var total float64
	txItems := make([]model.TransactionItem, 0, len(items))
	stockUpdates := make(map[string]*int)

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, model.NewMissingFieldError("quantity")
		}

		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to find product: %w", err)
		}
		if product == nil {
			return nil, model.NewProductNotFoundError(item.ProductID)
		}

		if product.Stock != nil {
			if *product.Stock < item.Quantity {
				return nil, fmt.Errorf("insufficient stock for product %s", product.ID)
			}
			remaining := *product.Stock - item.Quantity
			stockUpdates[product.ID] = &remaining
		}

		total += product.Price * float64(item.Quantity)
		txItems = append(txItems, model.TransactionItem{
			ID:        uuid.New().String(),
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Name:      product.Name,
			Price:     product.Price,
		})
	}

	if user.Balance < total {
		return nil, model.NewInsufficientBalanceError()
	}

	tx := &model.Transaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		Amount:    total,
		CreatedAt: time.Now(),
		Items:     txItems,
	}
	for i := range tx.Items {
		tx.Items[i].TransactionID = tx.ID
	}

	if err := s.transactions.CreatePurchase(ctx, tx, user.Balance-total, stockUpdates); err != nil {
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	slog.Info("purchase completed",
		slog.String("transaction_id", tx.ID),
		slog.String("user_id", userID),
		slog.Float64("amount", total),
	)
	return tx, nil
}

// History は指定ユーザーの取引一覧を新しい順に返す。
func (s *Service) History(ctx context.Context, userID string) ([]*model.Transaction, error) {
	txs, err := s.transactions.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// ListAll は全取引を新しい順に返す。管理画面用。
func (s *Service) ListAll(ctx context.Context) ([]*model.Transaction, error) {
	txs, err := s.transactions.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list all transactions: %w", err)
	}
	return txs, nil
}
