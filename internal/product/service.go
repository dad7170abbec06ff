// Package product は商品カタログの管理機能を提供する。
package product

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/repository"
	"github.com/hitoshi/konsfekt/internal/security"
)

// Service は商品カタログのビジネスロジックを提供する。
// 名前と説明はXSS対策のため保存前にサニタイズされる。
type Service struct {
	products  repository.ProductRepository
	sanitizer *security.InputSanitizer
}

// NewService はServiceを生成する。
func NewService(products repository.ProductRepository, sanitizer *security.InputSanitizer) *Service {
	return &Service{
		products:  products,
		sanitizer: sanitizer,
	}
}

// CreateInput は商品作成の入力。
type CreateInput struct {
	Name        string
	Price       float64
	Description string
	Stock       *int
	Flags       *model.ProductFlags
}

// Create は商品を作成する。フラグ未指定時はデフォルト（編集可・新商品バッジなし）になる。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Product, error) {
	name := s.sanitizer.SanitizeText(input.Name)
	if name == "" {
		return nil, model.NewMissingFieldError("name")
	}
	if input.Price < 0 {
		return nil, model.NewInvalidAmountError(0)
	}

	flags := model.DefaultProductFlags()
	if input.Flags != nil {
		flags = *input.Flags
	}

	now := time.Now()
	product := &model.Product{
		ID:          uuid.New().String(),
		Name:        name,
		Price:       input.Price,
		Description: s.sanitizer.SanitizeText(input.Description),
		Stock:       input.Stock,
		Flags:       flags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	slog.Info("product created",
		slog.String("product_id", product.ID),
		slog.String("name", product.Name),
	)
	return product, nil
}

// Get は指定IDの商品を取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(id)
	}
	return product, nil
}

// List は全商品を新しい順に返す。
func (s *Service) List(ctx context.Context) ([]*model.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// UpdateInput は商品更新の入力。nilのフィールドは変更しない。
type UpdateInput struct {
	Name        *string
	Price       *float64
	Description *string
	Stock       *int
	Flags       *model.ProductFlags
}

// Update は商品情報を更新する。
// 編集不可フラグが立っている商品はAdminのみ変更できる。
func (s *Service) Update(ctx context.Context, id string, callerRole model.Role, input UpdateInput) (*model.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !product.Flags.Modifiable && !callerRole.AtLeast(model.RoleAdmin) {
		return nil, model.NewProductNotModifiableError()
	}

	if input.Name != nil {
		name := s.sanitizer.SanitizeText(*input.Name)
		if name == "" {
			return nil, model.NewMissingFieldError("name")
		}
		product.Name = name
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, model.NewInvalidAmountError(0)
		}
		product.Price = *input.Price
	}
	if input.Description != nil {
		product.Description = s.sanitizer.SanitizeText(*input.Description)
	}
	if input.Stock != nil {
		product.Stock = input.Stock
	}
	if input.Flags != nil {
		product.Flags = *input.Flags
	}
	product.UpdatedAt = time.Now()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	slog.Info("product updated", slog.String("product_id", product.ID))
	return product, nil
}

// Delete は指定IDの商品を削除する。
// 編集不可フラグが立っている商品はAdminのみ削除できる。
func (s *Service) Delete(ctx context.Context, id string, callerRole model.Role) error {
	product, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if !product.Flags.Modifiable && !callerRole.AtLeast(model.RoleAdmin) {
		return model.NewProductNotModifiableError()
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	slog.Info("product deleted", slog.String("product_id", id))
	return nil
}
