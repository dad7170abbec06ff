// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/konsfekt/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByGoogleID はGoogleのsubでユーザーを検索する。見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// FindByPersonalNumber はBankIDの人格番号でユーザーを検索する。見つからない場合はnilを返す。
	FindByPersonalNumber(ctx context.Context, personalNumber string) (*model.User, error)

	// HasAny はユーザーが1人でも存在するかを返す。
	// 初回ユーザーへのAdmin付与（ブートストラップ規則）の判定に使用する。
	HasAny(ctx context.Context) (bool, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザーの全フィールドを更新する。
	Update(ctx context.Context, user *model.User) error

	// UpdateName は表示名のみを更新する。
	UpdateName(ctx context.Context, id, name string) error

	// UpdateBalance は残高のみを更新する。
	UpdateBalance(ctx context.Context, id string, balance float64) error

	// ListByRole は指定ロールのユーザー一覧を返す。
	ListByRole(ctx context.Context, role model.Role) ([]*model.User, error)

	// FinalizeEmailSwitch はユーザーのemail/google_idの書き換えと
	// 保留中のメール切替リクエストの削除を同一トランザクションで行う。
	FinalizeEmailSwitch(ctx context.Context, userID, email, googleID string) error

	// DeleteByID は指定IDのユーザーを削除する。管理操作専用。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。
	// 見つからない場合・期限切れの場合はどちらもnilを返す（区別しない）。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しなくてもエラーにしない（冪等）。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// VerificationOrderRepository はBankID本人確認オーダーの永続化インターフェース。
type VerificationOrderRepository interface {
	// Create はオーダーを作成する。
	Create(ctx context.Context, order *model.VerificationOrder) error

	// FindByNonce は照合値でオーダーを検索する。見つからない場合はnilを返す。
	FindByNonce(ctx context.Context, nonce string) (*model.VerificationOrder, error)

	// Update はオーダーの状態と解決済みユーザーIDを更新する。
	// 現在の状態がpendingの行のみ更新する（終端状態からの巻き戻しを構造的に防ぐ）。
	Update(ctx context.Context, orderRef string, status model.OrderStatus, userID string) error
}

// EmailSwitchRepository はメール切替保留リクエストの永続化インターフェース。
type EmailSwitchRepository interface {
	// Upsert はユーザーIDをキーに保留リクエストを作成または更新する。
	// 既存行がある場合はcreated_atを現在時刻に更新する（TTLウィンドウの延長）。
	// ユーザーごとに高々1行という不変条件を構造的に保証する。
	Upsert(ctx context.Context, userID string, createdAt time.Time) error

	// Find は指定ユーザーの保留リクエストを取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, userID string) (*model.EmailSwitchRequest, error)

	// Delete は指定ユーザーの保留リクエストを削除する。存在しなくてもエラーにしない。
	Delete(ctx context.Context, userID string) error
}

// ProductRepository は商品データの永続化インターフェース。
type ProductRepository interface {
	// Create は商品を作成する。
	Create(ctx context.Context, product *model.Product) error
	// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Product, error)
	// List は全商品を新しい順に返す。
	List(ctx context.Context) ([]*model.Product, error)
	// Update は商品情報を更新する。
	Update(ctx context.Context, product *model.Product) error
	// UpdateStock は在庫数のみを更新する。nilは在庫管理なしを意味する。
	UpdateStock(ctx context.Context, id string, stock *int) error
	// Delete は指定IDの商品を削除する。
	Delete(ctx context.Context, id string) error
}

// TransactionRepository は取引データの永続化インターフェース。
type TransactionRepository interface {
	// CreatePurchase は取引と明細の作成、購入者の残高更新、在庫管理対象商品の
	// 在庫更新を同一トランザクションで行う。途中で失敗した場合は何も反映されない。
	// stockは商品IDから更新後の在庫数へのマップで、含まれる商品のみ更新する。
	CreatePurchase(ctx context.Context, tx *model.Transaction, balance float64, stock map[string]*int) error

	// ListByUserID は指定ユーザーの取引一覧を明細付きで新しい順に返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Transaction, error)

	// ListAll は全取引を明細付きで新しい順に返す。管理画面用。
	ListAll(ctx context.Context) ([]*model.Transaction, error)

	// ProductTotals は指定時刻以降の商品ごとの販売集計を返す。
	ProductTotals(ctx context.Context, since time.Time) ([]model.ProductStat, error)

	// UserTotals は指定時刻以降のユーザーごとの購入集計を返す。
	UserTotals(ctx context.Context, since time.Time) ([]model.UserStat, error)
}

// PaymentRepository はSwish支払いリクエストの永続化インターフェース。
type PaymentRepository interface {
	// Create は支払いリクエストを作成する。
	Create(ctx context.Context, req *model.PaymentRequest) error

	// FindByToken はSwishトークンで支払いリクエストを検索する。見つからない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.PaymentRequest, error)

	// MarkPaid はpending状態の支払いリクエストをpaidに更新し、更新後の行を返す。
	// すでにpaidの場合はnilを返す（コールバックの二重配送を無害化する）。
	MarkPaid(ctx context.Context, id string) (*model.PaymentRequest, error)
}
