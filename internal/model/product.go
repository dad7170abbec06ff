package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProductFlags は商品の属性フラグ。DBにはJSON文字列として保存する。
type ProductFlags struct {
	Modifiable bool `json:"modifiable"`  // falseの場合はAdminのみ編集可能
	NewProduct bool `json:"new_product"` // 新商品バッジ表示用
}

// DefaultProductFlags はフラグ未指定時のデフォルト値を返す。
func DefaultProductFlags() ProductFlags {
	return ProductFlags{Modifiable: true, NewProduct: false}
}

// ParseProductFlags はJSON文字列からProductFlagsを解析する。
func ParseProductFlags(s string) (ProductFlags, error) {
	var f ProductFlags
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return ProductFlags{}, fmt.Errorf("invalid product flags: %w", err)
	}
	return f, nil
}

// String はフラグのJSON表現を返す。
func (f ProductFlags) String() string {
	b, _ := json.Marshal(f)
	return string(b)
}

// Product は販売商品を表す。
// Stockがnilの場合は在庫数を管理しない商品を意味する。
type Product struct {
	ID          string
	Name        string
	Price       float64
	Description string
	Stock       *int
	Flags       ProductFlags
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Transaction は購入1回分の取引を表す。
// 商品の名前と価格は取引時点のスナップショットをItemsに保持する。
type Transaction struct {
	ID        string
	UserID    string
	Amount    float64
	CreatedAt time.Time
	Items     []TransactionItem
}

// TransactionItem は取引内の商品明細を表す。
type TransactionItem struct {
	ID            string
	TransactionID string
	ProductID     string
	Quantity      int
	Name          string  // 取引時点の商品名
	Price         float64 // 取引時点の単価
}

// PaymentStatus はSwish支払いリクエストの状態を表す。
type PaymentStatus string

const (
	// PaymentStatusPending は支払い待ちであることを示す。
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid は支払いが完了したことを示す。
	PaymentStatusPaid PaymentStatus = "paid"
)

// PaymentRequest は残高チャージ用のSwish支払いリクエストを表す。
type PaymentRequest struct {
	ID        string
	UserID    string
	Amount    float64
	Token     string // SwishのPaymentRequestToken
	Location  string // Swishが返すステータス確認用URL
	Status    PaymentStatus
	CreatedAt time.Time
}

// ProductStat は商品ごとの販売集計を表す。
type ProductStat struct {
	ProductID string
	Name      string
	Quantity  int
	Total     float64
}

// UserStat はユーザーごとの購入集計を表す。
// Hiddenなユーザーの名前は呼び出し側でマスクする。
type UserStat struct {
	UserID string
	Name   string
	Hidden bool
	Total  float64
}
