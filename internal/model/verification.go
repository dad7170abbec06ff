package model

import "time"

// OrderStatus はBankID本人確認オーダーのライフサイクル状態を表す。
// 遷移は Pending → Complete または Pending → Failed の一方向のみで、
// 終端状態に達した後は変化しない。
type OrderStatus string

const (
	// OrderStatusPending はオーダーが未完了であることを示す。
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusComplete は本人確認が成功したことを示す（終端）。
	OrderStatusComplete OrderStatus = "complete"
	// OrderStatusFailed は本人確認が失敗・期限切れしたことを示す（終端）。
	OrderStatusFailed OrderStatus = "failed"
)

// Terminal はこの状態が終端かどうかを返す。
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusComplete || s == OrderStatusFailed
}

// VerificationOrder はBankID本人確認の1回分の試行を表す。
// Nonceはローカル生成の照合値で、ブラウザ側がorderRefを知る前に
// 自分のオーダーを特定するために使う。UserIDは確認完了まで空。
type VerificationOrder struct {
	OrderRef  string // プロバイダーが発番するオーダー参照
	Nonce     string
	UserID    string // 解決済みユーザーID。未解決の場合は空
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EmailSwitchRequest はメールアドレス（外部ID）付け替えの保留リクエストを表す。
// ユーザーごとに高々1件で、TTL内に新しいOAuth認証が成功した場合のみ消費される。
type EmailSwitchRequest struct {
	UserID    string
	CreatedAt time.Time
}
