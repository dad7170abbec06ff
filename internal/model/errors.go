package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, payment, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeAccessDenied         = "ACCESS_DENIED"
	ErrCodeIdentityProvider     = "IDENTITY_PROVIDER_ERROR"
	ErrCodeVerificationFailed   = "VERIFICATION_FAILED"
	ErrCodeOrderNotFound        = "ORDER_NOT_FOUND"
	ErrCodeMissingField         = "MISSING_FIELD"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeProductNotModifiable = "PRODUCT_NOT_MODIFIABLE"
	ErrCodeInsufficientBalance  = "INSUFFICIENT_BALANCE"
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証されていません。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewAccessDeniedError は権限不足エラーを生成する。
func NewAccessDeniedError(path string) *APIError {
	return &APIError{
		Code:     ErrCodeAccessDenied,
		Message:  fmt.Sprintf("この操作を行う権限がありません: %s", path),
		Category: "auth",
		Action:   "必要な権限を持つアカウントでログインしてください。",
	}
}

// NewIdentityProviderError は外部IdPとの通信失敗エラーを生成する。
// 呼び出し元でのリトライは行わない（現在のリクエストに対して致命的）。
func NewIdentityProviderError() *APIError {
	return &APIError{
		Code:     ErrCodeIdentityProvider,
		Message:  "認証プロバイダーとの通信に失敗しました。",
		Category: "auth",
		Action:   "しばらく待ってから再度ログインをお試しください。",
	}
}

// NewVerificationFailedError は本人確認の失敗エラーを生成する。
func NewVerificationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeVerificationFailed,
		Message:  "BankID本人確認に失敗しました。",
		Category: "auth",
		Action:   "新しい本人確認を開始してください。失敗したオーダーは再利用できません。",
	}
}

// NewOrderNotFoundError は照合値に対応するオーダーが見つからない場合のエラーを生成する。
func NewOrderNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeOrderNotFound,
		Message:  "対応する本人確認オーダーが見つかりません。",
		Category: "auth",
		Action:   "新しい本人確認を開始してください。",
	}
}

// NewMissingFieldError は必須フィールド欠落エラーを生成する。
func NewMissingFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingField,
		Message:  fmt.Sprintf("必須フィールドが指定されていません: %s", field),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %s", productID),
		Category: "validation",
		Action:   "商品IDを確認してください。",
	}
}

// NewProductNotModifiableError は編集不可商品への変更エラーを生成する。
func NewProductNotModifiableError() *APIError {
	return &APIError{
		Code:     ErrCodeProductNotModifiable,
		Message:  "この商品は管理者のみが編集できます。",
		Category: "validation",
		Action:   "管理者に変更を依頼してください。",
	}
}

// NewInsufficientBalanceError は残高不足エラーを生成する。
func NewInsufficientBalanceError() *APIError {
	return &APIError{
		Code:     ErrCodeInsufficientBalance,
		Message:  "残高が不足しています。",
		Category: "payment",
		Action:   "Swishで残高をチャージしてから再度お試しください。",
	}
}

// NewInvalidAmountError は金額不正エラーを生成する。
func NewInvalidAmountError(min float64) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAmount,
		Message:  fmt.Sprintf("金額が不正です。最低金額は%.0f SEKです。", min),
		Category: "payment",
		Action:   "金額を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
