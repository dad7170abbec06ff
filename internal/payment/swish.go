// Package payment はSwishによる残高チャージ機能を提供する。
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// SwishPaymentRequest はSwish支払いリクエスト作成のパラメータ。
type SwishPaymentRequest struct {
	PayeeAlias            string `json:"payeeAlias"`
	Amount                string `json:"amount"`
	Currency              string `json:"currency"`
	Message               string `json:"message,omitempty"`
	CallbackURL           string `json:"callbackUrl"`
	PayeePaymentReference string `json:"payeePaymentReference,omitempty"`
}

// SwishPaymentResult は作成された支払いリクエストの参照情報。
// TokenはSwishアプリの起動に、Locationは状態確認に使用する。
type SwishPaymentResult struct {
	Token    string
	Location string
}

// SwishProvider はSwish支払いリクエスト作成のインターフェース。
type SwishProvider interface {
	CreatePaymentRequest(ctx context.Context, req SwishPaymentRequest) (*SwishPaymentResult, error)
}

// SwishClient はSwish Commerce APIのHTTPクライアント。
// 本番ではmTLSクライアント証明書が必要になる。httpClientは呼び出し側で
// 保護付きのものを渡す。
type SwishClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewSwishClient はSwishClientを生成する。baseURLは /swish-cpcapi/api/v1 までを含むこと。
func NewSwishClient(httpClient *http.Client, baseURL string) *SwishClient {
	return &SwishClient{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// CreatePaymentRequest は支払いリクエストを作成する。
// 成功時（201）のLocationヘッダーとPaymentRequestTokenヘッダーを返す。
func (c *SwishClient) CreatePaymentRequest(ctx context.Context, reqBody SwishPaymentRequest) (*SwishPaymentResult, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/paymentrequests", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, fmt.Errorf("missing Location header in payment response")
	}

	return &SwishPaymentResult{
		Token:    resp.Header.Get("PaymentRequestToken"),
		Location: location,
	}, nil
}

// compile-time interface check
var _ SwishProvider = (*SwishClient)(nil)
