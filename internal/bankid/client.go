// Package bankid はBankID Relying Party API (v6.0) のHTTPクライアントを提供する。
package bankid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OrderResponse は認証オーダー開始のレスポンス。
type OrderResponse struct {
	OrderRef       string `json:"orderRef"`
	AutoStartToken string `json:"autoStartToken"`
	QRStartToken   string `json:"qrStartToken"`
	QRStartSecret  string `json:"qrStartSecret"`
}

// CollectUser は完了した認証の本人情報。
type CollectUser struct {
	PersonalNumber string `json:"personalNumber"`
	Name           string `json:"name"`
	GivenName      string `json:"givenName"`
	Surname        string `json:"surname"`
}

// CompletionData は認証完了時に返される署名検証済みデータ。
type CompletionData struct {
	User CollectUser `json:"user"`
}

// CollectResponse はオーダー状態ポーリングのレスポンス。
// Statusはpending / complete / failedのいずれか。
type CollectResponse struct {
	OrderRef       string         `json:"orderRef"`
	Status         string         `json:"status"`
	HintCode       string         `json:"hintCode"`
	CompletionData CompletionData `json:"completionData"`
}

// Client はBankID RP APIを呼び出す。
// 本番ではmTLS付きクライアント証明書が必要だが、テスト環境のエンドポイントは
// 証明書なしで利用できる。httpClientは呼び出し側で保護付きのものを渡す。
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient はClientを生成する。baseURLは /rp/v6.0 までを含むこと。
func NewClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// authRequest は/authエンドポイントのリクエストボディ。
type authRequest struct {
	EndUserIP string `json:"endUserIp"`
	ReturnURL string `json:"returnUrl,omitempty"`
}

// Auth は認証オーダーを開始する。
// endUserIPは実際のエンドユーザーのIPアドレスでなければならない。
// returnURLは認証完了後にBankIDアプリがユーザーを戻すURL。
func (c *Client) Auth(ctx context.Context, endUserIP, returnURL string) (*OrderResponse, error) {
	if endUserIP == "" {
		return nil, fmt.Errorf("end user IP is required")
	}

	var resp OrderResponse
	if err := c.post(ctx, "/auth", authRequest{EndUserIP: endUserIP, ReturnURL: returnURL}, &resp); err != nil {
		return nil, fmt.Errorf("failed to start auth order: %w", err)
	}
	if resp.OrderRef == "" {
		return nil, fmt.Errorf("empty orderRef in auth response")
	}

	return &resp, nil
}

// collectRequest は/collectエンドポイントのリクエストボディ。
type collectRequest struct {
	OrderRef string `json:"orderRef"`
}

// Collect は指定オーダーの現在状態を取得する。
// pendingの間は繰り返し呼び出し、complete / failedで終端する。
func (c *Client) Collect(ctx context.Context, orderRef string) (*CollectResponse, error) {
	if orderRef == "" {
		return nil, fmt.Errorf("order ref is required")
	}

	var resp CollectResponse
	if err := c.post(ctx, "/collect", collectRequest{OrderRef: orderRef}, &resp); err != nil {
		return nil, fmt.Errorf("failed to collect order status: %w", err)
	}

	return &resp, nil
}

// cancelRequest は/cancelエンドポイントのリクエストボディ。
type cancelRequest struct {
	OrderRef string `json:"orderRef"`
}

// Cancel は進行中のオーダーを取り消す。ポーリング打ち切り時に呼ぶ。
func (c *Client) Cancel(ctx context.Context, orderRef string) error {
	if orderRef == "" {
		return fmt.Errorf("order ref is required")
	}
	var resp struct{}
	if err := c.post(ctx, "/cancel", cancelRequest{OrderRef: orderRef}, &resp); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	return nil
}

// post はJSONボディのPOSTリクエストを送信しレスポンスをデコードする。
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response body: %w", err)
	}

	return nil
}
