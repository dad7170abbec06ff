// Package security は外部通信の保護と入力サニタイズを提供する。
package security

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// allowedSchemes は外部呼び出しで許可されるURLスキーム。
var allowedSchemes = []string{"https"}

// OutboundGuard は外部API（BankID RP API、Swish）への送信リクエストを保護する。
// safeurlによりプライベートIP・ループバック・リンクローカル・メタデータIPへの
// 接続がDialerレベルでブロックされ、DNS再バインディング攻撃にも対応する。
type OutboundGuard struct{}

// NewOutboundGuard はOutboundGuardを生成する。
func NewOutboundGuard() *OutboundGuard {
	return &OutboundGuard{}
}

// NewSafeClient は保護付きのHTTPクライアントを生成する。
// 外部決済・本人確認APIの呼び出しに使用する。
func (g *OutboundGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(443).
		Build()

	wrappedClient := safeurl.Client(config)
	return wrappedClient.Client
}

// ValidateEndpoint は設定された外部エンドポイントURLを起動時に検証する。
// httpsスキームと非空ホストのみ許可する。
func (g *OutboundGuard) ValidateEndpoint(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "https" {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, allowedSchemes)
	}

	if parsed.Hostname() == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	return nil
}
