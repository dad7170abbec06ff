package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizer はユーザー入力のテキストフィールドをサニタイズする。
// 商品名・説明・ユーザー名など、管理画面や一覧に表示される値の保存前に使用する。
// 許可リストは空（全タグ除去）で、プレーンテキストのみを通過させる。
type InputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerを生成する。
func NewInputSanitizer() *InputSanitizer {
	return &InputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はHTMLタグを除去し前後の空白を取り除いたテキストを返す。
// 同一入力に対して常に同一出力を返す（冪等）。
func (s *InputSanitizer) SanitizeText(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}
