// Package security はアプリケーションのセキュリティ機能を提供する。
//
// InputSanitizerService はタスクのタイトル・説明などユーザー入力の
// テキストからHTMLを除去し、フロントエンドで表示した際のXSSから
// ユーザーを保護する。bluemondayのStrictPolicyにより全タグを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizerService はユーザー入力テキストのサニタイズ機能の
// インターフェースを定義する。保存前のタスク入力に対して使用される。
type InputSanitizerService interface {
	// Sanitize は入力テキストからHTMLタグを全て除去して返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// inputSanitizer はInputSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可タグを一切持たないため、scriptタグを含む全ての
// HTML要素とon*イベント属性が除去される。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力テキストからHTMLタグを全て除去して返す。
func (s *inputSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
