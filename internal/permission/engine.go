// Package permission はパスごとの最小ロール要件に基づくアクセス制御を提供する。
package permission

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/hitoshi/konsfekt/internal/model"
)

// Engine はパスと最小ロールの対応表を保持し、アクセス可否を判定する。
// 対応表は起動時にJSONファイルから一度だけ読み込まれ、以後変更されない。
type Engine struct {
	table map[string]model.Role
}

// Load は権限テーブルをJSONファイルから読み込みEngineを生成する。
// ファイル形式はパスからロール名へのマップ（例: {"/api/products": "maintainer"}）。
// 未知のロール名が含まれる場合はエラーを返す。
func Load(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read permission table: %w", err)
	}
	return Parse(data)
}

// Parse はJSONバイト列から権限テーブルを構築する。
func Parse(data []byte) (*Engine, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse permission table: %w", err)
	}

	table := make(map[string]model.Role, len(raw))
	for path, roleName := range raw {
		role, err := model.ParseRole(roleName)
		if err != nil {
			return nil, fmt.Errorf("invalid role for path %q: %w", path, err)
		}
		table[path] = role
	}

	return &Engine{table: table}, nil
}

// Contains は指定パスが対応表に登録されているかを返す。
func (e *Engine) Contains(path string) bool {
	_, ok := e.table[path]
	return ok
}

// CheckAccess は指定ロールが指定パスへアクセスできるかを判定する。
// 対応表にないパスはフェイルオープンで許可し、警告ログを残す。
// 登録済みパスは要求ロール以上の場合のみ許可する。
func (e *Engine) CheckAccess(path string, role model.Role) bool {
	required, ok := e.table[path]
	if !ok {
		slog.Warn("path missing from permission table, allowing access",
			slog.String("path", path),
			slog.String("role", role.String()),
		)
		return true
	}
	return role.AtLeast(required)
}

// RequiredRole は指定パスの最小ロールを返す。未登録の場合はfalseを返す。
func (e *Engine) RequiredRole(path string) (model.Role, bool) {
	role, ok := e.table[path]
	return role, ok
}

// Paths は登録済みパスの一覧をソート済みで返す。デバッグ・監査用。
func (e *Engine) Paths() []string {
	paths := make([]string, 0, len(e.table))
	for path := range e.table {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
