// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// Role はユーザーの権限レベルを表す。
// 数値の大小で比較する順序付き列挙であり、上位ロールは下位ロールの
// 権限要求を常に満たす（AdminはMaintainer要求を満たす等）。
type Role int

const (
	// RoleUser は一般ユーザー。新規作成時のデフォルトロール。
	RoleUser Role = iota
	// RoleBot は自動化クライアント用のロール。
	RoleBot
	// RoleMaintainer は店番・在庫管理を行う運用ロール。
	RoleMaintainer
	// RoleAdmin は全操作が可能な管理者ロール。
	RoleAdmin
)

// roleNames はロールと外部表現（permission table、DB）の対応。
var roleNames = map[Role]string{
	RoleUser:       "user",
	RoleBot:        "bot",
	RoleMaintainer: "maintainer",
	RoleAdmin:      "admin",
}

// String はロールの外部表現を返す。
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(r))
}

// AtLeast はこのロールがrequiredの権限要求を満たすかを返す。
// 比較は数値順序であり、集合の包含判定ではない。
func (r Role) AtLeast(required Role) bool {
	return r >= required
}

// ParseRole は外部表現からロールを解析する。
// 未知の表現の場合はエラーを返す。
func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return RoleUser, fmt.Errorf("unknown role: %q", s)
}

// User はサービス利用ユーザーを表す。
// GoogleID・PersonalNumberはそれぞれのIdPが発行する安定識別子で、
// 初回の本人確認成功時にレコードが作成される。暗黙に削除されることはない。
type User struct {
	ID             string
	Name           string // 表示名（省略可）
	Email          string
	GoogleID       string // Google OAuthのsub。未連携の場合は空
	PersonalNumber string // BankIDの人格番号。未連携の場合は空
	Role           Role
	Balance        float64 // 内部クレジット残高（SEK）
	Hidden         bool    // 統計等でユーザー名を非公開にするフラグ
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
// IDはcrypto/randで生成する不透明トークンで、Cookieにそのまま載せる。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
