// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// UserType はアカウント種別を表す。
// 認証済みセッションは必ずいずれか1つのUserTypeを持つ。
type UserType string

const (
	// UserTypeProvider はサービス提供者（サロン）アカウント。
	UserTypeProvider UserType = "provider"
	// UserTypeCustomer は顧客アカウント。
	UserTypeCustomer UserType = "customer"
)

// ParseUserType は文字列をUserTypeに変換する。
func ParseUserType(s string) (UserType, error) {
	switch UserType(s) {
	case UserTypeProvider, UserTypeCustomer:
		return UserType(s), nil
	default:
		return "", fmt.Errorf("unknown user type: %q", s)
	}
}

// Role はuser_rolesテーブルのロールを表す。
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleProvider Role = "provider"
	RoleCustomer Role = "customer"
)

// Profile はユーザーのプロフィールを表す。profilesテーブルの1行に対応する。
type Profile struct {
	ID        string
	Email     string
	FullName  *string
	AvatarURL *string
	UserType  UserType
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName は表示用の名前を返す。FullNameが未設定の場合はEmailを返す。
func (p *Profile) DisplayName() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Email
}

// ProfileUpdate はプロフィールの部分更新を表す。
// nilフィールドは変更しない。
type ProfileUpdate struct {
	FullName  *string `json:"full_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// IsEmpty は更新対象のフィールドが1つもない場合にtrueを返す。
func (u ProfileUpdate) IsEmpty() bool {
	return u.FullName == nil && u.AvatarURL == nil
}

// UserRole はユーザーに付与されたロールを表す。
type UserRole struct {
	UserID    string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credential はパスワード認証情報を表す。PasswordHashはbcryptハッシュ。
type Credential struct {
	UserID       string
	PasswordHash string
}

// Session はユーザーのログインセッションを表す。
// UserTypeはセッション作成時にプロフィールから複製され、
// ワークスペースへの入場可否の唯一の判定材料となる。
type Session struct {
	ID        string
	UserID    string
	UserType  UserType
	ExpiresAt time.Time
	CreatedAt time.Time
}
