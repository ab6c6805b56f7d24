// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/salonhub/internal/model"
)

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// Update はnilでないフィールドのみを更新し、更新後の行をそのまま返す。
	// 対象が存在しない場合はnilを返す。
	Update(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error)
}

// AccountRepository はアカウント（プロフィール・認証情報・ロール）の永続化インターフェース。
type AccountRepository interface {
	// CreateAccount はprofiles、credentials、user_rolesを同一トランザクションで作成する。
	// メールアドレスが重複する場合はErrDuplicateEmailを返す。
	CreateAccount(ctx context.Context, profile *model.Profile, credential *model.Credential, role model.Role) error

	// FindCredentialByEmail はメールアドレスでプロフィールと認証情報を取得する。
	// 見つからない場合は両方nilを返す。
	FindCredentialByEmail(ctx context.Context, email string) (*model.Profile, *model.Credential, error)

	// ListRoles はユーザーに付与されたロールを返す。
	ListRoles(ctx context.Context, userID string) ([]model.Role, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
