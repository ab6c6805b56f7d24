package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/salonhub/internal/model"
)

const profileColumns = `id, email, full_name, avatar_url, user_type, created_at, updated_at`

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`,
		id,
	)

	profile, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by ID: %w", err)
	}
	return profile, nil
}

// Update はnilでないフィールドのみを更新し、RETURNINGで得た行を返す。
// 呼び出し側はローカルでマージせず、この戻り値で置き換えること。
func (r *PostgresProfileRepo) Update(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE profiles
		 SET full_name = COALESCE($2, full_name),
		     avatar_url = COALESCE($3, avatar_url),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+profileColumns,
		id, update.FullName, update.AvatarURL,
	)

	profile, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}

// scanProfile はprofileColumnsの順序で1行を読み取る。
func scanProfile(row *sql.Row) (*model.Profile, error) {
	p := &model.Profile{}
	var userType string
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &userType, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.UserType = model.UserType(userType)
	return p, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
