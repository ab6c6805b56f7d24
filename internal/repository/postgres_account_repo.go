package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/salonhub/internal/model"
)

// ErrDuplicateEmail はメールアドレスが既に登録済みであることを示す。
var ErrDuplicateEmail = errors.New("email already registered")

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation = "23505"

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// CreateAccount はprofiles、credentials、user_rolesを同一トランザクションで作成する。
func (r *PostgresAccountRepo) CreateAccount(ctx context.Context, profile *model.Profile, credential *model.Credential, role model.Role) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (id, email, full_name, avatar_url, user_type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		profile.ID, profile.Email, profile.FullName, profile.AvatarURL, string(profile.UserType),
		profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO credentials (user_id, password_hash) VALUES ($1, $2)`,
		credential.UserID, credential.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`,
		profile.ID, string(role),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindCredentialByEmail はメールアドレスでプロフィールと認証情報を取得する。
// メールアドレスは大文字小文字を区別せずに照合する。
func (r *PostgresAccountRepo) FindCredentialByEmail(ctx context.Context, email string) (*model.Profile, *model.Credential, error) {
	p := &model.Profile{}
	c := &model.Credential{}
	var userType string

	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.email, p.full_name, p.avatar_url, p.user_type, p.created_at, p.updated_at,
		        c.password_hash
		 FROM profiles p
		 JOIN credentials c ON c.user_id = p.id
		 WHERE lower(p.email) = lower($1)`,
		email,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &userType, &p.CreatedAt, &p.UpdatedAt, &c.PasswordHash)

	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find credential by email: %w", err)
	}

	p.UserType = model.UserType(userType)
	c.UserID = p.ID
	return p, c, nil
}

// ListRoles はユーザーに付与されたロールを返す。
func (r *PostgresAccountRepo) ListRoles(ctx context.Context, userID string) ([]model.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, model.Role(role))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}

	return roles, nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
