// Package auth はパスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/salonhub/internal/model"
	"github.com/hitoshi/salonhub/internal/repository"
)

var (
	// ErrInvalidCredentials はメールアドレスまたはパスワードが一致しないことを示す。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken はメールアドレスが登録済みであることを示す。
	ErrEmailTaken = errors.New("email already registered")
	// ErrMissingField は必須項目が未入力であることを示す。
	ErrMissingField = errors.New("required field is missing")
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // 0の場合はDefaultBcryptCost
}

// RegisterInput はアカウント登録の入力値。
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	UserType model.UserType
}

// DemoAccount はseedコマンドで作成するデモアカウント。
type DemoAccount struct {
	Email    string
	Password string
	FullName string
	UserType model.UserType
}

// DemoAccounts はseedコマンドで作成されるアカウントの一覧。
var DemoAccounts = []DemoAccount{
	{Email: "provider@example.com", Password: "password", FullName: "Sarah Mitchell", UserType: model.UserTypeProvider},
	{Email: "customer@example.com", Password: "password", FullName: "Emma Thompson", UserType: model.UserTypeCustomer},
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	accounts    repository.AccountRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	// dummyHash は存在しないメールアドレスでも照合時間を揃えるためのハッシュ。
	dummyHash string
}

// NewService はServiceを生成する。
func NewService(
	accounts repository.AccountRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	dummy, err := HashPassword("salonhub-unused-password", config.BcryptCost)
	if err != nil {
		slog.Warn("failed to prepare dummy password hash", slog.String("error", err.Error()))
	}
	return &Service{
		accounts:    accounts,
		sessionRepo: sessionRepo,
		config:      config,
		dummyHash:   dummy,
	}
}

// Login はメールアドレスとパスワードを検証し、セッションを発行する。
// 認証に失敗した場合はErrInvalidCredentialsを返し、状態は変更しない。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	profile, credential, err := s.accounts.FindCredentialByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if profile == nil {
		if s.dummyHash != "" {
			_ = CheckPassword(s.dummyHash, password)
		}
		return nil, ErrInvalidCredentials
	}

	if err := CheckPassword(credential.PasswordHash, password); err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", profile.ID),
		slog.String("user_type", string(profile.UserType)),
	)
	return session, nil
}

// Register はアカウントを作成し、そのままログイン状態のセッションを発行する。
// メールアドレスは小文字に正規化して保存する。
// user_rolesにはUserTypeと同名のロールが付与される。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email", ErrMissingField)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password", ErrMissingField)
	}
	userType, err := model.ParseUserType(string(in.UserType))
	if err != nil {
		return nil, fmt.Errorf("%w: user type", ErrMissingField)
	}

	hash, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	profile := &model.Profile{
		ID:        uuid.New().String(),
		Email:     email,
		UserType:  userType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if name := strings.TrimSpace(in.FullName); name != "" {
		profile.FullName = &name
	}

	credential := &model.Credential{UserID: profile.ID, PasswordHash: hash}
	if err := s.accounts.CreateAccount(ctx, profile, credential, model.Role(userType)); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("new account registered",
		slog.String("user_id", profile.ID),
		slog.String("user_type", string(userType)),
	)

	session, err := s.createSession(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// FindSession はセッションIDから有効なセッションを取得する。
// 見つからないか期限切れの場合はnilを返す。
func (s *Service) FindSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// Roles はユーザーに付与されたロールを返す。
// adminロールは記録されるがワークスペースへの入場可否には影響しない。
func (s *Service) Roles(ctx context.Context, userID string) ([]model.Role, error) {
	roles, err := s.accounts.ListRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

// SeedDemoAccounts はデモアカウントが存在しなければ作成する。作成件数を返す。
func (s *Service) SeedDemoAccounts(ctx context.Context) (int, error) {
	created := 0
	for _, demo := range DemoAccounts {
		existing, _, err := s.accounts.FindCredentialByEmail(ctx, demo.Email)
		if err != nil {
			return created, fmt.Errorf("failed to look up %s: %w", demo.Email, err)
		}
		if existing != nil {
			continue
		}

		if _, err := s.Register(ctx, RegisterInput(demo)); err != nil {
			if errors.Is(err, ErrEmailTaken) {
				continue
			}
			return created, fmt.Errorf("failed to seed %s: %w", demo.Email, err)
		}
		created++
	}
	return created, nil
}

// createSession はプロフィールのUserTypeを複製したセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, profile *model.Profile) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    profile.ID,
		UserType:  profile.UserType,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
