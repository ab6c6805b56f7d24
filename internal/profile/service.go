// Package profile はログイン中ユーザーのプロフィール取得・更新と、
// リクエスト単位の状態追跡（Tracker）を提供する。
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/salonhub/internal/model"
	"github.com/hitoshi/salonhub/internal/repository"
	"github.com/hitoshi/salonhub/internal/security"
)

var (
	// ErrNotFound はプロフィールが存在しないことを示す。再試行の対象外。
	ErrNotFound = errors.New("profile not found")
	// ErrNoSession はセッションが無い状態で操作したことを示す。
	ErrNoSession = errors.New("no active session")
)

const defaultFetchTimeout = 10 * time.Second

// 取得結果のラベル
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics はプロフィール取得の計測インターフェース。
type Metrics interface {
	ObserveProfileFetch(outcome string, duration time.Duration)
	IncProfileFetchRetry()
}

type noopMetrics struct{}

func (noopMetrics) ObserveProfileFetch(string, time.Duration) {}
func (noopMetrics) IncProfileFetchRetry()                     {}

// ServiceConfig はプロフィールサービスの設定。
type ServiceConfig struct {
	Retry        RetryPolicy
	FetchTimeout time.Duration
	// VerifyAvatar がtrueの場合、更新時にアバターURLへHEADリクエストを送り画像であることを確認する。
	VerifyAvatar       bool
	AvatarCheckTimeout time.Duration
}

// Service はprofilesテーブルへのアクセスをまとめる。
// 同一ユーザーIDへの同時取得はsingleflightで1回のクエリに集約される。
type Service struct {
	repo      repository.ProfileRepository
	sanitizer security.TextSanitizer
	avatars   security.AvatarValidator
	metrics   Metrics
	config    ServiceConfig
	group     singleflight.Group
}

// NewService はServiceを生成する。metricsはnil可。
func NewService(
	repo repository.ProfileRepository,
	sanitizer security.TextSanitizer,
	avatars security.AvatarValidator,
	metrics Metrics,
	config ServiceConfig,
) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = defaultFetchTimeout
	}
	if config.Retry.MaxAttempts == 0 {
		config.Retry = DefaultRetryPolicy()
	}
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		avatars:   avatars,
		metrics:   metrics,
		config:    config,
	}
}

// Get はプロフィールを取得する。失敗時はRetryPolicyに従って再試行する。
// 共有クエリは呼び出し元のキャンセルでは中断されず、各呼び出し元は自身のctxで待機を打ち切る。
func (s *Service) Get(ctx context.Context, userID string) (*model.Profile, error) {
	if userID == "" {
		return nil, ErrNoSession
	}

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(userID, func() (any, error) {
		return s.fetch(detached, userID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		p := *res.Val.(*model.Profile)
		return &p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) fetch(ctx context.Context, userID string) (*model.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	start := time.Now()
	var found *model.Profile
	err := s.config.Retry.Do(ctx, func(ctx context.Context) error {
		p, err := s.repo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrNotFound
		}
		found = p
		return nil
	}, func(attempt int, err error) {
		s.metrics.IncProfileFetchRetry()
		slog.Warn("profile fetch failed, retrying",
			slog.String("user_id", userID),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	})

	duration := time.Since(start)
	switch {
	case err == nil:
		s.metrics.ObserveProfileFetch(OutcomeSuccess, duration)
		return found, nil
	case errors.Is(err, ErrNotFound):
		s.metrics.ObserveProfileFetch(OutcomeNotFound, duration)
		return nil, ErrNotFound
	default:
		s.metrics.ObserveProfileFetch(OutcomeError, duration)
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
}

// Update は部分更新を検証して保存し、ストアが返した正規のレコードを返す。
// 検証エラーは*model.APIErrorで返す。
func (s *Service) Update(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error) {
	if userID == "" {
		return nil, ErrNoSession
	}

	clean, err := s.validate(ctx, update)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Update(ctx, userID, clean)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}

	// 更新前に開始された取得結果を後続の呼び出しに共有させない
	s.group.Forget(userID)

	slog.Info("profile updated", slog.String("user_id", userID))
	return p, nil
}

// validate は更新値を正規化する。
//   - full_name: タグを除去したプレーンテキスト。空は不可
//   - avatar_url: 公開http(s)URLのみ。VerifyAvatar時は画像であることも確認する
func (s *Service) validate(ctx context.Context, update model.ProfileUpdate) (model.ProfileUpdate, error) {
	if update.IsEmpty() {
		return model.ProfileUpdate{}, model.NewEmptyUpdateError()
	}

	var clean model.ProfileUpdate

	if update.FullName != nil {
		name := s.sanitizer.PlainText(*update.FullName)
		if name == "" {
			return model.ProfileUpdate{}, model.NewValidationError("Full name must not be empty.")
		}
		clean.FullName = &name
	}

	if update.AvatarURL != nil {
		avatar := strings.TrimSpace(*update.AvatarURL)
		if err := s.avatars.ValidateURL(avatar); err != nil {
			return model.ProfileUpdate{}, model.NewInvalidAvatarURLError(err.Error())
		}
		if s.config.VerifyAvatar {
			checkCtx, cancel := context.WithTimeout(ctx, s.avatarCheckTimeout())
			err := s.avatars.CheckImage(checkCtx, avatar)
			cancel()
			if err != nil {
				return model.ProfileUpdate{}, model.NewInvalidAvatarURLError(err.Error())
			}
		}
		clean.AvatarURL = &avatar
	}

	return clean, nil
}

func (s *Service) avatarCheckTimeout() time.Duration {
	if s.config.AvatarCheckTimeout > 0 {
		return s.config.AvatarCheckTimeout
	}
	return 5 * time.Second
}
