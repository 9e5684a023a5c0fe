package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// MetricsRecorder は認証イベントのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordSignup()
	RecordLogin()
	RecordLoginFailure()
}

// Service はサインアップ・ログインのビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	hasher   *PasswordHasher
	tokens   *TokenService
	metrics  MetricsRecorder
}

// NewService はServiceを生成する。
// metricsはnil可（記録を行わない）。
func NewService(userRepo repository.UserRepository, hasher *PasswordHasher, tokens *TokenService, metrics MetricsRecorder) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		metrics:  metrics,
	}
}

// Signup は新規ユーザーを登録し、アクセストークンを発行する。
// メールアドレスが登録済みの場合はEmailAlreadyRegisteredエラーを返す。
// 事前の存在チェックは親切なエラー表示のための早期判定であり、
// 一意性の強制点はDBのUNIQUE制約（repository.ErrDuplicateEmail）。
func (s *Service) Signup(ctx context.Context, email, name, password string) (*model.User, string, error) {
	email = strings.TrimSpace(email)

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, "", model.NewEmailAlreadyRegisteredError()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// 同時サインアップのレースはUNIQUE制約で捕捉される
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", model.NewEmailAlreadyRegisteredError()
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSignup()
	}
	slog.Info("new user signed up",
		slog.String("user_id", user.ID),
	)

	return user, token, nil
}

// Login は認証情報を検証し、アクセストークンを発行する。
// メールアドレス不明とパスワード不一致は外部から区別できないよう、
// どちらも同一のInvalidCredentialsエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = strings.TrimSpace(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		if s.metrics != nil {
			s.metrics.RecordLoginFailure()
		}
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLogin()
	}
	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)

	return user, token, nil
}

// GetUser は指定IDのユーザーを返す。見つからない場合はnilを返す。
func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}
