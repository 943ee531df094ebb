package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"animeshelf/internal/model"
	"animeshelf/internal/repository"
	"animeshelf/pkg/logger"
	"animeshelf/pkg/password"

	"go.uber.org/zap"
)

// TokenIssuer 签发访问令牌
type TokenIssuer interface {
	GenerateToken(userID uint, extraData map[string]interface{}) (string, error)
}

// AuthService 本地身份提供方：注册、登录并在首次登录时创建资料
type AuthService struct {
	accounts AccountStore
	profiles ProfileStore
	tokens   TokenIssuer
}

func NewAuthService(accounts AccountStore, profiles ProfileStore, tokens TokenIssuer) *AuthService {
	return &AuthService{accounts: accounts, profiles: profiles, tokens: tokens}
}

// Register 注册
func (s *AuthService) Register(ctx context.Context, email, plainPassword string) (*model.Profile, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", err
	}
	// 密码哈希
	hash, err := password.Hash(plainPassword)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) || errors.Is(err, password.ErrTooLong) {
			return nil, "", invalid("%s", err.Error())
		}
		return nil, "", err
	}

	account := &model.Account{
		Email:        email,
		PasswordHash: hash,
		LastSeen:     time.Now(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if repository.IsDuplicate(err) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", storeErr("create account", err)
	}

	return s.signIn(ctx, account.ID)
}

// Login 登录
func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*model.Profile, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", ErrBadCredentials
	}
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, "", ErrBadCredentials
		}
		return nil, "", storeErr("get account", err)
	}
	if !password.Verify(plainPassword, account.PasswordHash) {
		return nil, "", ErrBadCredentials
	}

	if err := s.accounts.TouchLastSeen(ctx, account.ID, time.Now()); err != nil {
		logger.Warn("更新最近登录时间失败", zap.Uint("user_id", account.ID), zap.Error(err))
	}
	return s.signIn(ctx, account.ID)
}

// EnsureProfile 首次登录时创建资料
func (s *AuthService) EnsureProfile(ctx context.Context, userID uint) (*model.Profile, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	profile, err := s.profiles.Ensure(ctx, userID)
	if err != nil {
		return nil, storeErr("ensure profile", err)
	}
	return profile, nil
}

func (s *AuthService) signIn(ctx context.Context, userID uint) (*model.Profile, string, error) {
	profile, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.GenerateToken(userID, map[string]interface{}{"username": profile.DisplayName()})
	if err != nil {
		return nil, "", err
	}
	return profile, token, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || len(email) > 128 {
		return "", invalid("invalid email address")
	}
	return email, nil
}
