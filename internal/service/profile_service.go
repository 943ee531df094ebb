package service

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"animeshelf/internal/model"
	"animeshelf/internal/repository"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)
	prefixPattern   = regexp.MustCompile(`^[A-Za-z0-9_]{1,32}$`)
)

// Presence 在线状态查询
type Presence interface {
	IsOnline(ctx context.Context, userID uint) (bool, error)
}

// ProfileService 用户资料
type ProfileService struct {
	profiles ProfileStore
	presence Presence
}

func NewProfileService(profiles ProfileStore, presence Presence) *ProfileService {
	return &ProfileService{profiles: profiles, presence: presence}
}

func (s *ProfileService) Get(ctx context.Context, id uint) (*model.Profile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrProfileNotFound
		}
		return nil, storeErr("get profile", err)
	}
	return p, nil
}

func (s *ProfileService) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	p, err := s.profiles.GetByUsername(ctx, username)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrProfileNotFound
		}
		return nil, storeErr("get profile", err)
	}
	return p, nil
}

// SetUsername 修改用户名，只允许本人操作
func (s *ProfileService) SetUsername(ctx context.Context, userID uint, username string) (*model.Profile, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, invalid("username must be 3-32 letters, digits or underscores")
	}
	if err := s.profiles.UpdateUsername(ctx, userID, username); err != nil {
		switch {
		case repository.IsDuplicate(err):
			return nil, ErrUsernameTaken
		case repository.IsNotFound(err):
			return nil, ErrProfileNotFound
		}
		return nil, storeErr("update username", err)
	}
	return s.Get(ctx, userID)
}

// SetAvatar 保存头像地址，仅接受 http(s) 链接
func (s *ProfileService) SetAvatar(ctx context.Context, userID uint, avatarURL string) (*model.Profile, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	avatarURL = strings.TrimSpace(avatarURL)
	if avatarURL != "" {
		u, err := url.Parse(avatarURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || len(avatarURL) > 255 {
			return nil, invalid("invalid avatar url")
		}
	}
	if err := s.profiles.UpdateAvatar(ctx, userID, avatarURL); err != nil {
		return nil, storeErr("update avatar", err)
	}
	return s.Get(ctx, userID)
}

// Search 按用户名前缀查找
func (s *ProfileService) Search(ctx context.Context, prefix string, limit int) ([]*model.Profile, error) {
	prefix = strings.TrimSpace(prefix)
	if !prefixPattern.MatchString(prefix) {
		return []*model.Profile{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	profiles, err := s.profiles.SearchByUsername(ctx, prefix, limit)
	if err != nil {
		return nil, storeErr("search profiles", err)
	}
	return profiles, nil
}

// IsOnline 查询失败时视为离线
func (s *ProfileService) IsOnline(ctx context.Context, userID uint) bool {
	if s.presence == nil {
		return false
	}
	online, err := s.presence.IsOnline(ctx, userID)
	return err == nil && online
}
