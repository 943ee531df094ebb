package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
)

// 外部片单状态码
const (
	ListStatusWatching  = 1
	ListStatusCompleted = 2
	ListStatusOnHold    = 3
	ListStatusDropped   = 4
	ListStatusPlanned   = 6
)

var listUsernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{2,32}$`)

// ListEntry 外部片单中的一条
type ListEntry struct {
	MediaID  int64
	Title    string
	ImageURL string
	Status   int
	Score    int
}

type rawListEntry struct {
	AnimeID        int64           `json:"anime_id"`
	AnimeTitle     json.RawMessage `json:"anime_title"`
	AnimeImagePath string          `json:"anime_image_path"`
	Status         int             `json:"status"`
	Score          int             `json:"score"`
}

// FetchUserList 外部用户已看完的动画，每页最多300条，offset 从0开始
// 返回空切片表示已到末尾
func (c *Client) FetchUserList(ctx context.Context, username string, offset int) ([]ListEntry, error) {
	if !listUsernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username %q", ErrInvalidArgument, username)
	}
	if offset < 0 {
		offset = 0
	}

	q := url.Values{
		"offset": {strconv.Itoa(offset)},
		"status": {strconv.Itoa(ListStatusCompleted)},
	}
	var raws []rawListEntry
	err := c.getJSON(ctx, fmt.Sprintf("%s/animelist/%s/load.json", c.listURL, url.PathEscape(username)), q, false, &raws)
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("%w: user %q not found", ErrInvalidArgument, username)
	}
	if err != nil {
		return nil, err
	}

	entries := make([]ListEntry, 0, len(raws))
	for _, raw := range raws {
		if raw.AnimeID <= 0 {
			continue
		}
		entries = append(entries, ListEntry{
			MediaID:  raw.AnimeID,
			Title:    flexibleString(raw.AnimeTitle),
			ImageURL: raw.AnimeImagePath,
			Status:   raw.Status,
			Score:    raw.Score,
		})
	}
	return entries, nil
}

// flexibleString 标题偶尔以数字形式返回
func flexibleString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
