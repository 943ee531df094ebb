// Package catalog 外部番剧目录（Jikan v4）的只读客户端
// 带请求超时、客户端限流和 Redis 响应缓存
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"animeshelf/config"
	"animeshelf/internal/model"
	"animeshelf/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	// ErrRateLimited 上游返回 429
	ErrRateLimited = errors.New("catalog rate limited")
	// ErrUpstreamUnavailable 超时、5xx 或网络错误
	ErrUpstreamUnavailable = errors.New("catalog unavailable")
	// ErrInvalidArgument 参数不合法，未发出请求
	ErrInvalidArgument = errors.New("invalid catalog argument")

	errNotFound = errors.New("catalog item not found")
)

const maxBodySize = 4 << 20

// ResponseCache 响应缓存，*redis.Client 满足此接口
type ResponseCache interface {
	CacheResponse(ctx context.Context, key string, body []byte, ttl time.Duration) error
	CachedResponse(ctx context.Context, key string) ([]byte, bool, error)
}

// Client 目录客户端
type Client struct {
	http     *http.Client
	baseURL  string
	listURL  string
	limiter  *rate.Limiter
	cache    ResponseCache
	cacheTTL time.Duration
	locale   string
}

// New 创建客户端，cache 可为 nil
func New(cfg config.CatalogConfig, cache ResponseCache) *Client {
	interval := cfg.RequestInterval
	if interval <= 0 {
		interval = 400 * time.Millisecond
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		listURL:  strings.TrimRight(cfg.ListURL, "/"),
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		cache:    cache,
		cacheTTL: cfg.CacheTTL,
		locale:   cfg.Locale,
	}
}

type listResponse struct {
	Data []rawItem `json:"data"`
}

type itemResponse struct {
	Data rawItem `json:"data"`
}

// FetchTop 排行榜，filter 取 airing / upcoming / bypopularity / favorite，空串表示综合
func (c *Client) FetchTop(ctx context.Context, mediaType model.MediaType, page int, filter string) ([]Item, error) {
	if !mediaType.Valid() {
		return nil, fmt.Errorf("%w: media type %q", ErrInvalidArgument, mediaType)
	}
	if page < 1 {
		page = 1
	}
	q := url.Values{"page": {strconv.Itoa(page)}}
	if filter != "" {
		q.Set("filter", filter)
	}

	var resp listResponse
	if err := c.getJSON(ctx, c.baseURL+"/top/"+string(mediaType), q, true, &resp); err != nil {
		return nil, err
	}
	return c.mapItems(resp.Data, mediaType), nil
}

// FetchByID 单个作品，不存在时返回 (nil, nil)
func (c *Client) FetchByID(ctx context.Context, mediaType model.MediaType, id int64) (*Item, error) {
	if !mediaType.Valid() || id <= 0 {
		return nil, fmt.Errorf("%w: %s/%d", ErrInvalidArgument, mediaType, id)
	}

	var resp itemResponse
	err := c.getJSON(ctx, fmt.Sprintf("%s/%s/%d", c.baseURL, mediaType, id), nil, true, &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item := ItemFromRaw(resp.Data, mediaType, c.locale)
	return &item, nil
}

// Search 同时搜索动画和漫画，动画结果在前
func (c *Client) Search(ctx context.Context, query string) ([]Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Item{}, nil
	}

	types := []model.MediaType{model.MediaAnime, model.MediaManga}
	results := make([][]Item, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, mediaType := range types {
		g.Go(func() error {
			var resp listResponse
			q := url.Values{"q": {query}, "limit": {"10"}}
			if err := c.getJSON(gctx, c.baseURL+"/"+string(mediaType), q, true, &resp); err != nil {
				return err
			}
			results[i] = c.mapItems(resp.Data, mediaType)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(results[0])+len(results[1]))
	for _, r := range results {
		items = append(items, r...)
	}
	return items, nil
}

var seasons = map[string]bool{"winter": true, "spring": true, "summer": true, "fall": true}

// FetchBySeason 某年某季度的动画
func (c *Client) FetchBySeason(ctx context.Context, year int, season string) ([]Item, error) {
	season = strings.ToLower(season)
	if !seasons[season] || year < 1917 || year > 2100 {
		return nil, fmt.Errorf("%w: season %d/%s", ErrInvalidArgument, year, season)
	}

	var resp listResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/seasons/%d/%s", c.baseURL, year, season), nil, true, &resp); err != nil {
		return nil, err
	}
	return c.mapItems(resp.Data, model.MediaAnime), nil
}

func (c *Client) mapItems(raws []rawItem, mediaType model.MediaType) []Item {
	items := make([]Item, 0, len(raws))
	for _, raw := range raws {
		items = append(items, ItemFromRaw(raw, mediaType, c.locale))
	}
	return items
}

// getJSON 先查缓存，未命中时限流后请求上游并写回缓存
func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, cacheable bool, out interface{}) error {
	target := endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	cacheKey := strings.TrimPrefix(strings.TrimPrefix(target, c.baseURL), c.listURL)

	if cacheable && c.cache != nil {
		if body, found, err := c.cache.CachedResponse(ctx, cacheKey); err == nil && found {
			if err := json.Unmarshal(body, out); err == nil {
				return nil
			}
		}
	}

	body, err := c.fetch(ctx, target)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUpstreamUnavailable, cacheKey, err)
	}

	if cacheable && c.cache != nil && c.cacheTTL > 0 {
		if err := c.cache.CacheResponse(ctx, cacheKey, body, c.cacheTTL); err != nil {
			logger.Debug("写入目录缓存失败", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("目录请求失败", zap.String("url", target), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	logger.Debug("目录请求",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNotFound
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return body, nil
}

// IsUnavailable 上游限流或不可用，调用方应降级为空结果
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamUnavailable)
}
