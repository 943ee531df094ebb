package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// -------------------- 统计 --------------------

type Stats struct {
	mu        sync.Mutex
	Total     int
	Succeeded int
	Failed    int
	latencies []time.Duration
}

func (s *Stats) Add(success bool, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Total++
	if !success {
		s.Failed++
		return
	}
	s.Succeeded++
	s.latencies = append(s.latencies, latency)
}

func (s *Stats) Report(title string, took time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Printf("\n=== %s ===\n", title)
	fmt.Printf("耗时: %v\n", took)
	fmt.Printf("总数: %d 成功: %d 失败: %d\n", s.Total, s.Succeeded, s.Failed)
	if len(s.latencies) == 0 {
		return
	}

	sorted := append([]time.Duration(nil), s.latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	pct := func(p float64) time.Duration { return sorted[int(float64(len(sorted)-1)*p)] }
	fmt.Printf("延迟 平均: %v p50: %v p95: %v 最大: %v\n",
		sum/time.Duration(len(sorted)), pct(0.5), pct(0.95), sorted[len(sorted)-1])
	if took > 0 {
		fmt.Printf("吞吐: %.2f/s\n", float64(s.Succeeded)/took.Seconds())
	}
}

// -------------------- HTTP --------------------

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type benchClient struct {
	base string
	http *http.Client
}

func (c *benchClient) call(ctx context.Context, method, path, token string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if env.Code != 0 {
		return fmt.Errorf("%s %s: code %d %s", method, path, env.Code, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

type benchUser struct {
	ID    uint
	Token string
}

func (c *benchClient) register(ctx context.Context) (benchUser, error) {
	var auth struct {
		Profile struct {
			ID uint `json:"id"`
		} `json:"profile"`
		AccessToken string `json:"access_token"`
	}
	err := c.call(ctx, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "bench-" + uuid.NewString() + "@example.com",
		"password": "bench-password",
	}, &auth)
	return benchUser{ID: auth.Profile.ID, Token: auth.AccessToken}, err
}

func runHTTPBench(ctx context.Context, c *benchClient, users []benchUser, concurrency, perWorker int) {
	fmt.Println("\n=== HTTP 接口并发测试开始 ===")
	fmt.Printf("目标: %s 并发: %d 每协程请求: %d\n", c.base, concurrency, perWorker)

	endpoints := []string{
		"/health",
		"/api/v1/feed",
		"/api/v1/feed?scope=friends",
		"/api/v1/library",
		"/api/v1/messages",
		"/api/v1/catalog/top",
	}

	stats := &Stats{}
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		id := i
		g.Go(func() error {
			user := users[id%len(users)]
			for j := 0; j < perWorker; j++ {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				path := endpoints[(id+j)%len(endpoints)]
				t := time.Now()
				err := c.call(gctx, http.MethodGet, path, user.Token, nil, nil)
				stats.Add(err == nil, time.Since(t))
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Report("HTTP 接口测试结果", time.Since(start))
}

// -------------------- WebSocket --------------------

type wsEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// runRealtimeBench 每个用户保持一个会话，向下一个用户发消息，
// 统计从发送到对方收到 message 推送的延迟
func runRealtimeBench(ctx context.Context, c *benchClient, users []benchUser, perUser int, timeout time.Duration) error {
	fmt.Println("\n=== 实时推送测试开始 ===")
	fmt.Printf("会话: %d 每用户消息: %d\n", len(users), perUser)

	wsURL, err := url.Parse(c.base)
	if err != nil {
		return err
	}
	wsURL.Scheme = strings.Replace(wsURL.Scheme, "http", "ws", 1)
	wsURL.Path = "/ws"

	var sent sync.Map // message id -> send time
	stats := &Stats{}
	expected := len(users) * perUser
	received := make(chan struct{}, expected)

	conns := make([]*websocket.Conn, len(users))
	defer func() {
		for _, conn := range conns {
			if conn != nil {
				conn.Close()
			}
		}
	}()

	for i, u := range users {
		q := wsURL.Query()
		q.Set("token", u.Token)
		wsURL.RawQuery = q.Encode()
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
		if err != nil {
			return fmt.Errorf("dial session %d: %w", u.ID, err)
		}
		conns[i] = conn

		go func(userID uint, conn *websocket.Conn) {
			for {
				var ev wsEvent
				if err := conn.ReadJSON(&ev); err != nil {
					return
				}
				if ev.Type != "message" {
					continue
				}
				var notice struct {
					ID      uint   `json:"id"`
					Op      string `json:"op"`
					UserIDs []uint `json:"user_ids"`
				}
				if json.Unmarshal(ev.Data, &notice) != nil || notice.Op != "insert" {
					continue
				}
				// 只统计接收方
				if len(notice.UserIDs) < 2 || notice.UserIDs[1] != userID {
					continue
				}
				if at, ok := sent.LoadAndDelete(notice.ID); ok {
					stats.Add(true, time.Since(at.(time.Time)))
					received <- struct{}{}
				}
			}
		}(u.ID, conn)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range users {
		sender := u
		receiver := users[(i+1)%len(users)]
		g.Go(func() error {
			for j := 0; j < perUser; j++ {
				var msg struct {
					ID uint `json:"id"`
				}
				t := time.Now()
				err := c.call(gctx, http.MethodPost, "/api/v1/messages", sender.Token, map[string]interface{}{
					"receiver_id": receiver.ID,
					"content":     fmt.Sprintf("bench %d from %d", j, sender.ID),
				}, &msg)
				if err != nil {
					stats.Add(false, 0)
					continue
				}
				// 推送可能先于响应到达，以请求发出时间为准
				sent.Store(msg.ID, t)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for got := 0; got < expected; got++ {
		select {
		case <-received:
		case <-deadline.C:
			fmt.Printf("等待推送超时，已收到 %d/%d\n", got, expected)
			got = expected
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	stats.Report("实时推送测试结果", time.Since(start))
	return nil
}

// -------------------- 入口 --------------------

type options struct {
	baseURL     string
	users       int
	concurrency int
	perWorker   int
	messages    int
	waitTimeout time.Duration
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:          "bench",
		Short:        "Load test the HTTP API and websocket pushes",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.baseURL, "base", "http://localhost:8080", "server base url")
	cmd.Flags().IntVar(&opts.users, "users", 10, "accounts to register")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 5, "http workers")
	cmd.Flags().IntVar(&opts.perWorker, "requests", 20, "requests per http worker")
	cmd.Flags().IntVar(&opts.messages, "messages", 10, "messages sent per user")
	cmd.Flags().DurationVar(&opts.waitTimeout, "wait", 10*time.Second, "time to wait for pushes")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.users < 2 {
		return fmt.Errorf("--users must be at least 2")
	}

	c := &benchClient{
		base: strings.TrimRight(opts.baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}

	fmt.Println("=== animeshelf 并发测试 ===")
	fmt.Printf("开始时间: %s 目标: %s\n", time.Now().Format("2006-01-02 15:04:05"), c.base)

	users := make([]benchUser, opts.users)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)
	for i := range users {
		i := i
		g.Go(func() error {
			u, err := c.register(gctx)
			users[i] = u
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("register users: %w", err)
	}
	fmt.Printf("已注册 %d 个用户\n", len(users))

	runHTTPBench(ctx, c, users, opts.concurrency, opts.perWorker)

	if err := runRealtimeBench(ctx, c, users, opts.messages, opts.waitTimeout); err != nil {
		return err
	}

	fmt.Printf("\nGoroutines: %d\n", runtime.NumGoroutine())
	fmt.Println("\n=== 测试完成 ===")
	return nil
}
