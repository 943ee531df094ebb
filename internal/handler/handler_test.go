package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"animeshelf/config"
	"animeshelf/internal/catalog"
	"animeshelf/internal/realtime"
	"animeshelf/internal/repository"
	"animeshelf/internal/service"
	"animeshelf/internal/testutil"
	"animeshelf/pkg/jwt"
	"animeshelf/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiEnv struct {
	router   *gin.Engine
	upstream *http.ServeMux
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)
	broker := realtime.NewBroker()
	t.Cleanup(broker.Close)

	upstream := http.NewServeMux()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)
	catalogClient := catalog.New(config.CatalogConfig{
		BaseURL:         srv.URL,
		ListURL:         srv.URL,
		Timeout:         time.Second,
		RequestInterval: time.Millisecond,
	}, rdb)

	profileRepo := repository.NewProfileRepository(gdb)
	friendRepo := repository.NewFriendRepository(gdb)
	libraryRepo := repository.NewLibraryRepository(gdb)
	reviewRepo := repository.NewReviewRepository(gdb)

	jwtSvc := jwt.NewJWTService(config.JWTConfig{Secret: "api-secret", Issuer: "animeshelf", ExpireTime: time.Hour})
	activity := service.NewActivityService(repository.NewActivityRepository(gdb), friendRepo, broker, 30)
	library := service.NewLibraryService(libraryRepo, reviewRepo, profileRepo, activity, rdb, 500)
	profiles := service.NewProfileService(profileRepo, rdb)

	r := gin.New()
	RegisterRoutes(r, jwtSvc, &Handlers{
		Auth:    NewAuthHandler(service.NewAuthService(repository.NewAccountRepository(gdb), profileRepo, jwtSvc), profiles),
		Profile: NewProfileHandler(profiles),
		Social:  NewSocialHandler(service.NewSocialService(friendRepo, profileRepo, broker), profiles),
		Library: NewLibraryHandler(
			library,
			service.NewImportService(catalogClient, library, 300, 0),
			service.NewBackfillService(libraryRepo, catalogClient, 5, time.Millisecond),
		),
		Review:  NewReviewHandler(service.NewReviewService(reviewRepo, libraryRepo)),
		Message: NewMessageHandler(service.NewMessageService(repository.NewMessageRepository(gdb), profileRepo, rdb, broker), profiles),
		Feed:    NewFeedHandler(activity),
		Catalog: NewCatalogHandler(catalogClient),
	})
	return &apiEnv{router: r, upstream: upstream}
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) envelope {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// register 注册并设置用户名，返回令牌和用户ID
func (e *apiEnv) register(t *testing.T, email, username string) (string, uint) {
	t.Helper()
	res := e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": email, "password": "password123"})
	require.Equal(t, response.CodeOK, res.Code, res.Message)
	var auth response.AuthResponse
	require.NoError(t, json.Unmarshal(res.Data, &auth))

	res = e.do(t, http.MethodPut, "/api/v1/profiles/me/username", auth.AccessToken, gin.H{"username": username})
	require.Equal(t, response.CodeOK, res.Code, res.Message)
	return auth.AccessToken, auth.Profile.ID
}

func relationship(t *testing.T, res envelope) string {
	t.Helper()
	require.Equal(t, response.CodeOK, res.Code, res.Message)
	var rel response.RelationshipResponse
	require.NoError(t, json.Unmarshal(res.Data, &rel))
	return rel.Status
}

func TestAuthFlow(t *testing.T) {
	e := newAPIEnv(t)
	token, id := e.register(t, "mika@example.com", "mika")

	res := e.do(t, http.MethodGet, "/api/v1/profiles/me", token, nil)
	require.Equal(t, response.CodeOK, res.Code)
	var me response.ProfileInfo
	require.NoError(t, json.Unmarshal(res.Data, &me))
	assert.Equal(t, id, me.ID)
	assert.Equal(t, "mika", me.Username)

	res = e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "mika@example.com", "password": "wrong-password"})
	assert.Equal(t, response.CodeUnauthorized, res.Code)

	res = e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "MIKA@example.com", "password": "password123"})
	assert.Equal(t, response.CodeConflict, res.Code)

	res = e.do(t, http.MethodGet, "/api/v1/profiles/me", "", nil)
	assert.Equal(t, response.CodeUnauthorized, res.Code)

	res = e.do(t, http.MethodGet, "/api/v1/profiles/by-username/mika", "", nil)
	assert.Equal(t, response.CodeOK, res.Code)
	res = e.do(t, http.MethodGet, "/api/v1/profiles/by-username/nobody", "", nil)
	assert.Equal(t, response.CodeNotFound, res.Code)
}

func TestFriendLifecycleOverHTTP(t *testing.T) {
	e := newAPIEnv(t)
	alice, aliceID := e.register(t, "alice@example.com", "alice")
	bob, bobID := e.register(t, "bob@example.com", "bob")
	statusPath := func(id uint) string { return "/api/v1/friends/status/" + jsonNumber(id) }

	assert.Equal(t, "none", relationship(t, e.do(t, http.MethodGet, statusPath(bobID), alice, nil)))
	assert.Equal(t, "pending_sent", relationship(t, e.do(t, http.MethodPost, "/api/v1/friends/requests", alice, gin.H{"user_id": bobID})))
	assert.Equal(t, "pending_received", relationship(t, e.do(t, http.MethodGet, statusPath(aliceID), bob, nil)))

	res := e.do(t, http.MethodPost, "/api/v1/friends/requests", bob, gin.H{"user_id": aliceID})
	assert.Equal(t, response.CodeConflict, res.Code, "mutual request does not auto-accept")

	res = e.do(t, http.MethodPost, "/api/v1/friends/requests", alice, gin.H{"user_id": aliceID})
	assert.Equal(t, response.CodeValidation, res.Code)

	assert.Equal(t, "accepted", relationship(t, e.do(t, http.MethodPost, "/api/v1/friends/requests/"+jsonNumber(aliceID)+"/accept", bob, nil)))
	assert.Equal(t, "accepted", relationship(t, e.do(t, http.MethodGet, statusPath(bobID), alice, nil)))

	res = e.do(t, http.MethodGet, "/api/v1/friends", alice, nil)
	var friends []response.ProfileInfo
	require.NoError(t, json.Unmarshal(res.Data, &friends))
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0].Username)

	assert.Equal(t, "none", relationship(t, e.do(t, http.MethodDelete, "/api/v1/friends/"+jsonNumber(aliceID), bob, nil)))
	assert.Equal(t, "none", relationship(t, e.do(t, http.MethodDelete, "/api/v1/friends/"+jsonNumber(aliceID), bob, nil)))

	res = e.do(t, http.MethodPost, "/api/v1/friends/requests/"+jsonNumber(aliceID)+"/accept", bob, nil)
	assert.Equal(t, response.CodeNotFound, res.Code)
}

func TestLibraryAndFeedOverHTTP(t *testing.T) {
	e := newAPIEnv(t)
	token, _ := e.register(t, "kei@example.com", "kei")

	res := e.do(t, http.MethodPut, "/api/v1/library/anime/52991/status", token, gin.H{
		"status": "plan_to_watch", "title": "Frieren", "image_url": "https://cdn.example/f.jpg", "genres": []string{"Fantasy"},
	})
	require.Equal(t, response.CodeOK, res.Code, res.Message)

	res = e.do(t, http.MethodPut, "/api/v1/library/anime/52991/score", token, gin.H{"score": 9, "title": "Frieren"})
	require.Equal(t, response.CodeOK, res.Code, res.Message)
	var entry response.LibraryEntryInfo
	require.NoError(t, json.Unmarshal(res.Data, &entry))
	assert.Equal(t, 9, entry.Score)
	assert.Equal(t, "plan_to_watch", entry.Status)

	res = e.do(t, http.MethodPut, "/api/v1/library/anime/52991/score", token, gin.H{"score": 11})
	assert.Equal(t, response.CodeValidation, res.Code)

	res = e.do(t, http.MethodPut, "/api/v1/library/novel/1/status", token, gin.H{"status": "watching"})
	assert.Equal(t, response.CodeBadRequest, res.Code)

	res = e.do(t, http.MethodGet, "/api/v1/feed", token, nil)
	var feed []response.ActivityInfo
	require.NoError(t, json.Unmarshal(res.Data, &feed))
	require.Len(t, feed, 2)
	assert.Equal(t, "rated", feed[0].Kind)
	assert.Equal(t, "add_plan", feed[1].Kind)

	res = e.do(t, http.MethodGet, "/api/v1/feed", "", nil)
	assert.Equal(t, response.CodeUnauthorized, res.Code, "friends feed needs a viewer")
	res = e.do(t, http.MethodGet, "/api/v1/feed?scope=global", "", nil)
	assert.Equal(t, response.CodeOK, res.Code)

	res = e.do(t, http.MethodPut, "/api/v1/library/anime/52991/status", token, gin.H{"status": nil})
	require.Equal(t, response.CodeOK, res.Code)
	res = e.do(t, http.MethodGet, "/api/v1/library/anime/52991", token, nil)
	assert.Equal(t, response.CodeNotFound, res.Code)
}

func TestReviewsOverHTTP(t *testing.T) {
	e := newAPIEnv(t)
	token, _ := e.register(t, "ren@example.com", "ren")

	res := e.do(t, http.MethodPut, "/api/v1/reviews/manga/2", token, gin.H{"content": "too short", "score": 8})
	assert.Equal(t, response.CodeValidation, res.Code)

	res = e.do(t, http.MethodPut, "/api/v1/reviews/manga/2", token, gin.H{"content": "A relentless, brutal masterpiece.", "score": 10})
	require.Equal(t, response.CodeOK, res.Code, res.Message)

	res = e.do(t, http.MethodGet, "/api/v1/reviews/manga/2", "", nil)
	require.Equal(t, response.CodeOK, res.Code)
	var page struct {
		Items []response.ReviewInfo `json:"items"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, 10, page.Items[0].Score)

	res = e.do(t, http.MethodDelete, "/api/v1/reviews/manga/2", token, nil)
	require.Equal(t, response.CodeOK, res.Code)
	res = e.do(t, http.MethodGet, "/api/v1/reviews/manga/2/mine", token, nil)
	assert.Equal(t, response.CodeNotFound, res.Code)
}

func TestMessagesOverHTTP(t *testing.T) {
	e := newAPIEnv(t)
	alice, aliceID := e.register(t, "a@example.com", "aoi")
	bob, bobID := e.register(t, "b@example.com", "ben")

	res := e.do(t, http.MethodPost, "/api/v1/messages", alice, gin.H{"receiver_id": bobID, "content": "watch frieren"})
	require.Equal(t, response.CodeOK, res.Code, res.Message)
	res = e.do(t, http.MethodPost, "/api/v1/messages", alice, gin.H{"receiver_id": bobID, "content": ""})
	assert.Equal(t, response.CodeValidation, res.Code)

	var unread struct {
		UnreadCount int64 `json:"unread_count"`
	}
	res = e.do(t, http.MethodGet, "/api/v1/messages/unread", bob, nil)
	require.NoError(t, json.Unmarshal(res.Data, &unread))
	assert.Equal(t, int64(1), unread.UnreadCount)

	res = e.do(t, http.MethodGet, "/api/v1/messages", bob, nil)
	var convs []response.ConversationInfo
	require.NoError(t, json.Unmarshal(res.Data, &convs))
	require.Len(t, convs, 1)
	assert.Equal(t, "aoi", convs[0].Partner.Username)
	assert.Equal(t, int64(1), convs[0].UnreadCount)

	res = e.do(t, http.MethodPost, "/api/v1/messages/"+jsonNumber(aliceID)+"/read", bob, nil)
	require.Equal(t, response.CodeOK, res.Code)
	res = e.do(t, http.MethodGet, "/api/v1/messages/unread?sender_id="+jsonNumber(aliceID), bob, nil)
	require.NoError(t, json.Unmarshal(res.Data, &unread))
	assert.Equal(t, int64(0), unread.UnreadCount)
}

func TestCatalogDegradesToEmptyLists(t *testing.T) {
	e := newAPIEnv(t)
	e.upstream.HandleFunc("/top/anime", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	e.upstream.HandleFunc("/anime/1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	e.upstream.HandleFunc("/seasons/2024/fall", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"mal_id":52991,"title":"Sousou no Frieren"}]}`))
	})

	res := e.do(t, http.MethodGet, "/api/v1/catalog/top?type=anime", "", nil)
	assert.Equal(t, response.CodeOK, res.Code)
	assert.JSONEq(t, `[]`, string(res.Data))

	res = e.do(t, http.MethodGet, "/api/v1/catalog/items/anime/1", "", nil)
	assert.Equal(t, response.CodeServiceUnavailable, res.Code)

	res = e.do(t, http.MethodGet, "/api/v1/catalog/items/anime/404", "", nil)
	assert.Equal(t, response.CodeNotFound, res.Code)

	res = e.do(t, http.MethodGet, "/api/v1/catalog/seasons/2024/fall", "", nil)
	require.Equal(t, response.CodeOK, res.Code)
	var items []catalog.Item
	require.NoError(t, json.Unmarshal(res.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Sousou no Frieren", items[0].Title)

	res = e.do(t, http.MethodGet, "/api/v1/catalog/seasons/2024/monsoon", "", nil)
	assert.Equal(t, response.CodeValidation, res.Code)
}

func TestImportAndBackfillOverHTTP(t *testing.T) {
	e := newAPIEnv(t)
	token, _ := e.register(t, "imp@example.com", "importer")

	e.upstream.HandleFunc("/animelist/someone/load.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"anime_id":1,"anime_title":"Cowboy Bebop","status":2,"score":10},{"anime_id":30,"anime_title":"Evangelion","status":1,"score":0}]`))
	})
	e.upstream.HandleFunc("/anime/1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"mal_id":1,"title":"Cowboy Bebop","genres":[{"name":"Sci-Fi"}]}}`))
	})

	res := e.do(t, http.MethodPost, "/api/v1/library/import", token, gin.H{"username": "someone"})
	require.Equal(t, response.CodeOK, res.Code, res.Message)
	var result service.ImportResult
	require.NoError(t, json.Unmarshal(res.Data, &result))
	assert.Equal(t, 2, result.Committed)

	res = e.do(t, http.MethodPost, "/api/v1/library/backfill", token, nil)
	require.Equal(t, response.CodeOK, res.Code, res.Message)
	var backfill service.BackfillResult
	require.NoError(t, json.Unmarshal(res.Data, &backfill))
	assert.Equal(t, service.BackfillResult{Synced: 2}, backfill)

	res = e.do(t, http.MethodGet, "/api/v1/library/anime/1", token, nil)
	var entry response.LibraryEntryInfo
	require.NoError(t, json.Unmarshal(res.Data, &entry))
	assert.Equal(t, []string{"Sci-Fi"}, entry.Genres)
	assert.Equal(t, "completed", entry.Status)
}

func jsonNumber(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
