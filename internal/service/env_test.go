package service

import (
	"testing"
	"time"

	"animeshelf/config"
	"animeshelf/internal/model"
	"animeshelf/internal/realtime"
	"animeshelf/internal/repository"
	"animeshelf/internal/testutil"
	"animeshelf/pkg/jwt"
	redisPkg "animeshelf/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db     *gorm.DB
	rdb    *redisPkg.Client
	mr     *miniredis.Miniredis
	broker *realtime.Broker

	profileRepo  *repository.ProfileRepository
	friendRepo   *repository.FriendRepository
	libraryRepo  *repository.LibraryRepository
	reviewRepo   *repository.ReviewRepository
	messageRepo  *repository.MessageRepository
	activityRepo *repository.ActivityRepository

	activity *ActivityService
	social   *SocialService
	library  *LibraryService
	reviews  *ReviewService
	messages *MessageService
	profiles *ProfileService
	auth     *AuthService
}

func newTestEnv(t *testing.T, users ...uint) *testEnv {
	t.Helper()

	gdb := testutil.NewDB(t)
	rdb, mr := testutil.NewRedis(t)
	broker := realtime.NewBroker()
	t.Cleanup(broker.Close)

	e := &testEnv{
		db:           gdb,
		rdb:          rdb,
		mr:           mr,
		broker:       broker,
		profileRepo:  repository.NewProfileRepository(gdb),
		friendRepo:   repository.NewFriendRepository(gdb),
		libraryRepo:  repository.NewLibraryRepository(gdb),
		reviewRepo:   repository.NewReviewRepository(gdb),
		messageRepo:  repository.NewMessageRepository(gdb),
		activityRepo: repository.NewActivityRepository(gdb),
	}
	e.activity = NewActivityService(e.activityRepo, e.friendRepo, broker, 30)
	e.social = NewSocialService(e.friendRepo, e.profileRepo, broker)
	e.library = NewLibraryService(e.libraryRepo, e.reviewRepo, e.profileRepo, e.activity, rdb, 500)
	e.reviews = NewReviewService(e.reviewRepo, e.libraryRepo)
	e.messages = NewMessageService(e.messageRepo, e.profileRepo, rdb, broker)
	e.profiles = NewProfileService(e.profileRepo, rdb)
	e.auth = NewAuthService(
		repository.NewAccountRepository(gdb),
		e.profileRepo,
		jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", Issuer: "animeshelf", ExpireTime: time.Hour}),
	)

	testutil.Seed(t, gdb, users...)
	return e
}

func (e *testEnv) activities(t *testing.T) []*model.Activity {
	t.Helper()
	var out []*model.Activity
	require.NoError(t, e.db.Order("id ASC").Find(&out).Error)
	return out
}

func (e *testEnv) edgeCount(t *testing.T, a, b uint) int64 {
	t.Helper()
	n, err := e.friendRepo.CountBetween(t.Context(), a, b)
	require.NoError(t, err)
	return n
}

var anime100 = Media{ID: 100, Type: model.MediaAnime}

var snap = model.MediaSnapshot{
	Title:    "Frieren",
	ImageURL: "https://cdn.example/frieren.jpg",
	Genres:   []string{"Adventure", "Fantasy"},
}

func statusPtr(s model.LibraryStatus) *model.LibraryStatus { return &s }
