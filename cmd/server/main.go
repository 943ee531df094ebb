package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"animeshelf/config"
	"animeshelf/internal/catalog"
	"animeshelf/internal/handler"
	"animeshelf/internal/model"
	"animeshelf/internal/realtime"
	"animeshelf/internal/repository"
	"animeshelf/internal/service"
	dbPkg "animeshelf/pkg/db"
	"animeshelf/pkg/jwt"
	"animeshelf/pkg/logger"
	redisPkg "animeshelf/pkg/redis"
	"animeshelf/pkg/response"
	"animeshelf/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer logger.Sync()

	log.Info("=== animeshelf 启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("database_host", cfg.Database.Host),
		zap.String("database_name", cfg.Database.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.String("catalog_url", cfg.Catalog.BaseURL),
		zap.Duration("jwt_expire_time", cfg.JWT.ExpireTime),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 初始化数据库连接
	gdb, err := dbPkg.InitDB(cfg.Database)
	if err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	defer func() {
		if err := dbPkg.CloseDB(); err != nil {
			log.Error("关闭数据库连接失败", zap.Error(err))
		}
	}()
	log.Info("数据库连接成功")

	// 3.1 自动迁移表结构
	if err := dbPkg.AutoMigrate(gdb, model.All()...); err != nil {
		log.Fatal("自动迁移失败", zap.Error(err))
	}
	log.Info("自动迁移完成")

	// 3.2 Redis（可选），未配置时缓存、锁与跨实例通知降级
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	rdb, err := redisPkg.New(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Redis不可用，以无缓存模式运行", zap.Error(err))
		rdb = nil
	}
	defer rdb.Close()

	broker := realtime.NewBroker()
	defer broker.Close()
	if rdb != nil {
		relay := realtime.AttachRedisRelay(broker, rdb)
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error("变更通知转发停止", zap.Error(err))
			}
		}()
	}

	// 3.3 初始化业务服务
	jwtSvc := jwt.NewJWTService(cfg.JWT)
	wsManager := websocket.NewManager()
	// Redis 未启用时在线状态由本实例的连接表回答，心跳不再写入
	var presence service.Presence = wsManager
	var wsPresence websocket.Presence
	if rdb != nil {
		presence = rdb
		wsPresence = rdb
	}

	profileRepo := repository.NewProfileRepository(gdb)
	friendRepo := repository.NewFriendRepository(gdb)
	libraryRepo := repository.NewLibraryRepository(gdb)
	reviewRepo := repository.NewReviewRepository(gdb)

	catalogClient := catalog.New(cfg.Catalog, rdb)
	activitySvc := service.NewActivityService(repository.NewActivityRepository(gdb), friendRepo, broker, cfg.Feed.Limit)
	socialSvc := service.NewSocialService(friendRepo, profileRepo, broker)
	librarySvc := service.NewLibraryService(libraryRepo, reviewRepo, profileRepo, activitySvc, rdb, cfg.Import.ChunkSize)
	messageSvc := service.NewMessageService(repository.NewMessageRepository(gdb), profileRepo, rdb, broker)
	profileSvc := service.NewProfileService(profileRepo, presence)
	authSvc := service.NewAuthService(repository.NewAccountRepository(gdb), profileRepo, jwtSvc)

	handlers := &handler.Handlers{
		Auth:    handler.NewAuthHandler(authSvc, profileSvc),
		Profile: handler.NewProfileHandler(profileSvc),
		Social:  handler.NewSocialHandler(socialSvc, profileSvc),
		Library: handler.NewLibraryHandler(
			librarySvc,
			service.NewImportService(catalogClient, librarySvc, cfg.Import.PageSize, cfg.Import.MaxItems),
			service.NewBackfillService(libraryRepo, catalogClient, cfg.Backfill.BatchSize, cfg.Backfill.Delay),
		),
		Review:  handler.NewReviewHandler(service.NewReviewService(reviewRepo, libraryRepo)),
		Message: handler.NewMessageHandler(messageSvc, profileSvc),
		Feed:    handler.NewFeedHandler(activitySvc),
		Catalog: handler.NewCatalogHandler(catalogClient),
	}
	wsHandler := websocket.NewHandler(websocket.Deps{
		JWT:       jwtSvc,
		Config:    cfg.WebSocket,
		Manager:   wsManager,
		Broker:    broker,
		Inbox:     messageSvc,
		Feed:      activitySvc,
		Relations: socialSvc,
		Presence:  wsPresence,
	})

	// 4. 设置Gin模式
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 5. 创建Gin路由
	router := gin.New()
	router.Use(logger.RequestIDMiddleware())
	router.Use(logger.RequestLogger())
	router.Use(logger.ErrorLoggerMiddleware())

	// 6. 绑定路由
	setupBasicRoutes(router, rdb, wsManager)
	handler.RegisterRoutes(router, jwtSvc, handlers)
	router.GET("/ws", wsHandler.ServeWS)

	// 7. 创建HTTP服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 8. 启动HTTP服务器
	go func() {
		log.Info("HTTP服务器启动", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 9. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 先关闭通知流，断开所有 WebSocket 会话
	stop()
	broker.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}

// setupBasicRoutes 健康检查与根路径
func setupBasicRoutes(router *gin.Engine, rdb *redisPkg.Client, ws *websocket.Manager) {
	// 完整url为：http://localhost:8080/health
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := dbPkg.HealthCheck(); err != nil {
			status = "db-down"
		}
		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "ok"
			if err := rdb.HealthCheck(c.Request.Context()); err != nil {
				redisStatus = "down"
			}
		}
		response.Success(c, gin.H{
			"status":      status,
			"redis":       redisStatus,
			"connections": ws.Count(),
			"time":        time.Now().Format(time.RFC3339),
		})
	})

	router.GET("/", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "animeshelf API",
			"version": "1.0.0",
		})
	})
}
