package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"animeshelf/config"
	"animeshelf/internal/catalog"
	"animeshelf/internal/model"
	"animeshelf/internal/repository"
	"animeshelf/internal/service"
	dbPkg "animeshelf/pkg/db"
	"animeshelf/pkg/logger"
	redisPkg "animeshelf/pkg/redis"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	userID   uint
	username string
	backfill bool
	rounds   int
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:   "import_list",
		Short: "Import an external anime list into a user's library",
		Long: `import_list reads every page of the external list for --username,
writes it into the library of --user-id and optionally backfills the
missing title metadata afterwards.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().UintVar(&opts.userID, "user-id", 0, "local profile id to import into")
	cmd.Flags().StringVar(&opts.username, "username", "", "external list username")
	cmd.Flags().BoolVar(&opts.backfill, "backfill", false, "fetch metadata for imported entries")
	cmd.Flags().IntVar(&opts.rounds, "rounds", 20, "maximum backfill batches")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("username")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg := config.LoadConfig()
	log := logger.InitLogger(cfg.Log)
	defer logger.Sync()

	gdb, err := dbPkg.InitDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbPkg.CloseDB()
	if err := dbPkg.AutoMigrate(gdb, model.All()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	rdb, err := redisPkg.New(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Redis不可用，跳过缓存与导入锁", zap.Error(err))
		rdb = nil
	}
	defer rdb.Close()

	profileRepo := repository.NewProfileRepository(gdb)
	libraryRepo := repository.NewLibraryRepository(gdb)
	if _, err := profileRepo.GetByID(ctx, opts.userID); err != nil {
		return fmt.Errorf("profile %d: %w", opts.userID, err)
	}

	catalogClient := catalog.New(cfg.Catalog, rdb)
	activitySvc := service.NewActivityService(repository.NewActivityRepository(gdb), repository.NewFriendRepository(gdb), nil, cfg.Feed.Limit)
	librarySvc := service.NewLibraryService(libraryRepo, repository.NewReviewRepository(gdb), profileRepo, activitySvc, rdb, cfg.Import.ChunkSize)
	importSvc := service.NewImportService(catalogClient, librarySvc, cfg.Import.PageSize, cfg.Import.MaxItems)

	result, err := importSvc.Run(ctx, opts.userID, opts.username)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Printf("Imported %d entries in %d batches\n", result.Committed, result.Batches)

	if !opts.backfill {
		return nil
	}

	backfillSvc := service.NewBackfillService(libraryRepo, catalogClient, cfg.Backfill.BatchSize, cfg.Backfill.Delay)
	var total service.BackfillResult
	for round := 0; round < opts.rounds; round++ {
		res, err := backfillSvc.Run(ctx, opts.userID)
		if err != nil {
			return fmt.Errorf("backfill: %w", err)
		}
		total.Synced += res.Synced
		total.Skipped += res.Skipped
		if res.RateLimited {
			fmt.Println("Catalog rate limit reached, run again later")
			break
		}
		if res.Synced+res.Skipped == 0 {
			break
		}
	}
	fmt.Printf("Backfilled %d entries, skipped %d\n", total.Synced, total.Skipped)
	return nil
}
