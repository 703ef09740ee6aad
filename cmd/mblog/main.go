package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/mblog/internal/config"
	"github.com/xxxsen/mblog/internal/filestore"
	"github.com/xxxsen/mblog/internal/handler"
	"github.com/xxxsen/mblog/internal/job"
	"github.com/xxxsen/mblog/internal/middleware"
	"github.com/xxxsen/mblog/internal/pkg/idgen"
	"github.com/xxxsen/mblog/internal/pkg/markdown"
	"github.com/xxxsen/mblog/internal/pkg/timeutil"
	"github.com/xxxsen/mblog/internal/repo"
	"github.com/xxxsen/mblog/internal/schedule"
	"github.com/xxxsen/mblog/internal/service"
	"github.com/xxxsen/mblog/internal/session"
	"github.com/xxxsen/mblog/internal/view"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "mblog",
		Short: "mblog blog server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run mblog server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			stores, err := repo.Open(cfg.UsersFile, cfg.PostsFile)
			if err != nil {
				return err
			}
			return runServer(cfg, stores)
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "verify that the record files are readable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			stores, err := repo.Open(cfg.UsersFile, cfg.PostsFile)
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), cmd, stores)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd, checkCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func runCheck(ctx context.Context, cmd *cobra.Command, stores *repo.Stores) error {
	if ctx == nil {
		ctx = context.Background()
	}
	users, err := stores.Users.Load(ctx)
	if err != nil {
		return fmt.Errorf("check %s: %w", stores.Users.Path(), err)
	}
	posts, err := stores.Posts.Load(ctx)
	if err != nil {
		return fmt.Errorf("check %s: %w", stores.Posts.Path(), err)
	}
	cmd.Printf("%s: %d users\n", stores.Users.Path(), len(users))
	cmd.Printf("%s: %d posts\n", stores.Posts.Path(), len(posts))
	return nil
}

func runServer(cfg *config.Config, stores *repo.Stores) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("users_file", cfg.UsersFile),
		zap.String("posts_file", cfg.PostsFile),
	)

	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("load timezone: %w", err)
		}
		loc = l
	}
	dates, err := timeutil.NewDateFormatter(cfg.DateLocale, loc)
	if err != nil {
		return fmt.Errorf("init date formatter: %w", err)
	}

	userRepo := repo.NewUserRepo(stores.Users)
	postRepo := repo.NewPostRepo(stores.Posts, idgen.New())

	authService := service.NewAuthService(userRepo)
	postService := service.NewPostService(postRepo, dates)
	sessions := session.NewManager(session.Config{
		Secret:     []byte(cfg.Session.Secret),
		TTL:        time.Hour * time.Duration(cfg.Session.TTLHours),
		MaxEntries: cfg.Session.MaxEntries,
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.Secure,
	})
	pages, err := view.New()
	if err != nil {
		return fmt.Errorf("init views: %w", err)
	}

	deps := handler.RouterDeps{
		Home:           handler.NewHomeHandler(pages),
		Auth:           handler.NewAuthHandler(authService, sessions, pages),
		Posts:          handler.NewPostHandler(postService, markdown.New(), pages),
		Identity:       sessions,
		AuthRateWindow: time.Duration(cfg.RateLimit.AuthWindowMillis) * time.Millisecond,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Backup.Enabled {
		scheduler, err := startBackups(ctx, cfg, stores)
		if err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))
	srv := &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv, ln, shutdownGrace)
}

func startBackups(ctx context.Context, cfg *config.Config, stores *repo.Stores) (*schedule.CronScheduler, error) {
	store, err := filestore.New(cfg.Backup.FileStore)
	if err != nil {
		return nil, fmt.Errorf("init backup store: %w", err)
	}
	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewBackupJob(store, stores.Users, stores.Posts), cfg.Backup.Spec); err != nil {
		return nil, err
	}
	scheduler.Start(ctx)
	logutil.GetLogger(ctx).Info("backups scheduled",
		zap.String("spec", cfg.Backup.Spec),
		zap.String("store", store.Type()),
		zap.Time("next", scheduler.Next("backup")),
	)
	return scheduler, nil
}
