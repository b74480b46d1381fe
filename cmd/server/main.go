package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/cache"
	"github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/database"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/pkg/messagequeue/outbox"
	"github.com/wyfcoding/pkg/metrics"
	"golang.org/x/sync/errgroup"

	claimapp "github.com/retreivo/retreivo/internal/claim/application"
	claimdomain "github.com/retreivo/retreivo/internal/claim/domain"
	claimmysql "github.com/retreivo/retreivo/internal/claim/infrastructure/persistence/mysql"
	claimhttp "github.com/retreivo/retreivo/internal/claim/interfaces/http"
	fraudapp "github.com/retreivo/retreivo/internal/fraud/application"
	fraudinfra "github.com/retreivo/retreivo/internal/fraud/infrastructure"
	fraudclient "github.com/retreivo/retreivo/internal/fraud/infrastructure/client"
	itemapp "github.com/retreivo/retreivo/internal/item/application"
	itemdomain "github.com/retreivo/retreivo/internal/item/domain"
	itemmysql "github.com/retreivo/retreivo/internal/item/infrastructure/persistence/mysql"
	itemhttp "github.com/retreivo/retreivo/internal/item/interfaces/http"
	rewardapp "github.com/retreivo/retreivo/internal/reward/application"
	rewarddomain "github.com/retreivo/retreivo/internal/reward/domain"
	rewardmysql "github.com/retreivo/retreivo/internal/reward/infrastructure/persistence/mysql"
	rewardredis "github.com/retreivo/retreivo/internal/reward/infrastructure/persistence/redis"
	rewardhttp "github.com/retreivo/retreivo/internal/reward/interfaces/http"
	userapp "github.com/retreivo/retreivo/internal/user/application"
	userdomain "github.com/retreivo/retreivo/internal/user/domain"
	usermysql "github.com/retreivo/retreivo/internal/user/infrastructure/persistence/mysql"
	userhttp "github.com/retreivo/retreivo/internal/user/interfaces/http"
	localconfig "github.com/retreivo/retreivo/pkg/config"
	"github.com/retreivo/retreivo/pkg/logger"
	"github.com/retreivo/retreivo/pkg/middleware"
	"github.com/retreivo/retreivo/pkg/ratelimit"
)

var configPath = flag.String("config", "configs/server/config.toml", "config file path")

// serverConfig 在通用配置之上追加匹配服务与限流配置。
type serverConfig struct {
	config.Config `mapstructure:",squash"`
	Matching      struct {
		BaseURL   string `mapstructure:"base_url"`
		TimeoutMS int    `mapstructure:"timeout_ms"`
	} `mapstructure:"matching"`
	RateLimit localconfig.RateLimitConfig `mapstructure:"ratelimit"`
}

func main() {
	flag.Parse()

	// 1. 配置
	var cfg serverConfig
	if err := config.Load(*configPath, &cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 日志
	logCfg := &logging.Config{Service: cfg.Server.Name, Level: cfg.Log.Level}
	appLogger := logging.NewFromConfig(logCfg)
	slog.SetDefault(appLogger.Logger)
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: "json", Output: "stdout"}); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 3. 指标
	metricsImpl := metrics.NewMetrics(cfg.Server.Name)
	if cfg.Metrics.Enabled {
		go metricsImpl.ExposeHTTP(cfg.Metrics.Port)
	}

	// 4. 数据库
	db, err := database.NewDB(cfg.Data.Database, cfg.CircuitBreaker, appLogger, metricsImpl)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	if cfg.Server.Environment == "dev" {
		if err := db.RawDB().AutoMigrate(
			&userdomain.User{},
			&itemdomain.Item{},
			&claimdomain.Claim{},
			&rewarddomain.LedgerEntry{},
			&rewarddomain.Redemption{},
			&rewarddomain.Product{},
			&outbox.Message{},
		); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	// 5. Kafka & Outbox
	kafkaProducer := kafka.NewProducer(&cfg.MessageQueue.Kafka, appLogger, metricsImpl)
	outboxMgr := outbox.NewManager(db.RawDB(), appLogger.Logger)
	pusher := func(ctx context.Context, topic, key string, payload []byte) error {
		return kafkaProducer.PublishToTopic(ctx, topic, []byte(key), payload)
	}
	outboxProcessor := outbox.NewProcessor(outboxMgr, pusher, 100, 2*time.Second)

	// 6. Redis
	redisCache, err := cache.NewRedisCache(&cfg.Data.Redis, cfg.CircuitBreaker, appLogger, metricsImpl)
	if err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	// 7. 仓储
	userRepo := usermysql.NewUserRepository(db.RawDB())
	itemRepo := itemmysql.NewItemRepository(db.RawDB())
	claimRepo := claimmysql.NewClaimRepository(db.RawDB())
	ledgerRepo := rewardmysql.NewLedgerRepository(db.RawDB())
	redemptionRepo := rewardmysql.NewRedemptionRepository(db.RawDB())
	productRepo := rewardmysql.NewProductRepository(db.RawDB())
	productCache := rewardredis.NewProductRedisCache(redisCache.GetClient())
	publisher := outbox.NewPublisher(outboxMgr)

	// 8. 匹配服务客户端
	matchingTimeout := time.Duration(cfg.Matching.TimeoutMS) * time.Millisecond
	matchingClient := fraudclient.NewMatchingClient(cfg.Matching.BaseURL, matchingTimeout)

	// 9. 应用服务
	rewardSvc := rewardapp.NewRewardService(userRepo, ledgerRepo, redemptionRepo, productRepo, productCache, slog.Default())
	userSvc := userapp.NewUserService(userRepo, slog.Default())
	itemSvc := itemapp.NewItemService(itemRepo, rewardSvc, matchingClient, slog.Default())
	statsSource := fraudinfra.NewRepositoryStatsSource(userRepo, itemRepo, claimRepo)
	scorer := fraudapp.NewScorer(statsSource, matchingClient, matchingTimeout, slog.Default())
	claimCmdSvc := claimapp.NewClaimCommandService(claimRepo, itemRepo, userRepo, rewardSvc, publisher, slog.Default())
	claimQuerySvc := claimapp.NewClaimQueryService(claimRepo, scorer, slog.Default())

	// 10. 接口层
	rateLimiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.GinRecoveryMiddleware())
	r.Use(middleware.GinLoggingMiddleware())
	r.Use(middleware.GinCORSMiddleware())
	r.Use(middleware.RateLimitMiddleware(rateLimiter, cfg.RateLimit))

	sys := r.Group("/sys")
	{
		sys.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":    "UP",
				"service":   cfg.Server.Name,
				"timestamp": time.Now().Unix(),
			})
		})
		sys.GET("/ready", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "READY"})
		})
	}

	pp := r.Group("/debug/pprof")
	{
		pp.GET("/", gin.WrapF(pprof.Index))
		pp.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pp.GET("/profile", gin.WrapF(pprof.Profile))
		pp.GET("/symbol", gin.WrapF(pprof.Symbol))
		pp.GET("/trace", gin.WrapF(pprof.Trace))
	}

	api := r.Group("/api/v1")
	userhttp.NewHandler(userSvc).RegisterRoutes(api)
	itemhttp.NewHandler(itemSvc).RegisterRoutes(api)
	claimhttp.NewHandler(claimCmdSvc, claimQuerySvc).RegisterRoutes(api)
	rewardhttp.NewHandler(rewardSvc).RegisterRoutes(api)

	// 11. 启动
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		outboxProcessor.Start()
		<-ctx.Done()
		outboxProcessor.Stop()
		return nil
	})

	addr := fmt.Sprintf(":%d", cfg.Server.HTTP.Port)
	server := &http.Server{Addr: addr, Handler: r}

	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down servers...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
