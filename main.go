package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/BerniceZTT/leads_end/config"
	"github.com/BerniceZTT/leads_end/controllers"
	"github.com/BerniceZTT/leads_end/mail"
	"github.com/BerniceZTT/leads_end/middleware"
	"github.com/BerniceZTT/leads_end/queue"
	"github.com/BerniceZTT/leads_end/repository"
	"github.com/BerniceZTT/leads_end/routes"
	"github.com/BerniceZTT/leads_end/service"
	"github.com/BerniceZTT/leads_end/utils"
)

// storage 运行时存储及其连通性探测
type storage interface {
	service.Store
	controllers.Pinger
}

func main() {
	// 加载配置
	cfg := config.LoadConfig()

	// 初始化日志
	logger := utils.InitLogger(cfg.LogLevel, !cfg.IsProduction())

	if problems := cfg.Validate(); len(problems) > 0 {
		for _, p := range problems {
			logger.Error().Msg(p)
		}
		logger.Fatal().Msg("配置校验失败")
	}

	// 设置Gin模式
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化存储
	var (
		store  storage
		probe  service.NetworkProbe
		client *mongo.Client
	)
	switch cfg.StoreDriver {
	case "memory":
		mem := repository.NewMemoryStore(repository.WithLogger(logger))
		store, probe = mem, mem
		logger.Warn().Msg("使用内存存储，数据不会持久化")
	default:
		monitor := repository.NewConnectivityMonitor()
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Primary)
		c, db, err := repository.Connect(ctx, cfg.MongoURI, cfg.MongoDB, monitor)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		client = c

		gateway := repository.NewGateway(db, repository.WithLogger(logger))
		logger.Info().Msg("开始初始化数据库集合...")
		initCtx, initCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Primary)
		if err := gateway.InitializeCollections(initCtx); err != nil {
			logger.Error().Err(err).Msg("初始化数据库集合失败")
		}
		initCancel()
		store, probe = gateway, monitor
	}

	inflight := service.NewInflight()
	classifier := service.NewClassifier(probe)
	events := service.NewEventLogger(cfg.EventSink, store, logger)

	svcOpts := []service.Option{service.WithLogger(logger), service.WithInflight(inflight)}

	// 销售通知
	var publisher *queue.Publisher
	switch cfg.NotifyDriver {
	case "amqp":
		p, err := queue.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Error().Err(err).Msg("RabbitMQ 不可用，新线索通知已关闭")
			break
		}
		publisher = p
		svcOpts = append(svcOpts, service.WithNotifier(p))
	case "smtp":
		from := cfg.SMTPUser
		if from == "" {
			from = cfg.SalesInbox
		}
		notifier := mail.NewSalesNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, from, cfg.SalesInbox)
		svcOpts = append(svcOpts, service.WithNotifier(notifier))
	}

	newsletter := service.NewNewsletterService(store, classifier, cfg.Timeouts.Newsletter, svcOpts...)
	leads := service.NewLeadService(store, newsletter, events, classifier, cfg.Timeouts, svcOpts...)

	// 限流
	var (
		limiter     middleware.Limiter = middleware.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute)
		redisClient *goredis.Client
	)
	if cfg.RedisURL != "" {
		opt, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("REDIS_URL 解析失败，使用内存限流")
		} else {
			redisClient = goredis.NewClient(opt)
			limiter = middleware.NewRedisLimiter(redisClient, "leads:ratelimit:", cfg.RateLimitPerMinute, time.Minute)
		}
	}

	// 创建Gin实例
	router := gin.New()

	// 应用中间件
	router.Use(middleware.RequestContext())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.ErrorHandler())

	// 注册路由
	routes.RegisterRoutes(router, routes.Dependencies{
		Leads:      leads,
		Newsletter: newsletter,
		Health:     controllers.NewHealthController(store, probe, cfg.Timeouts.Query),
		Issuer:     utils.NewTokenIssuer(cfg.JWTKey, cfg.TokenTTL),
		AdminKey:   cfg.AdminAPIKey,
		Limiter:    limiter,
	})
	if cfg.AdminAPIKey == "" {
		logger.Warn().Msg("未配置 ADMIN_API_KEY，管理接口无法签发令牌")
	}

	// 设置HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Timeouts.Primary + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Info().Msgf("服务器启动，监听端口: %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("启动服务器失败")
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭异常")
	}

	// 等待超时后仍在执行的写入
	if err := inflight.Wait(ctx); err != nil {
		logger.Warn().Int64("pending", inflight.Pending()).Msg("仍有未完成的写入操作")
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if client != nil {
		if err := client.Disconnect(ctx); err != nil {
			logger.Warn().Err(err).Msg("关闭MongoDB连接失败")
		}
	}

	logger.Info().Msg("服务器已优雅关闭")
}
