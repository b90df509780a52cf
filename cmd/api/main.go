package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/ordercode"
	"storefront/internal/handler"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	"storefront/internal/infra/events"
	"storefront/internal/infra/paystack"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

// 通知イベントの送信先（Close はシャットダウン時）
type publisher interface {
	usecase.EventPublisher
	Close() error
}

func main() {
	//.env は無くてもよい（本番は環境変数）
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid config")
	}

	log := logging.New(cfg.LogLevel, cfg.GoEnv)
	if envErr != nil {
		log.Debug().Err(envErr).Msg(".env not loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("db handle unavailable")
	}
	defer sqlDB.Close()

	//Repository（GORM実装）生成
	codes := ordercode.NewGenerator(cfg.OrderCodePrefix)
	txm := infraRepo.NewTxManagerGorm(gormDB, codes)
	customers := infraRepo.NewCustomerGormRepository(gormDB)

	//キャッシュ（REDIS_ADDR が空なら無効）
	var ordersCache usecase.OrdersCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, cache reads will fall back to db")
		}
		ordersCache = cache.NewRedisCache(rdb, cfg.CachePrefix)
	}

	//注文イベント（KAFKA_BROKERS が空ならログのみ）
	var pub publisher = events.NewLogPublisher(log)
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic, log)
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn().Err(err).Msg("event publisher close failed")
		}
	}()

	//metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServerMetrics(reg, "api")

	//決済ゲートウェイ
	gw := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey,
		paystack.WithTimeout(cfg.PaystackTimeout),
		paystack.WithObserver(m),
	)

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}

	//Usecase生成
	checkoutUC := usecase.NewCheckoutUsecase(txm, customers, gw, ordersCache, pub, idGen, clock, log, usecase.CheckoutConfig{
		CallbackURL:       cfg.PaymentCallbackURL,
		PickupFollowUpURL: cfg.PickupFollowUpURL,
	})
	paymentUC := usecase.NewPaymentUsecase(txm, customers, gw, ordersCache, pub, idGen, clock, log, cfg.PaymentCallbackURL)
	queryUC := usecase.NewOrderQueryUsecase(txm, customers, ordersCache, cfg.OrdersCacheTTL, log)
	adminUC := usecase.NewAdminOrderUsecase(txm, ordersCache, log)

	//Handler生成
	e := server.NewRouter(cfg, log, m, reg, server.Handlers{
		Checkout:   handler.NewCheckoutHandler(checkoutUC, paymentUC),
		Orders:     handler.NewOrderHandler(queryUC),
		AdminOrder: handler.NewAdminOrderHandler(adminUC),
		Health:     handler.NewHealthHandler(sqlDB),
	})

	//Server起動
	addr := cfg.Port
	if addr != "" && addr[0] != ':' {
		addr = ":" + addr
	}
	if err := server.Start(ctx, addr, e, log); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return
	}
	log.Info().Msg("closed completed")
}
