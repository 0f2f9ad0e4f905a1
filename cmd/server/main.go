package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/booking-service/internal/config"
	"github.com/iliyamo/booking-service/internal/database"
	"github.com/iliyamo/booking-service/internal/handler"
	"github.com/iliyamo/booking-service/internal/logger"
	"github.com/iliyamo/booking-service/internal/metrics"
	"github.com/iliyamo/booking-service/internal/middleware"
	"github.com/iliyamo/booking-service/internal/notify"
	"github.com/iliyamo/booking-service/internal/queue"
	"github.com/iliyamo/booking-service/internal/repository"
	"github.com/iliyamo/booking-service/internal/router"
	"github.com/iliyamo/booking-service/internal/service"
	"github.com/iliyamo/booking-service/internal/slot"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("database migration failed")
		}
	}

	rdb := config.NewRedisClient() // nil when Redis is unreachable
	if rdb != nil {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	calc := slot.NewCalculator(cfg.Location)
	calc.FirstHour, calc.LastHour = cfg.SlotFirstHour, cfg.SlotLastHour

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := service.Options{
		Cache:   middleware.NewCachePurger(cacheCfg, rdb),
		Metrics: metrics.NewBookingMetrics(reg),
		Logger:  log.StandardLogger(),
	}
	brokerCfg := config.LoadBrokerConfig()
	if brokerCfg.Enabled {
		pub := queue.NewPublisher(brokerCfg)
		defer pub.Close()
		opts.Events = pub

		consumer := queue.NewConsumer(brokerCfg, notify.NewMailer(config.LoadMailConfig()))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("booking consumer stopped")
			}
		}()
	}
	bookings := service.NewBookingService(repository.NewBookingRepo(db), calc, opts)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := log.WithFields(log.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"remote_ip":  v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	router.RegisterRoutes(e, &handler.HealthHandler{DB: db, Redis: rdb}, reg)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), cfg.JWTSecret)
	router.RegisterBookings(e, handler.NewBookingHandler(bookings, cfg.Production()), cfg.JWTSecret, router.BookingMiddleware{
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(cacheCfg, rdb),
	})

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(log.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server stopped")
}
