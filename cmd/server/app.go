package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/restaurant-management/internal/availability"
	"github.com/iliyamo/restaurant-management/internal/config"
	"github.com/iliyamo/restaurant-management/internal/database"
	"github.com/iliyamo/restaurant-management/internal/handler"
	"github.com/iliyamo/restaurant-management/internal/metrics"
	"github.com/iliyamo/restaurant-management/internal/middleware"
	"github.com/iliyamo/restaurant-management/internal/pricing"
	"github.com/iliyamo/restaurant-management/internal/repository"
	"github.com/iliyamo/restaurant-management/internal/router"
	"github.com/iliyamo/restaurant-management/internal/service"
)

// app owns the long-lived resources of the serve command.
type app struct {
	Echo   *echo.Echo
	Events config.EventsConfig
	db     *sql.DB
	rdb    *redis.Client
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func newApp(cfg config.Config, logger *log.Logger) (*app, error) {
	business, err := config.LoadBusinessConfig(cfg.BusinessFile)
	if err != nil {
		return nil, fmt.Errorf("business config: %w", err)
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	a := &app{db: db, Events: config.LoadEventsConfig()}

	// Redis is optional: without it rate limiting, caching and the booking
	// lock are disabled and the database row locks alone serialise bookings.
	a.rdb = config.NewRedisClient(config.LoadRedisConfig())
	if a.rdb == nil {
		logger.Warn("redis unavailable; rate limiting, response cache and booking lock disabled")
	}

	m := metrics.New()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	tables := repository.NewTableRepo(db)
	reservations := repository.NewReservationRepo(db)
	menu := repository.NewMenuRepo(db)
	orders := repository.NewOrderRepo(db)
	payments := repository.NewPaymentRepo(db)
	staff := repository.NewStaffRepo(db)
	feedback := repository.NewFeedbackRepo(db)
	reports := repository.NewReportRepo(db)

	notifier := service.NewNotifier(service.NewPublisher(a.Events, logger), m)
	resolver := availability.NewResolver(
		repository.AvailabilityStore{Tables: tables, Reservations: reservations},
		availability.WithHours(business.OpeningHour, business.ClosingHour),
	)
	bookings := service.NewReservationService(reservations, resolver,
		service.NewLocker(config.LoadLockConfig(), a.rdb), notifier, m)
	priceSvc := pricing.NewService(pricing.NewCalculator(business.MemberDiscount))
	checkout := service.NewCheckoutService(db, orders, payments, priceSvc, business.PaymentMethod, notifier, m)
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), a.rdb)

	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(m.Middleware())
	e.GET("/metrics", m.Handler())

	rl := config.LoadRateLimitConfig()
	router.Register(e, router.Handlers{
		Health:       &handler.HealthHandler{DB: db},
		Auth:         handler.NewAuthHandler(cfg, users, tokens),
		Users:        handler.NewUserHandler(users, cfg.BcryptCost),
		Catalog:      handler.NewCatalogHandler(menu, tables, staff, cache),
		Reservations: handler.NewReservationHandler(resolver, bookings, reservations, m),
		Orders:       handler.NewOrderHandler(orders, reservations, priceSvc, checkout, m),
		Payments:     handler.NewPaymentHandler(payments, orders, users, notifier, business.PaymentMethod),
		Feedback:     handler.NewFeedbackHandler(feedback),
		Reports:      handler.NewReportHandler(reports, business),
	}, router.Options{
		JWTSecret:     cfg.JWTSecret,
		Cache:         cache,
		RateLimit:     middleware.NewTokenBucket(rl, a.rdb),
		AuthRateLimit: middleware.NewTokenBucket(rl.ForAuth(), a.rdb),
	})

	warmup(logger, tables)
	a.Echo = e
	return a, nil
}

// warmup logs the seating capacity at startup; an empty floor plan usually
// means the schema was never seeded.
func warmup(logger *log.Logger, tables *repository.TableRepo) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	ts, err := tables.List(ctx)
	if err != nil {
		logger.Warnf("list tables: %v", err)
		return
	}
	if len(ts) == 0 {
		logger.Warn("no dining tables configured; availability will always be empty")
		return
	}
	logger.Infof("%d dining tables loaded", len(ts))
}
