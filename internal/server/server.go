package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/customercompass/compass/config"
	"github.com/customercompass/compass/internal/queue/streams"
	"github.com/customercompass/compass/internal/scheduler"
	"github.com/customercompass/compass/internal/store"
)

// Run wires the HTTP API together and blocks serving it: store, queue
// publisher, schedule registry and, when enabled, the cron scheduler.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Forwarded-Email"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()
	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr(),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
	}
	pub := streams.NewPublisher(rdb)

	mh := &MonitorsHandler{
		Store:     st,
		Publisher: pub,
		Registry:  scheduler.NewRegistry(st),
		Stream:    cfg.Queue.Stream,
	}
	api := e.Group("/api", withIdentity(st))
	mh.Register(api.Group("/monitors"))

	if cfg.Scheduler.Enabled {
		sched := &scheduler.Scheduler{
			Lister:       st,
			Publisher:    pub,
			Rdb:          rdb,
			Stream:       cfg.Queue.Stream,
			TickInterval: cfg.Scheduler.TickInterval,
			Logger:       log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
		}
		sched.Start()
		defer sched.Stop()
	}

	addr := cfg.General.Listen
	if addr == "" {
		addr = ":10001"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
