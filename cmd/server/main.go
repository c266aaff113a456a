package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/event-ticket-settlement/internal/clock"
	"github.com/iliyamo/event-ticket-settlement/internal/config"
	"github.com/iliyamo/event-ticket-settlement/internal/database"
	"github.com/iliyamo/event-ticket-settlement/internal/handler"
	"github.com/iliyamo/event-ticket-settlement/internal/ledger"
	"github.com/iliyamo/event-ticket-settlement/internal/middleware"
	"github.com/iliyamo/event-ticket-settlement/internal/queue"
	"github.com/iliyamo/event-ticket-settlement/internal/repository"
	"github.com/iliyamo/event-ticket-settlement/internal/router"
	"github.com/iliyamo/event-ticket-settlement/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	owner, err := service.ParseOwnerPolicy(cfg.SettlementOwner)
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("mysql: %v", err)
	}

	// Pending reservations live only in Redis, so unlike the rate limiter
	// and cache the service cannot run without it.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis: not reachable; pending reservations need it")
	}
	defer rdb.Close()

	client, devLedger, err := newLedger(cfg)
	if err != nil {
		log.Fatalf("ledger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher := queue.NewPublisher(cfg.RabbitURL)
	go func() {
		err := queue.StartSettlementConsumer(ctx, cfg.RabbitURL, queue.NewSettlementLog(cfg.LogDir))
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("settlement-consumer: stopped: %v", err)
		}
	}()

	clk := clock.Real()
	catalogRepo := repository.NewCatalogRepo(db)
	pending := repository.NewRedisReservationStore(rdb, cfg.ReservationPrefix)
	watchdog := service.NewWatchdog(clk, pending, publisher)
	defer watchdog.Stop()

	if n, err := watchdog.Recover(ctx); err != nil {
		log.Printf("watchdog: recovery failed: %v", err)
	} else {
		log.Printf("watchdog: re-armed %d pending reservations", n)
	}

	coord := &service.Coordinator{
		Catalog:     catalogRepo,
		Pending:     pending,
		Settlements: repository.NewSettlementRepo(db),
		Verifier:    service.NewVerifier(client),
		Watchdog:    watchdog,
		Generator:   service.NewGenerator(),
		Clock:       clk,
		Events:      publisher,
		Owner:       owner,
		Timeout:     cfg.ReservationTimeout,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("http: %s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e, router.Handlers{
		Health: &handler.HealthHandler{Checks: map[string]handler.Pinger{
			"mysql": db,
			"redis": handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		}},
		Catalog:   handler.NewCatalogHandler(&service.Catalog{Store: catalogRepo, Clock: clk}),
		Tickets:   handler.NewTicketHandler(coord),
		Payouts:   &handler.PayoutHandler{Payouts: &service.Payouts{Ledger: client}},
		DevLedger: devLedger,
	}, cfg.JWTSecret, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, ledger=%s, owner=%s)", addr, cfg.Env, cfg.LedgerMode, owner)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// newLedger picks the ledger client for LEDGER_MODE. In memory mode the
// dev routes that write to the ledger are mounted as well.
func newLedger(cfg config.Config) (ledger.Client, *handler.DevLedgerHandler, error) {
	switch cfg.LedgerMode {
	case "memory":
		self, err := ledger.AccountFromIdentity(cfg.ServicePrincipal)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("ledger: using in-memory ledger, service account %s; /v1/dev routes enabled", self.Hex())
		mem := ledger.NewMemoryLedger(self)
		return mem, &handler.DevLedgerHandler{Ledger: mem}, nil
	case "http", "":
		return ledger.NewHTTPClient(cfg.LedgerURL, cfg.LedgerTimeout), nil, nil
	default:
		return nil, nil, errors.New("unknown LEDGER_MODE " + cfg.LedgerMode)
	}
}
