package main // Entry point package

import (
	"context"   // Context for shutdown propagation
	"log"       // Logging library
	"os/signal" // Signal handling for graceful shutdown
	"syscall"   // SIGTERM constant
	"time"      // Shutdown timeout

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/config"
	"github.com/iliyamo/cinema-booking-engine/internal/database"
	"github.com/iliyamo/cinema-booking-engine/internal/gateway"
	"github.com/iliyamo/cinema-booking-engine/internal/handler"
	"github.com/iliyamo/cinema-booking-engine/internal/lockstore"
	appmw "github.com/iliyamo/cinema-booking-engine/internal/middleware"
	"github.com/iliyamo/cinema-booking-engine/internal/queue"
	"github.com/iliyamo/cinema-booking-engine/internal/reaper"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
	"github.com/iliyamo/cinema-booking-engine/internal/router"
	"github.com/iliyamo/cinema-booking-engine/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// The fast lock store is load-bearing: without Redis the engine
	// cannot arbitrate seat contention, so a missing client is fatal.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis: connection failed, seat locking cannot run")
	}
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := repository.NewStore(db)
	seats := repository.NewSeatUnitRepo(store)
	locks := repository.NewLockRepo(store)
	bookings := repository.NewBookingRepo(store)
	payments := repository.NewPaymentRepo(store)
	promotions := repository.NewPromotionRepo(store)
	catalog := repository.NewCatalogRepo(store)

	seatLocks := lockstore.New(rdb, cfg.LockStoreTimeout)
	clk := clock.NewSystem()
	pay := gateway.NewSandbox()
	publisher := queue.NewPublisher()

	manager := service.NewLockManager(store, seats, locks, catalog, seatLocks, clk, cfg.LockTTL, cfg.MaxSeatsPerLock)
	checkout := service.NewCheckoutService(store, seats, locks, bookings, payments, promotions,
		catalog, seatLocks, pay, publisher, clk, cfg.PaymentMethods, cfg.Currency)
	refunds := service.NewRefundService(store, seats, bookings, payments, pay, publisher, clk)

	// Background workers: the expiry sweeper and the event consumer.
	go reaper.New(manager, cfg.ReaperInterval).Start(ctx)
	go queue.StartConsumer(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterRoutes(e, router.Handlers{
		Locks:        handler.NewLockHandler(manager),
		Checkout:     handler.NewCheckoutHandler(checkout),
		Refunds:      handler.NewRefundHandler(refunds),
		Availability: handler.NewAvailabilityHandler(catalog, seats),
	}, cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
