package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/iliyamo/hotel-room-booking/internal/config"
	"github.com/iliyamo/hotel-room-booking/internal/database"
	"github.com/iliyamo/hotel-room-booking/internal/handler"
	"github.com/iliyamo/hotel-room-booking/internal/middleware"
	"github.com/iliyamo/hotel-room-booking/internal/queue"
	"github.com/iliyamo/hotel-room-booking/internal/router"
)

func newServeCmd() *cobra.Command {
	var (
		migrateUp   bool
		withConsume bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reconciliation sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if migrateUp {
				applied, err := database.Migrate(ctx, a.db)
				if err != nil {
					return err
				}
				for _, name := range applied {
					log.Printf("migrated %s", name)
				}
			}

			if a.booking.SweepEnabled {
				sched, err := startSweep(a)
				if err != nil {
					return err
				}
				defer func() {
					if err := sched.Shutdown(); err != nil {
						log.Printf("sweep scheduler shutdown: %v", err)
					}
				}()
			}

			if withConsume && a.cfg.AMQPURL != "" {
				go func() {
					if err := queue.NewConsumer(a.cfg.AMQPURL).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Printf("booking-consumer: %v", err)
					}
				}()
			}

			e := echo.New()
			e.HideBanner = true
			e.Use(echomw.Logger())
			e.Use(echomw.Recover())
			router.RegisterRoutes(e, router.Deps{
				Health:    handler.NewHealthHandler(a.db),
				Booking:   handler.NewBookingHandler(a.svc),
				Owner:     handler.NewOwnerHandler(a.rooms),
				JWTSecret: a.cfg.JWTSecret,
				RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), a.rdb),
				Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), a.rdb),
			})

			addr := ":" + a.cfg.Port
			log.Printf("listening on %s (env=%s, strategy=%s)", addr, a.cfg.Env, a.booking.Strategy)

			errc := make(chan error, 1)
			go func() { errc <- e.Start(addr) }()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			return e.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "apply database migrations before serving")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	cmd.Flags().BoolVar(&withConsume, "consume", false, "also run the booking event consumer")
	return cmd
}

// startSweep schedules the reconciliation sweep.  A pass still running
// when the next is due is skipped rather than stacked.
func startSweep(a *app) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	sw := a.sweeper()
	_, err = sched.NewJob(
		gocron.DurationJob(a.booking.SweepInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), a.booking.SweepInterval)
			defer cancel()
			res, err := sw.RunOnce(ctx)
			if err != nil {
				log.Printf("sweeper: %v", err)
				return
			}
			if res.Checked > 0 || res.Revoked > 0 || res.Failed > 0 {
				log.Printf("sweeper: %s", formatSweep(res))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}
	sched.Start()
	return sched, nil
}
