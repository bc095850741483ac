package cli

import (
	"database/sql"
	"errors"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-room-booking/internal/booking"
	"github.com/iliyamo/hotel-room-booking/internal/config"
	"github.com/iliyamo/hotel-room-booking/internal/database"
	"github.com/iliyamo/hotel-room-booking/internal/queue"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
)

// app is the wired object graph shared by the long-running commands.
type app struct {
	cfg          config.Config
	booking      config.BookingConfig
	db           *sql.DB
	rdb          *redis.Client
	rooms        *repository.RoomTypeRepo
	reservations *repository.ReservationRepo
	ledger       *booking.RedisLedger
	svc          *booking.Service
}

// openApp connects to MySQL and, when reachable, Redis, then builds the
// booking service for the configured strategy.
func openApp() (*app, error) {
	a := &app{cfg: config.Load(), booking: config.LoadBookingConfig()}

	db, err := database.Open(a.cfg.DBUser, a.cfg.DBPass, a.cfg.DBHost, a.cfg.DBPort, a.cfg.DBName, database.Options{
		MaxOpenConns:    a.cfg.DBMaxConns,
		ConnMaxLifetime: a.cfg.DBConnMaxAge,
	})
	if err != nil {
		return nil, err
	}
	a.db = db
	a.rooms = repository.NewRoomTypeRepo(db)
	a.reservations = repository.NewReservationRepo(db)

	a.rdb = config.NewRedisClient()
	if a.rdb == nil {
		log.Println("redis unavailable: rate limiting, caching and the ledger are off")
	}

	opts := []booking.Option{
		booking.WithTimeouts(a.booking.Timeout, a.booking.VerifyTimeout),
		booking.WithMaxNights(a.booking.MaxNights),
	}
	if a.booking.Strategy == config.StrategyLedger {
		if a.rdb == nil {
			a.Close()
			return nil, errors.New("BOOKING_STRATEGY=ledger requires redis")
		}
		a.ledger = booking.NewRedisLedger(a.rdb, a.booking.LedgerPrefix, a.booking.LedgerTTL)
		opts = append(opts, booking.WithLedger(a.ledger))
	}
	if a.cfg.AMQPURL != "" {
		opts = append(opts, booking.WithEvents(queue.NewPublisher(a.cfg.AMQPURL)))
	}
	a.svc = booking.NewService(a.rooms, a.reservations, opts...)
	return a, nil
}

// sweeper returns a reconciliation sweep sharing the service's verifier.
func (a *app) sweeper() *booking.Sweeper {
	s := &booking.Sweeper{
		Inventory:   a.rooms,
		Store:       a.reservations,
		Verifier:    a.svc.Verifier(),
		Grace:       a.booking.SweepGrace,
		Batch:       a.booking.SweepBatch,
		AuditWindow: a.booking.AuditWindow,
	}
	if a.ledger != nil {
		s.Ledger = a.ledger
	}
	return s
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
