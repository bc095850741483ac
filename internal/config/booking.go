package config

import (
	"log"
	"time"
)

// Booking strategies.
const (
	StrategyOptimistic = "optimistic"
	StrategyLedger     = "ledger"
)

// BookingConfig controls the booking core and its reconciliation sweep.
type BookingConfig struct {
	Strategy      string        // optimistic or ledger
	Timeout       time.Duration // deadline for a booking request up to the write
	VerifyTimeout time.Duration // deadline for the post-booking check
	MaxNights     int           // longest stay accepted
	SweepEnabled  bool          // run the sweeper inside serve
	SweepInterval time.Duration // how often the sweeper runs
	SweepGrace    time.Duration // minimum age of an unverified reservation
	SweepBatch    int           // reservations examined per pass
	AuditWindow   time.Duration // how far back verified reservations are re-audited; 0 disables
	LedgerPrefix  string        // Redis key prefix for ledger counters
	LedgerTTL     time.Duration // counter expiry; 0 keeps them
}

// LoadBookingConfig reads BOOKING_*, SWEEP_* and LEDGER_* variables.  An
// unknown strategy is fatal.
func LoadBookingConfig() BookingConfig {
	c := BookingConfig{
		Strategy:      envStr("BOOKING_STRATEGY", StrategyOptimistic),
		Timeout:       envDur("BOOKING_TIMEOUT", 5*time.Second),
		VerifyTimeout: envDur("BOOKING_VERIFY_TIMEOUT", 5*time.Second),
		MaxNights:     envInt("BOOKING_MAX_NIGHTS", 365),
		SweepEnabled:  envBool("SWEEP_ENABLED", true),
		SweepInterval: envDur("SWEEP_INTERVAL", time.Minute),
		SweepGrace:    envDur("SWEEP_GRACE", 30*time.Second),
		SweepBatch:    envInt("SWEEP_BATCH", 100),
		AuditWindow:   envDur("SWEEP_AUDIT_WINDOW", 15*time.Minute),
		LedgerPrefix:  envStr("LEDGER_PREFIX", "inv"),
		LedgerTTL:     envDur("LEDGER_TTL", 0),
	}
	switch c.Strategy {
	case StrategyOptimistic, StrategyLedger:
	default:
		log.Fatalf("invalid BOOKING_STRATEGY: %q", c.Strategy)
	}
	if c.MaxNights < 1 {
		c.MaxNights = 365
	}
	if c.AuditWindow < 0 {
		c.AuditWindow = 0
	}
	if c.SweepBatch < 1 {
		c.SweepBatch = 100
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	// The sweep must not race requests that are still verifying.
	if c.SweepGrace < c.Timeout+c.VerifyTimeout {
		c.SweepGrace = c.Timeout + c.VerifyTimeout
	}
	return c
}
