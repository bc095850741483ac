package booking

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// reserveScript increments every night's counter by ARGV[1] only when
// all of them stay within their limits (ARGV[3..]).  It returns 0 on
// success or the 1-based index of the first night that is full.
var reserveScript = redis.NewScript(`
	local qty = tonumber(ARGV[1])
	local ttl = tonumber(ARGV[2])
	for i, key in ipairs(KEYS) do
		local used = tonumber(redis.call('GET', key) or '0')
		local limit = tonumber(ARGV[i + 2])
		if used + qty > limit then
			return i
		end
	end
	for _, key in ipairs(KEYS) do
		redis.call('INCRBY', key, qty)
		if ttl > 0 then
			redis.call('EXPIRE', key, ttl)
		end
	end
	return 0
`)

// releaseScript decrements every night's counter by ARGV[1], never
// below zero.
var releaseScript = redis.NewScript(`
	local qty = tonumber(ARGV[1])
	for _, key in ipairs(KEYS) do
		local left = redis.call('DECRBY', key, qty)
		if left < 0 then
			redis.call('SET', key, 0, 'KEEPTTL')
		end
	end
	return 0
`)

// RedisLedger keeps one counter per (room type, night) in Redis and
// admits a booking with a single atomic script.  Counters must be
// seeded from the reservation table when the ledger is first enabled;
// the post-booking check still runs after every write.
type RedisLedger struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisLedger returns a ledger storing keys under prefix.  Keys
// expire ttl after their last reservation; zero keeps them forever.
func NewRedisLedger(rdb *redis.Client, prefix string, ttl time.Duration) *RedisLedger {
	if prefix == "" {
		prefix = "inv"
	}
	return &RedisLedger{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Key returns the counter key for a room type and night.
func (l *RedisLedger) Key(roomTypeID uint64, day time.Time) string {
	return l.prefix + ":" + strconv.FormatUint(roomTypeID, 10) + ":" + Day(day).Format(DateLayout)
}

func (l *RedisLedger) keys(roomTypeID uint64, days []time.Time) []string {
	keys := make([]string, 0, len(days))
	for _, d := range days {
		keys = append(keys, l.Key(roomTypeID, d))
	}
	return keys
}

// Reserve takes quantity rooms on every night or none.  A full night
// yields a CapacityError naming it.
func (l *RedisLedger) Reserve(ctx context.Context, room model.RoomType, days []time.Time, quantity int) error {
	args := make([]interface{}, 0, len(days)+2)
	args = append(args, quantity, int64(l.ttl/time.Second))
	for _, d := range days {
		args = append(args, DailyLimit(room, d))
	}
	n, err := reserveScript.Run(ctx, l.rdb, l.keys(room.ID, days), args...).Int64()
	if err != nil {
		return fmt.Errorf("ledger reserve: %w", err)
	}
	if n > 0 && int(n) <= len(days) {
		day := days[n-1]
		return &CapacityError{Date: &day}
	}
	return nil
}

// Release returns quantity rooms on every night.
func (l *RedisLedger) Release(ctx context.Context, roomTypeID uint64, days []time.Time, quantity int) error {
	if err := releaseScript.Run(ctx, l.rdb, l.keys(roomTypeID, days), quantity).Err(); err != nil {
		return fmt.Errorf("ledger release: %w", err)
	}
	return nil
}

// Seed sets a night's counter to used.  It is meant for backfilling
// the ledger from existing reservations.
func (l *RedisLedger) Seed(ctx context.Context, roomTypeID uint64, day time.Time, used int) error {
	return l.rdb.Set(ctx, l.Key(roomTypeID, day), used, l.ttl).Err()
}
