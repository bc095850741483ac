package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/booking"
	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// ReservationRepo stores reservations in MySQL.  It implements
// booking.Store: created_at is DATETIME(6) filled by the server and id
// is AUTO_INCREMENT, so (created_at, id) orders rows by insertion.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

var _ booking.Store = (*ReservationRepo)(nil)

const reservationColumns = `id, room_type_id, hotel_id, user_id, check_in, check_out, quantity,
	total_price_cents, status, verified_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(s rowScanner) (model.Reservation, error) {
	var (
		r        model.Reservation
		verified sql.NullTime
	)
	err := s.Scan(&r.ID, &r.RoomTypeID, &r.HotelID, &r.UserID, &r.CheckIn, &r.CheckOut, &r.Quantity,
		&r.TotalPriceCents, &r.Status, &verified, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return model.Reservation{}, err
	}
	r.CheckIn = booking.Day(r.CheckIn)
	r.CheckOut = booking.Day(r.CheckOut)
	if verified.Valid {
		t := verified.Time.UTC()
		r.VerifiedAt = &t
	}
	return r, nil
}

func (r *ReservationRepo) query(ctx context.Context, q string, args ...interface{}) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ActiveOverlapping returns the active reservations of a room type whose
// stay intersects [checkIn, checkOut), in commit order.  Two stays
// overlap when each starts before the other ends.
func (r *ReservationRepo) ActiveOverlapping(ctx context.Context, roomTypeID uint64, checkIn, checkOut time.Time) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
	      WHERE room_type_id = ? AND status IN (` + placeholders(len(model.ActiveStatuses)) + `)
	        AND check_in < ? AND check_out > ?
	      ORDER BY created_at, id`
	args := []interface{}{roomTypeID}
	args = append(args, stringArgs(model.ActiveStatuses)...)
	args = append(args, sqlDate(checkOut), sqlDate(checkIn))
	return r.query(ctx, q, args...)
}

// Insert writes res without any lock and reads the row back so the
// server-assigned id and timestamps are populated.
func (r *ReservationRepo) Insert(ctx context.Context, res *model.Reservation) error {
	const qInsert = `INSERT INTO reservations
	      (room_type_id, hotel_id, user_id, check_in, check_out, quantity, total_price_cents, status)
	      VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, qInsert, res.RoomTypeID, res.HotelID, res.UserID,
		sqlDate(res.CheckIn), sqlDate(res.CheckOut), res.Quantity, res.TotalPriceCents, res.Status)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)

	const qSelect = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	stored, err := scanReservation(r.db.QueryRowContext(ctx, qSelect, res.ID))
	if err != nil {
		return err
	}
	*res = stored
	return nil
}

// Delete removes a reservation by id whatever its status.  It reports
// false when the row was already gone.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkVerified stamps verified_at once; later calls are no-ops.
func (r *ReservationRepo) MarkVerified(ctx context.Context, id uint64, at time.Time) error {
	const q = `UPDATE reservations SET verified_at = ? WHERE id = ? AND verified_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, at.UTC(), id)
	return err
}

// ListUnverified returns active reservations never verified and created
// before the cutoff, oldest first.
func (r *ReservationRepo) ListUnverified(ctx context.Context, createdBefore time.Time, limit int) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
	      WHERE verified_at IS NULL AND status IN (` + placeholders(len(model.ActiveStatuses)) + `)
	        AND created_at < ?
	      ORDER BY created_at, id
	      LIMIT ?`
	args := stringArgs(model.ActiveStatuses)
	args = append(args, createdBefore.UTC(), limit)
	return r.query(ctx, q, args...)
}

// ListVerifiedSince returns active, verified reservations created in
// [since, before), oldest first.  The sweep re-audits them.
func (r *ReservationRepo) ListVerifiedSince(ctx context.Context, since, before time.Time, limit int) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
	      WHERE verified_at IS NOT NULL AND status IN (` + placeholders(len(model.ActiveStatuses)) + `)
	        AND created_at >= ? AND created_at < ?
	      ORDER BY created_at, id
	      LIMIT ?`
	args := stringArgs(model.ActiveStatuses)
	args = append(args, since.UTC(), before.UTC(), limit)
	return r.query(ctx, q, args...)
}

// Get returns a reservation or booking.ErrReservationNotFound.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reservation{}, booking.ErrReservationNotFound
		}
		return model.Reservation{}, err
	}
	return res, nil
}

// ListByUser returns all of a user's reservations, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
	      WHERE user_id = ?
	      ORDER BY created_at DESC, id DESC`
	return r.query(ctx, q, userID)
}

// UpdateStatus moves a reservation to `to` only when its status is one
// of `from`.  The guard lives in the WHERE clause so concurrent updates
// cannot both succeed.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, from []string, to string) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	q := `UPDATE reservations SET status = ? WHERE id = ? AND status IN (` + placeholders(len(from)) + `)`
	args := []interface{}{to, id}
	args = append(args, stringArgs(from)...)
	result, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
