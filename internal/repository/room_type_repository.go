package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hotel-room-booking/internal/booking"
	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// RoomTypeRepo reads and writes room types and their calendar.  It is
// the booking core's Inventory provider.
type RoomTypeRepo struct {
	db *sql.DB
}

// NewRoomTypeRepo returns a RoomTypeRepo bound to db.
func NewRoomTypeRepo(db *sql.DB) *RoomTypeRepo { return &RoomTypeRepo{db: db} }

const roomTypeColumns = `id, hotel_id, name, base_price_cents, base_stock, created_at, updated_at`

// GetRoomType loads a room type with its full calendar.  It returns
// booking.ErrRoomTypeNotFound when no row matches.
func (r *RoomTypeRepo) GetRoomType(ctx context.Context, id uint64) (model.RoomType, error) {
	const q = `SELECT ` + roomTypeColumns + ` FROM room_types WHERE id = ?`
	var rt model.RoomType
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&rt.ID, &rt.HotelID, &rt.Name, &rt.BasePriceCents, &rt.BaseStock, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RoomType{}, booking.ErrRoomTypeNotFound
		}
		return model.RoomType{}, err
	}
	cal, err := r.calendar(ctx, id)
	if err != nil {
		return model.RoomType{}, err
	}
	rt.Calendar = cal
	return rt, nil
}

func (r *RoomTypeRepo) calendar(ctx context.Context, roomTypeID uint64) ([]model.CalendarEntry, error) {
	const q = `SELECT day, price_cents, stock FROM room_type_calendar WHERE room_type_id = ?`
	rows, err := r.db.QueryContext(ctx, q, roomTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CalendarEntry
	for rows.Next() {
		var (
			e     model.CalendarEntry
			price sql.NullInt64
			stock sql.NullInt32
		)
		if err := rows.Scan(&e.Date, &price, &stock); err != nil {
			return nil, err
		}
		e.Date = booking.Day(e.Date)
		if price.Valid {
			p := price.Int64
			e.PriceCents = &p
		}
		if stock.Valid {
			s := int(stock.Int32)
			e.Stock = &s
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Create inserts a room type and reads it back so timestamps are set.
// A duplicate name within the hotel yields ErrConflict.
func (r *RoomTypeRepo) Create(ctx context.Context, rt *model.RoomType) error {
	const qInsert = `INSERT INTO room_types (hotel_id, name, base_price_cents, base_stock) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, rt.HotelID, rt.Name, rt.BasePriceCents, rt.BaseStock)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rt.ID = uint64(id)

	const qSelect = `SELECT ` + roomTypeColumns + ` FROM room_types WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, rt.ID).Scan(
		&rt.ID, &rt.HotelID, &rt.Name, &rt.BasePriceCents, &rt.BaseStock, &rt.CreatedAt, &rt.UpdatedAt)
}

// UpsertCalendar sets or replaces the override for one date.  Passing
// nil for both price and stock removes the override.
func (r *RoomTypeRepo) UpsertCalendar(ctx context.Context, roomTypeID uint64, e model.CalendarEntry) error {
	day := sqlDate(e.Date)
	if e.PriceCents == nil && e.Stock == nil {
		const qDelete = `DELETE FROM room_type_calendar WHERE room_type_id = ? AND day = ?`
		_, err := r.db.ExecContext(ctx, qDelete, roomTypeID, day)
		return err
	}
	const q = `INSERT INTO room_type_calendar (room_type_id, day, price_cents, stock) VALUES (?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE price_cents = VALUES(price_cents), stock = VALUES(stock)`
	var price, stock interface{}
	if e.PriceCents != nil {
		price = *e.PriceCents
	}
	if e.Stock != nil {
		stock = *e.Stock
	}
	_, err := r.db.ExecContext(ctx, q, roomTypeID, day, price, stock)
	return err
}

// ListIDs returns every room type id, used to seed the ledger.
func (r *RoomTypeRepo) ListIDs(ctx context.Context) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM room_types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Ensure the repository satisfies the booking core's contract.
var _ booking.Inventory = (*RoomTypeRepo)(nil)

// sqlDate formats t as a DATE literal argument.
func sqlDate(t time.Time) string { return booking.Day(t).Format(booking.DateLayout) }
