// Package postgres implements the repository ports on database/sql.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// BookingRepository persists bookings in PostgreSQL. The payment sub-record
// is stored denormalized on the booking row; the two move together through
// every transition, which keeps each update a single statement.
type BookingRepository struct {
	db *sql.DB
}

// NewBookingRepository creates a new Postgres-backed booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, user_id, subject, category, starts_at, duration_min,
	charge_amount, charge_currency, status,
	payment_method, payment_status, payment_amount,
	transaction_ref, preference_id, processed_at, created_at, updated_at`

// Create inserts a booking after checking for an overlapping active booking
// on the same subject/category window. The check and insert run in one
// transaction so two concurrent submissions cannot both pass.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var conflict bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE subject = $1 AND category = $2
			  AND status IN ('pending', 'confirmed')
			  AND starts_at < $4
			  AND starts_at + make_interval(mins => duration_min) > $3
		)`,
		b.Subject, b.Category, b.StartsAt, b.EndsAt(),
	).Scan(&conflict)
	if err != nil {
		return fmt.Errorf("conflict check: %w", err)
	}
	if conflict {
		return domain.ErrBookingConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		b.ID, b.UserID, b.Subject, b.Category, b.StartsAt, b.DurationMin,
		b.Charge.Amount, b.Charge.Currency, b.Status,
		b.Payment.Method, b.Payment.Status, b.Payment.Amount,
		nullable(b.Payment.TransactionRef), nullable(b.Payment.PreferenceID),
		b.Payment.ProcessedAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return tx.Commit()
}

// GetByID loads one booking.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	return scanBooking(row)
}

// Update overwrites the mutable columns of a booking row. The predicate on
// the status the caller read makes the write a compare-and-swap: a
// concurrent transition wins and this writer gets ErrStaleBooking instead of
// clobbering it.
func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking, from domain.BookingStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET
			status = $2, payment_status = $3,
			transaction_ref = $4, preference_id = $5,
			processed_at = $6, updated_at = $7
		WHERE id = $1 AND status = $8`,
		b.ID, b.Status, b.Payment.Status,
		nullable(b.Payment.TransactionRef), nullable(b.Payment.PreferenceID),
		b.Payment.ProcessedAt, b.UpdatedAt, from,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, b.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("stale check: %w", err)
		}
		if !exists {
			return domain.ErrBookingNotFound
		}
		return domain.ErrStaleBooking
	}
	return nil
}

// Delete removes a booking row.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		b           domain.Booking
		txnRef      sql.NullString
		prefID      sql.NullString
		processedAt sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.UserID, &b.Subject, &b.Category, &b.StartsAt, &b.DurationMin,
		&b.Charge.Amount, &b.Charge.Currency, &b.Status,
		&b.Payment.Method, &b.Payment.Status, &b.Payment.Amount,
		&txnRef, &prefID, &processedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan booking: %w", err)
	}
	b.Payment.TransactionRef = txnRef.String
	b.Payment.PreferenceID = prefID.String
	if processedAt.Valid {
		t := processedAt.Time.UTC()
		b.Payment.ProcessedAt = &t
	}
	b.StartsAt = b.StartsAt.UTC()
	return &b, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
