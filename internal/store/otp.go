package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pixelfolio/apiserver/types"
)

// OTPRepository handles persistence for one-time passcodes.
type OTPRepository struct {
	db *sql.DB
}

func NewOTPRepository(db *sql.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Upsert stores a fresh code for the (email, purpose) pair, overwriting any
// prior code and resetting the validity anchor. Last writer wins.
func (r *OTPRepository) Upsert(ctx context.Context, email, code string, purpose types.OTPPurpose) (types.OTP, error) {
	const query = `
		INSERT INTO otps (email, code, purpose, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email, purpose)
		DO UPDATE SET code = EXCLUDED.code, created_at = EXCLUDED.created_at
		RETURNING id`
	otp := types.OTP{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		CreatedAt: time.Now(),
	}
	if err := r.db.QueryRowContext(ctx, query, otp.Email, otp.Code, otp.Purpose, otp.CreatedAt).Scan(&otp.ID); err != nil {
		return types.OTP{}, err
	}
	return otp, nil
}

// FindValid looks up a record matching email, code, and purpose whose
// creation timestamp is after the cutoff.
func (r *OTPRepository) FindValid(ctx context.Context, email, code string, purpose types.OTPPurpose, cutoff time.Time) (types.OTP, error) {
	const query = `
		SELECT id, email, code, purpose, created_at
		FROM otps
		WHERE email = $1 AND code = $2 AND purpose = $3 AND created_at > $4`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email, code, purpose, cutoff))
}

// FindValidByCode looks up a record by code and purpose alone, for flows
// where the caller does not yet know the owning email.
func (r *OTPRepository) FindValidByCode(ctx context.Context, code string, purpose types.OTPPurpose, cutoff time.Time) (types.OTP, error) {
	const query = `
		SELECT id, email, code, purpose, created_at
		FROM otps
		WHERE code = $1 AND purpose = $2 AND created_at > $3`
	return r.scanOne(r.db.QueryRowContext(ctx, query, code, purpose, cutoff))
}

func (r *OTPRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM otps WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes records older than the cutoff. It backstops the
// validity check in lookups; an expired-but-unpurged record is never
// returned by FindValid or FindValidByCode regardless of purge timing.
func (r *OTPRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM otps WHERE created_at <= $1`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *OTPRepository) scanOne(row *sql.Row) (types.OTP, error) {
	var otp types.OTP
	err := row.Scan(
		&otp.ID,
		&otp.Email,
		&otp.Code,
		&otp.Purpose,
		&otp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.OTP{}, ErrNotFound
		}
		return types.OTP{}, err
	}
	return otp, nil
}
