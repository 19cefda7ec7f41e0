package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pixelfolio/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT id, email, phone, password_hash, verified, reset_otp, reset_otp_expires, created_at, updated_at
		FROM users
		WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT id, email, phone, password_hash, verified, reset_otp, reset_otp_expires, created_at, updated_at
		FROM users
		WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (email, phone, password_hash, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.Verified,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// UpdateRegistration overwrites the phone and password hash of an
// unverified account that resumed registration.
func (r *UserRepository) UpdateRegistration(ctx context.Context, id int, phone, passwordHash string) error {
	const query = `
		UPDATE users
		SET phone = $1,
			password_hash = $2,
			updated_at = $3
		WHERE id = $4`
	return r.exec(ctx, query, phone, passwordHash, time.Now(), id)
}

// SetVerified flips the user's verified flag to true.
func (r *UserRepository) SetVerified(ctx context.Context, id int) error {
	const query = `
		UPDATE users
		SET verified = TRUE,
			updated_at = $1
		WHERE id = $2`
	return r.exec(ctx, query, time.Now(), id)
}

// SetPassword replaces the user's password hash.
func (r *UserRepository) SetPassword(ctx context.Context, id int, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $1,
			updated_at = $2
		WHERE id = $3`
	return r.exec(ctx, query, passwordHash, time.Now(), id)
}

func (r *UserRepository) scanOne(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.Verified,
		&user.ResetOTP,
		&user.ResetOTPExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
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
