package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pixelfolio/apiserver/types"
)

// GalleryRepository handles persistence for gallery items.
type GalleryRepository struct {
	db *sql.DB
}

func NewGalleryRepository(db *sql.DB) *GalleryRepository {
	return &GalleryRepository{db: db}
}

// ListByUser returns the user's items ordered by position.
func (r *GalleryRepository) ListByUser(ctx context.Context, userID int) ([]types.GalleryItem, error) {
	const query = `
		SELECT id, user_id, title, image_url, object_key, order_index, created_at, updated_at
		FROM gallery_items
		WHERE user_id = $1
		ORDER BY order_index`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.GalleryItem, 0)
	for rows.Next() {
		var item types.GalleryItem
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.Title,
			&item.ImageURL,
			&item.ObjectKey,
			&item.OrderIndex,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GalleryRepository) Get(ctx context.Context, id int) (types.GalleryItem, error) {
	const query = `
		SELECT id, user_id, title, image_url, object_key, order_index, created_at, updated_at
		FROM gallery_items
		WHERE id = $1`
	var item types.GalleryItem
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.UserID,
		&item.Title,
		&item.ImageURL,
		&item.ObjectKey,
		&item.OrderIndex,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.GalleryItem{}, ErrNotFound
		}
		return types.GalleryItem{}, err
	}
	return item, nil
}

func (r *GalleryRepository) Create(ctx context.Context, item types.GalleryItem) (types.GalleryItem, error) {
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	const query = `
		INSERT INTO gallery_items (user_id, title, image_url, object_key, order_index, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		item.UserID,
		item.Title,
		item.ImageURL,
		item.ObjectKey,
		item.OrderIndex,
		item.CreatedAt,
		item.UpdatedAt,
	).Scan(&item.ID); err != nil {
		return types.GalleryItem{}, err
	}
	return item, nil
}

func (r *GalleryRepository) Update(ctx context.Context, item types.GalleryItem) (types.GalleryItem, error) {
	item.UpdatedAt = time.Now()

	const query = `
		UPDATE gallery_items
		SET title = $1,
			image_url = $2,
			object_key = $3,
			order_index = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		item.Title,
		item.ImageURL,
		item.ObjectKey,
		item.OrderIndex,
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return types.GalleryItem{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.GalleryItem{}, err
	}
	if affected == 0 {
		return types.GalleryItem{}, ErrNotFound
	}
	return item, nil
}

func (r *GalleryRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM gallery_items WHERE id = $1`
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

// UpdateOrder applies the given positions in a single transaction. Updates
// are scoped to the owner so one user cannot reorder another's items.
func (r *GalleryRepository) UpdateOrder(ctx context.Context, userID int, updates []types.OrderUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
		UPDATE gallery_items
		SET order_index = $1,
			updated_at = $2
		WHERE id = $3 AND user_id = $4`
	now := time.Now()
	for _, update := range updates {
		if _, err := tx.ExecContext(ctx, query, update.OrderIndex, now, update.ID, userID); err != nil {
			return err
		}
	}

	return tx.Commit()
}
