package types

import "time"

// GalleryItem is a single image in a user's ordered gallery.
type GalleryItem struct {
	// ID is the unique identifier of the item.
	ID int `json:"id" db:"id"`

	// UserID is the owner of the item. Items are only ever visible to
	// and mutable by their owner.
	UserID int `json:"user_id" db:"user_id"`

	// Title is the user-supplied caption for the image.
	Title string `json:"title" db:"title"`

	// ImageURL is the public URL of the hosted image.
	ImageURL string `json:"image_url" db:"image_url"`

	// ObjectKey is the key of the image in object storage. It is internal
	// bookkeeping used to replace or delete the hosted object.
	ObjectKey string `json:"-" db:"object_key"`

	// OrderIndex is the item's position within the owner's gallery.
	OrderIndex int `json:"order_index" db:"order_index"`

	// CreatedAt is the timestamp when the item was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the item.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// OrderUpdate assigns a new position to a gallery item.
type OrderUpdate struct {
	ID         int `json:"id"`
	OrderIndex int `json:"orderIndex"`
}
