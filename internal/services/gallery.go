package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pixelfolio/apiserver/internal/apierr"
	"github.com/pixelfolio/apiserver/internal/store"
	"github.com/pixelfolio/apiserver/types"
	"go.uber.org/zap"
)

const defaultItemTitle = "Untitled"

// GalleryRepository defines persistence operations for gallery items.
type GalleryRepository interface {
	ListByUser(ctx context.Context, userID int) ([]types.GalleryItem, error)
	Get(ctx context.Context, id int) (types.GalleryItem, error)
	Create(ctx context.Context, item types.GalleryItem) (types.GalleryItem, error)
	Update(ctx context.Context, item types.GalleryItem) (types.GalleryItem, error)
	Delete(ctx context.Context, id int) error
	UpdateOrder(ctx context.Context, userID int, updates []types.OrderUpdate) error
}

// Uploader stores image bytes with the external host and returns the
// public URL; Remove deletes a hosted image by key.
type Uploader interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

// UploadFile is one image received from a multipart request.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// GalleryService manages a user's ordered image collection.
type GalleryService struct {
	repo    GalleryRepository
	uploads Uploader
	logger  *zap.SugaredLogger
}

func NewGalleryService(repo GalleryRepository, uploads Uploader, logger *zap.SugaredLogger) *GalleryService {
	return &GalleryService{
		repo:    repo,
		uploads: uploads,
		logger:  logger,
	}
}

// UploadImages hosts each file and appends the items to the end of the
// user's gallery. Titles pair with files positionally; missing titles
// default. An upload failure propagates, since the caller depends on the
// resulting URL.
func (s *GalleryService) UploadImages(ctx context.Context, userID int, files []UploadFile, titles []string) ([]types.GalleryItem, error) {
	existing, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	nextOrderIndex := len(existing)

	items := make([]types.GalleryItem, 0, len(files))
	for i, file := range files {
		title := defaultItemTitle
		if i < len(titles) && strings.TrimSpace(titles[i]) != "" {
			title = strings.TrimSpace(titles[i])
		}

		key := objectKey(file.Name)
		url, err := s.uploads.Upload(ctx, key, file.Reader, file.Size, file.ContentType)
		if err != nil {
			return nil, err
		}

		item, err := s.repo.Create(ctx, types.GalleryItem{
			UserID:     userID,
			Title:      title,
			ImageURL:   url,
			ObjectKey:  key,
			OrderIndex: nextOrderIndex,
		})
		if err != nil {
			return nil, err
		}
		nextOrderIndex++
		items = append(items, item)
	}
	return items, nil
}

// List returns the user's items in display order.
func (s *GalleryService) List(ctx context.Context, userID int) ([]types.GalleryItem, error) {
	return s.repo.ListByUser(ctx, userID)
}

// UpdateItem retitles and/or replaces the image of an owned item. A
// replaced image's old object is removed best-effort.
func (s *GalleryService) UpdateItem(ctx context.Context, id, userID int, title string, file *UploadFile) (types.GalleryItem, error) {
	item, err := s.getOwned(ctx, id, userID)
	if err != nil {
		return types.GalleryItem{}, err
	}

	if strings.TrimSpace(title) != "" {
		item.Title = strings.TrimSpace(title)
	}

	oldKey := ""
	if file != nil {
		key := objectKey(file.Name)
		url, err := s.uploads.Upload(ctx, key, file.Reader, file.Size, file.ContentType)
		if err != nil {
			return types.GalleryItem{}, err
		}
		oldKey = item.ObjectKey
		item.ImageURL = url
		item.ObjectKey = key
	}

	updated, err := s.repo.Update(ctx, item)
	if err != nil {
		return types.GalleryItem{}, err
	}

	if oldKey != "" {
		s.removeObject(ctx, oldKey)
	}
	return updated, nil
}

// DeleteItem removes an owned item and best-effort deletes its hosted image.
func (s *GalleryService) DeleteItem(ctx context.Context, id, userID int) error {
	item, err := s.getOwned(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, item.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apierr.ErrItemNotFound
		}
		return err
	}

	if item.ObjectKey != "" {
		s.removeObject(ctx, item.ObjectKey)
	}
	return nil
}

// SaveOrder persists the drag-reordered positions for the user's items.
func (s *GalleryService) SaveOrder(ctx context.Context, userID int, updates []types.OrderUpdate) error {
	return s.repo.UpdateOrder(ctx, userID, updates)
}

// getOwned fetches an item and hides it behind ItemNotFound unless the
// caller owns it.
func (s *GalleryService) getOwned(ctx context.Context, id, userID int) (types.GalleryItem, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.GalleryItem{}, apierr.ErrItemNotFound
		}
		return types.GalleryItem{}, err
	}
	if item.UserID != userID {
		return types.GalleryItem{}, apierr.ErrItemNotFound
	}
	return item, nil
}

func (s *GalleryService) removeObject(ctx context.Context, key string) {
	if err := s.uploads.Remove(ctx, key); err != nil {
		s.logger.Warnw("failed to remove hosted image", "key", key, "error", err)
	}
}

func objectKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return "gallery/" + uuid.NewString() + ext
}
