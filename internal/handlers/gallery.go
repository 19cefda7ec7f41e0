package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pixelfolio/apiserver/internal/services"
	"github.com/pixelfolio/apiserver/types"
	"go.uber.org/zap"
)

const (
	maxMultipartMemory = 32 << 20
	formFieldImages    = "images"
	formFieldImage     = "image"
	formFieldTitles    = "titles"
	formFieldTitle     = "title"
)

// GalleryHandler provides HTTP handlers for the image gallery.
type GalleryHandler struct {
	galleryService *services.GalleryService
	logger         *zap.SugaredLogger
}

// NewGalleryHandler constructs a handler with the provided service.
func NewGalleryHandler(galleryService *services.GalleryService, logger *zap.SugaredLogger) *GalleryHandler {
	return &GalleryHandler{
		galleryService: galleryService,
		logger:         logger,
	}
}

// GalleryRouter registers gallery routes on the given router. All routes
// require authentication.
func GalleryRouter(r chi.Router, galleryService *services.GalleryService, authMiddleware func(http.Handler) http.Handler, logger *zap.SugaredLogger) {
	handler := NewGalleryHandler(galleryService, logger)

	r.Use(authMiddleware)
	r.Get("/", handler.GetGallery)
	r.Post("/upload", handler.UploadImages)
	r.Put("/order", handler.SaveOrder)
	r.Route("/{itemID}", func(r chi.Router) {
		r.Put("/", handler.UpdateItem)
		r.Delete("/", handler.DeleteItem)
	})
}

// ItemsResponse pairs a message with the created items.
type ItemsResponse struct {
	Message string              `json:"message"`
	Items   []types.GalleryItem `json:"items"`
}

// ItemResponse pairs a message with a single item.
type ItemResponse struct {
	Message string            `json:"message"`
	Item    types.GalleryItem `json:"item"`
}

// SaveOrderRequest carries the drag-reordered positions.
type SaveOrderRequest struct {
	OrderData []types.OrderUpdate `json:"orderData"`
}

// UploadImages hosts the submitted files and appends them to the gallery.
func (h *GalleryHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized access")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	fileHeaders := r.MultipartForm.File[formFieldImages]
	if len(fileHeaders) == 0 {
		writeError(w, http.StatusBadRequest, "No files uploaded")
		return
	}
	titles := r.MultipartForm.Value[formFieldTitles]

	files, closeFiles, err := openUploadFiles(fileHeaders)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}
	defer closeFiles()

	items, err := h.galleryService.UploadImages(r.Context(), userID, files, titles)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ItemsResponse{Message: msgUploadSuccess, Items: items})
}

// GetGallery returns the caller's items in display order.
func (h *GalleryHandler) GetGallery(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized access")
		return
	}

	items, err := h.galleryService.List(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// UpdateItem retitles and/or replaces the image of an item.
func (h *GalleryHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized access")
		return
	}

	id, err := parseItemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	title := r.FormValue(formFieldTitle)

	var file *services.UploadFile
	if headers := r.MultipartForm.File[formFieldImage]; len(headers) > 0 {
		files, closeFiles, err := openUploadFiles(headers[:1])
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to read upload")
			return
		}
		defer closeFiles()
		file = &files[0]
	}

	item, err := h.galleryService.UpdateItem(r.Context(), id, userID, title, file)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ItemResponse{Message: msgUpdateSuccess, Item: item})
}

// DeleteItem removes an item and its hosted image.
func (h *GalleryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized access")
		return
	}

	id, err := parseItemID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.galleryService.DeleteItem(r.Context(), id, userID); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: msgDeleteSuccess})
}

// SaveOrder persists drag-reordered positions.
func (h *GalleryHandler) SaveOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized access")
		return
	}

	var req SaveOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.galleryService.SaveOrder(r.Context(), userID, req.OrderData); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: msgOrderSaved})
}

func (h *GalleryHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Errorw("gallery request failed", "path", r.URL.Path, "error", err)
	writeServiceError(w, err)
}

func parseItemID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "itemID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid item id")
	}
	return id, nil
}

// openUploadFiles opens each multipart file and returns a closer for all
// of them. The returned UploadFiles stream from the request body.
func openUploadFiles(headers []*multipart.FileHeader) ([]services.UploadFile, func(), error) {
	files := make([]services.UploadFile, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	closeFiles := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			closeFiles()
			return nil, nil, err
		}
		opened = append(opened, file)
		files = append(files, services.UploadFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Reader:      file,
		})
	}
	return files, closeFiles, nil
}
