package catalog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/orcaflow/orcaflow/internal/platform/httpx"
)

// Handler exposes the product catalog endpoints.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	maxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handler{
		logger:         logger,
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes mounts the catalog endpoints. Mutations are expected to be guarded
// by the admin middleware at mount time.
func (h *Handler) Routes(r chi.Router, adminOnly func(http.Handler) http.Handler) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Group(func(r chi.Router) {
		r.Use(adminOnly)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// withoutPhoto strips the inline photo payload from collection responses.
func withoutPhoto(p Product) Product {
	p.Photo = ""
	return p
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list products failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		out = append(out, withoutPhoto(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, err := h.parseProductForm(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	product, err := h.service.Create(r.Context(), input)
	if err != nil {
		if !errors.Is(err, httpx.ErrValidation) {
			h.logger.Error("create product failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, withoutPhoto(*product))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	input, err := h.parseProductForm(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	product, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrNotFound) {
			h.logger.Error("update product failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, withoutPhoto(*product))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// parseProductForm reads the multipart product form: name, description and
// unit_price fields plus an optional photo file.
func (h *Handler) parseProductForm(r *http.Request) (ProductInput, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return ProductInput{}, fmt.Errorf("%w: invalid multipart form", httpx.ErrValidation)
	}

	var input ProductInput
	if values, ok := r.MultipartForm.Value["name"]; ok && len(values) > 0 {
		input.Name = &values[0]
	}
	if values, ok := r.MultipartForm.Value["description"]; ok && len(values) > 0 {
		input.Description = &values[0]
	}
	if values, ok := r.MultipartForm.Value["unit_price"]; ok && len(values) > 0 {
		price, err := strconv.ParseFloat(values[0], 64)
		if err != nil {
			return ProductInput{}, fmt.Errorf("%w: unit_price must be numeric", httpx.ErrValidation)
		}
		input.UnitPrice = &price
	}

	file, _, err := r.FormFile("photo")
	if err == nil {
		defer func() { _ = file.Close() }()
		raw, err := io.ReadAll(file)
		if err != nil {
			return ProductInput{}, fmt.Errorf("read photo upload: %w", err)
		}
		input.Photo = raw
	} else if !errors.Is(err, http.ErrMissingFile) {
		return ProductInput{}, fmt.Errorf("%w: invalid photo upload", httpx.ErrValidation)
	}

	return input, nil
}
