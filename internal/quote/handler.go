package quote

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/orcaflow/orcaflow/internal/auth"
	"github.com/orcaflow/orcaflow/internal/platform/httpx"
)

// Handler exposes the quote endpoints. Every route requires an
// authenticated session; ownership checks happen in the service.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	generator *Generator
	validate  *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, generator *Generator) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		generator: generator,
		validate:  validator.New(),
	}
}

// Routes mounts the quote endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/html", h.Preview)
	r.Get("/{id}/pdf", h.DownloadPDF)
}

func actorFromRequest(r *http.Request) (Actor, bool) {
	identity, ok := auth.IdentityFromRequest(r)
	if !ok {
		return Actor{}, false
	}
	return Actor{UserID: identity.UserID, Admin: identity.IsAdmin()}, true
}

// withoutItemPhotos strips inline photo payloads from collection responses.
func withoutItemPhotos(q Quote) Quote {
	items := make([]LineItem, len(q.Items))
	copy(items, q.Items)
	for i := range items {
		items[i].Photo = ""
	}
	q.Items = items
	return q
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	quotes, err := h.service.List(r.Context(), actor)
	if err != nil {
		h.logger.Error("list quotes failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]Quote, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, withoutItemPhotos(q))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	req, err := h.decodeRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	q, err := h.service.Create(r.Context(), actor, *req)
	if err != nil {
		if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrNotFound) {
			h.logger.Error("create quote failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, withoutItemPhotos(*q))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	q, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	req, err := h.decodeRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	q, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), *req)
	if err != nil {
		if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrNotFound) && !errors.Is(err, httpx.ErrForbidden) {
			h.logger.Error("update quote failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, withoutItemPhotos(*q))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Preview returns the rendered HTML document without converting it.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	htmlContent, err := h.generator.HTML(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) && !errors.Is(err, httpx.ErrForbidden) {
			h.logger.Error("quote preview failed", slog.String("quote_id", chi.URLParam(r, "id")), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(htmlContent))
}

// DownloadPDF generates the quote's PDF (idempotently) and streams it back.
func (h *Handler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	id := chi.URLParam(r, "id")
	pdfBytes, filename, err := h.generator.GeneratePDF(r.Context(), actor, id)
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) && !errors.Is(err, httpx.ErrForbidden) {
			h.logger.Error("quote pdf generation failed", slog.String("quote_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdfBytes)
}

func (h *Handler) decodeRequest(r *http.Request) (*QuoteRequest, error) {
	var req QuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON body", httpx.ErrValidation)
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return &req, nil
}
