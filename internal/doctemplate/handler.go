package doctemplate

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orcaflow/orcaflow/internal/platform/httpx"
)

// Handler exposes template listing and retrieval.
type Handler struct {
	logger   *slog.Logger
	resolver *Resolver
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, resolver *Resolver) *Handler {
	return &Handler{logger: logger, resolver: resolver}
}

// Routes mounts the template endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.resolver.List()
	if err != nil {
		h.logger.Error("list templates failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, infos)
}

type templateResponse struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.resolver.Resolve(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, templateResponse{ID: tmpl.ID, Content: string(tmpl.Content)})
}
