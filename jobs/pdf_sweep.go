package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/orcaflow/orcaflow/internal/jobs"
	"github.com/orcaflow/orcaflow/internal/pdf"
	"github.com/orcaflow/orcaflow/internal/quote"
)

const (
	pdfFilePrefix = "orcamento_"
	pdfFileSuffix = ".pdf"

	defaultSweepMinAge = time.Hour
)

// PDFSweeper deletes orphaned PDFs: files in the store whose quote has been
// removed. Quote deletion already cleans up its own PDF, so the sweep only
// catches files left behind by crashes or manual store edits.
type PDFSweeper struct {
	logger  *slog.Logger
	quotes  quote.Repository
	store   *pdf.Store
	metrics *jobmetrics.Metrics
}

// NewPDFSweeper constructs a PDFSweeper.
func NewPDFSweeper(logger *slog.Logger, quotes quote.Repository, store *pdf.Store, metrics *jobmetrics.Metrics) *PDFSweeper {
	return &PDFSweeper{logger: logger, quotes: quotes, store: store, metrics: metrics}
}

// Handle processes a pdf:sweep task.
func (s *PDFSweeper) Handle(ctx context.Context, t *asynq.Task) error {
	var payload PDFSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.MinAge <= 0 {
		payload.MinAge = defaultSweepMinAge
	}

	tracker := s.metrics.Track("pdf_sweep")
	removed, err := s.sweep(ctx, payload.MinAge)
	if err != nil {
		s.logger.Error("pdf sweep failed", slog.Any("error", err))
		return tracker.End(err)
	}
	if removed > 0 {
		s.logger.Info("pdf sweep removed orphans", slog.Int("count", removed))
	}
	return tracker.End(nil)
}

func (s *PDFSweeper) sweep(ctx context.Context, minAge time.Duration) (int, error) {
	quotes, err := s.quotes.List(ctx, "")
	if err != nil {
		return 0, err
	}
	known := make(map[string]struct{}, len(quotes))
	for _, q := range quotes {
		known[q.ID] = struct{}{}
	}

	entries, err := os.ReadDir(s.store.Dir())
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-minAge)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, pdfFilePrefix) || !strings.HasSuffix(name, pdfFileSuffix) {
			continue
		}
		quoteID := strings.TrimSuffix(strings.TrimPrefix(name, pdfFilePrefix), pdfFileSuffix)
		if quoteID == "" {
			continue
		}
		if _, ok := known[quoteID]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.store.Dir(), name)); err != nil {
			s.logger.Warn("pdf sweep could not remove file", slog.String("file", name), slog.Any("error", err))
			continue
		}
		removed++
	}
	return removed, nil
}
