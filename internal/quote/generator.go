package quote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/orcaflow/orcaflow/internal/doctemplate"
	"github.com/orcaflow/orcaflow/internal/observability"
	"github.com/orcaflow/orcaflow/internal/pdf"
	"github.com/orcaflow/orcaflow/internal/render"
	"github.com/orcaflow/orcaflow/internal/users"
)

// Generator drives the quote document lifecycle: resolve the template,
// render HTML, convert to PDF through the shared engine and record the
// outcome on the quote.
type Generator struct {
	logger   *slog.Logger
	service  *Service
	resolver *doctemplate.Resolver
	renderer *render.Renderer
	engine   *pdf.Engine
	store    *pdf.Store
	users    *users.Service
	metrics  *observability.Metrics

	// group coalesces concurrent generations of the same quote so the
	// engine converts each document once per burst.
	group singleflight.Group
}

// NewGenerator constructs a Generator. Metrics may be nil in tests.
func NewGenerator(logger *slog.Logger, service *Service, resolver *doctemplate.Resolver, renderer *render.Renderer, engine *pdf.Engine, store *pdf.Store, userService *users.Service, metrics *observability.Metrics) *Generator {
	return &Generator{
		logger:   logger,
		service:  service,
		resolver: resolver,
		renderer: renderer,
		engine:   engine,
		store:    store,
		users:    userService,
		metrics:  metrics,
	}
}

// HTML renders the quote's document as self-contained HTML without
// touching the PDF engine. Used for browser previews.
func (g *Generator) HTML(ctx context.Context, actor Actor, id string) (string, error) {
	q, err := g.service.Get(ctx, actor, id)
	if err != nil {
		return "", err
	}
	return g.renderHTML(ctx, q)
}

// GeneratePDF produces (or regenerates) the quote's PDF and returns its
// bytes with the download file name. Concurrent calls for the same quote
// share one conversion; generation is idempotent and overwrites in place.
func (g *Generator) GeneratePDF(ctx context.Context, actor Actor, id string) ([]byte, string, error) {
	if _, err := g.service.Get(ctx, actor, id); err != nil {
		return nil, "", err
	}

	// The flight's result is shared across coalesced callers, so it must
	// not die with the winning caller's request. The engine's own timeout
	// still bounds the conversion.
	flightCtx := context.WithoutCancel(ctx)

	started := time.Now()
	result, err, _ := g.group.Do(id, func() (any, error) {
		return g.generate(flightCtx, id)
	})
	if err != nil {
		g.metrics.ObservePDFGeneration("error", time.Since(started))
		return nil, "", err
	}
	g.metrics.ObservePDFGeneration("success", time.Since(started))
	return result.([]byte), fmt.Sprintf("orcamento_%s.pdf", id), nil
}

func (g *Generator) generate(ctx context.Context, id string) ([]byte, error) {
	// Re-read inside the flight so coalesced callers convert the latest
	// stored content.
	q, err := g.service.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	htmlContent, err := g.renderHTML(ctx, q)
	if err != nil {
		return nil, err
	}

	pdfBytes, err := g.engine.Convert(ctx, htmlContent)
	if err != nil {
		return nil, err
	}

	location, err := g.store.Write(q.ID, pdfBytes)
	if err != nil {
		return nil, err
	}

	// The PDF exists on disk at this point; a failed status update is
	// logged, not surfaced.
	if err := g.service.MarkGenerated(ctx, q.ID, location); err != nil {
		g.logger.Error("quote status update failed after pdf generation",
			slog.String("quote_id", q.ID), slog.Any("error", err))
	}
	return pdfBytes, nil
}

func (g *Generator) renderHTML(ctx context.Context, q *Quote) (string, error) {
	tmpl, err := g.resolver.Resolve(q.TemplateID)
	if err != nil {
		return "", err
	}
	ownerName := g.users.DisplayName(ctx, q.OwnerUserID)
	return g.renderer.Render(documentQuote(q), tmpl, ownerName)
}

// documentQuote flattens a stored quote into the renderer's view model.
// Only snapshot and pricing fields cross the boundary; storage concerns
// like status and template id stay behind.
func documentQuote(q *Quote) render.Quote {
	items := make([]render.LineItem, 0, len(q.Items))
	for _, item := range q.Items {
		items = append(items, render.LineItem{
			Name:        item.Name,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
			Photo:       item.Photo,
		})
	}
	return render.Quote{
		ID:               q.ID,
		ClientName:       q.ClientName,
		ClientDocument:   q.ClientDocument,
		ClientAddress:    q.ClientAddress,
		ClientPostalCode: q.ClientPostalCode,
		ClientPhone:      q.ClientPhone,
		ClientEmail:      q.ClientEmail,
		Notes:            q.Notes,
		CreatedAt:        q.CreatedAt,
		Items:            items,
		PaymentPlan: render.PaymentPlan{
			Installment:            q.PaymentPlan.Type == PaymentInstallment,
			CashMethod:             string(q.PaymentPlan.CashMethod),
			Installments:           q.PaymentPlan.Installments,
			MonthlyInterestPercent: q.PaymentPlan.MonthlyInterestPercent,
		},
		GrossTotal:        q.GrossTotal,
		DiscountAmount:    q.DiscountAmount,
		NetTotal:          q.NetTotal,
		TotalWithInterest: q.TotalWithInterest,
		InstallmentAmount: q.InstallmentAmount,
	}
}
