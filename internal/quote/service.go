package quote

import (
	"context"
	"log/slog"
	"time"

	"github.com/orcaflow/orcaflow/internal/catalog"
	"github.com/orcaflow/orcaflow/internal/doctemplate"
	"github.com/orcaflow/orcaflow/internal/pdf"
	"github.com/orcaflow/orcaflow/internal/shared"
)

// Actor is the authenticated caller performing a quote operation. Admins
// see and manage every quote; users only their own.
type Actor struct {
	UserID string
	Admin  bool
}

// Service owns quote business rules: pricing against the catalog,
// ownership enforcement and persistence.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	catalog  *catalog.Service
	resolver *doctemplate.Resolver
	pdfs     *pdf.Store
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo Repository, catalogService *catalog.Service, resolver *doctemplate.Resolver, pdfs *pdf.Store) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		catalog:  catalogService,
		resolver: resolver,
		pdfs:     pdfs,
	}
}

// Create prices the requested items against the current catalog, snapshots
// them and persists a new pending quote owned by the actor.
func (s *Service) Create(ctx context.Context, actor Actor, req QuoteRequest) (*Quote, error) {
	if err := s.resolver.ValidateID(req.TemplateID); err != nil {
		return nil, err
	}
	if _, err := s.resolver.Resolve(req.TemplateID); err != nil {
		return nil, err
	}

	snapshot, err := s.catalogSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	financials, err := ComputePricing(req.lineItemRequests(), snapshot, req.discountSpec(), req.paymentPlan())
	if err != nil {
		return nil, err
	}

	q := Quote{
		ID:          shared.ShortID(8),
		OwnerUserID: actor.UserID,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	applyRequest(&q, req, financials)

	if err := s.repo.Create(ctx, q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Get returns a quote after checking the actor may see it.
func (s *Service) Get(ctx context.Context, actor Actor, id string) (*Quote, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, q); err != nil {
		return nil, err
	}
	return q, nil
}

// List returns the actor's quotes, or every quote for admins.
func (s *Service) List(ctx context.Context, actor Actor) ([]Quote, error) {
	owner := actor.UserID
	if actor.Admin {
		owner = ""
	}
	return s.repo.List(ctx, owner)
}

// Update replaces a quote's content and re-prices it from the current
// catalog. Identity, ownership and creation time are preserved; any
// previously generated PDF stays until the next generation overwrites it.
func (s *Service) Update(ctx context.Context, actor Actor, id string, req QuoteRequest) (*Quote, error) {
	existing, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.ValidateID(req.TemplateID); err != nil {
		return nil, err
	}
	if _, err := s.resolver.Resolve(req.TemplateID); err != nil {
		return nil, err
	}

	snapshot, err := s.catalogSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	financials, err := ComputePricing(req.lineItemRequests(), snapshot, req.discountSpec(), req.paymentPlan())
	if err != nil {
		return nil, err
	}

	applyRequest(existing, req, financials)
	now := time.Now().UTC()
	existing.UpdatedAt = &now

	if err := s.repo.Update(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes a quote and its generated PDF, if any. A failed PDF
// removal is logged but does not undo the deletion.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.pdfs.Delete(id); err != nil {
		s.logger.Warn("quote pdf cleanup failed", slog.String("quote_id", id), slog.Any("error", err))
	}
	return nil
}

// MarkGenerated records a successful PDF generation. Callers treat a
// failure here as non-fatal: the PDF already exists on disk.
func (s *Service) MarkGenerated(ctx context.Context, id, pdfLocation string) error {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	q.Status = StatusGenerated
	q.PDFLocation = pdfLocation
	q.GeneratedAt = &now
	q.UpdatedAt = &now
	return s.repo.Update(ctx, *q)
}

func (s *Service) catalogSnapshot(ctx context.Context) (map[string]catalog.Product, error) {
	products, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		snapshot[p.ID] = p
	}
	return snapshot, nil
}

func authorize(actor Actor, q *Quote) error {
	if actor.Admin || q.OwnerUserID == actor.UserID {
		return nil
	}
	return ErrAccessDenied
}

// applyRequest copies the request content and the priced financials onto
// the quote, leaving identity and lifecycle fields alone.
func applyRequest(q *Quote, req QuoteRequest, fin *Financials) {
	q.ClientName = req.ClientName
	q.ClientAddress = req.ClientAddress
	q.ClientPhone = req.ClientPhone
	q.ClientEmail = req.ClientEmail
	q.ClientDocument = req.ClientDocument
	q.ClientPostalCode = req.ClientPostalCode
	q.TemplateID = req.TemplateID
	q.Notes = req.Notes
	q.Items = fin.Items
	q.GrossTotal = fin.GrossTotal
	q.Discount = req.discountSpec()
	q.DiscountAmount = fin.DiscountAmount
	q.NetTotal = fin.NetTotal
	q.PaymentPlan = req.paymentPlan()
	q.TotalWithInterest = fin.TotalWithInterest
	q.InstallmentAmount = fin.InstallmentAmount
	if q.PaymentPlan.Type == PaymentInstallment {
		q.PaymentPlan.Installments = fin.Installments
	}
}
