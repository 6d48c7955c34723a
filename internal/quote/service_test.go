package quote

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orcaflow/orcaflow/internal/catalog"
	"github.com/orcaflow/orcaflow/internal/doctemplate"
	"github.com/orcaflow/orcaflow/internal/pdf"
	"github.com/orcaflow/orcaflow/internal/platform/httpx"
)

type serviceFixture struct {
	service *Service
	catalog *catalog.Service
	repo    Repository
	pdfs    *pdf.Store
	chairID string
	tableID string
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	dataDir := t.TempDir()

	catalogRepo, err := catalog.NewRepository(dataDir)
	require.NoError(t, err)
	catalogService := catalog.NewService(catalogRepo)

	quoteRepo, err := NewRepository(dataDir)
	require.NoError(t, err)

	resolver, err := doctemplate.NewResolver(t.TempDir())
	require.NoError(t, err)

	pdfs, err := pdf.NewStore(t.TempDir())
	require.NoError(t, err)

	fix := &serviceFixture{
		service: NewService(logger, quoteRepo, catalogService, resolver, pdfs),
		catalog: catalogService,
		repo:    quoteRepo,
		pdfs:    pdfs,
	}
	fix.chairID = fix.addProduct(t, "Cadeira", 150.00)
	fix.tableID = fix.addProduct(t, "Mesa", 420.50)
	return fix
}

func (f *serviceFixture) addProduct(t *testing.T, name string, price float64) string {
	t.Helper()
	product, err := f.catalog.Create(context.Background(), catalog.ProductInput{Name: &name, UnitPrice: &price})
	require.NoError(t, err)
	return product.ID
}

func validRequest(f *serviceFixture) QuoteRequest {
	qty := 2
	return QuoteRequest{
		ClientName: "Maria Silva",
		TemplateID: "orcamento1.html",
		Items:      []LineItemInput{{ProductID: f.chairID, Quantity: &qty}},
		Discount:   &DiscountInput{Type: "percentage", Value: 10},
		PaymentPlan: &PaymentPlanInput{
			Type:       "cash",
			CashMethod: "pix",
		},
	}
}

func TestServiceCreateQuote(t *testing.T) {
	fix := newServiceFixture(t)
	actor := Actor{UserID: "user-1"}

	q, err := fix.service.Create(context.Background(), actor, validRequest(fix))
	require.NoError(t, err)

	assert.NotEmpty(t, q.ID)
	assert.Equal(t, "user-1", q.OwnerUserID)
	assert.Equal(t, StatusPending, q.Status)
	assert.Equal(t, 300.00, q.GrossTotal)
	assert.Equal(t, 30.00, q.DiscountAmount)
	assert.Equal(t, 270.00, q.NetTotal)
	assert.Equal(t, 270.00, q.TotalWithInterest)
	assert.Equal(t, CashPix, q.PaymentPlan.CashMethod)
	assert.False(t, q.CreatedAt.IsZero())

	stored, err := fix.repo.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.NetTotal, stored.NetTotal)
}

func TestServiceCreateDefaultsQuantityToOne(t *testing.T) {
	fix := newServiceFixture(t)

	req := validRequest(fix)
	req.Items = []LineItemInput{{ProductID: fix.chairID}}
	q, err := fix.service.Create(context.Background(), Actor{UserID: "u"}, req)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Items[0].Quantity)
	assert.Equal(t, 150.00, q.GrossTotal)
}

func TestServiceCreateRejectsZeroQuantity(t *testing.T) {
	fix := newServiceFixture(t)

	zero := 0
	req := validRequest(fix)
	req.Items = []LineItemInput{{ProductID: fix.chairID, Quantity: &zero}}
	_, err := fix.service.Create(context.Background(), Actor{UserID: "u"}, req)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestServiceCreateRejectsUnknownTemplate(t *testing.T) {
	fix := newServiceFixture(t)

	req := validRequest(fix)
	req.TemplateID = "missing.html"
	_, err := fix.service.Create(context.Background(), Actor{UserID: "u"}, req)
	assert.ErrorIs(t, err, doctemplate.ErrTemplateNotFound)

	req.TemplateID = "../../etc/passwd.html"
	_, err = fix.service.Create(context.Background(), Actor{UserID: "u"}, req)
	assert.ErrorIs(t, err, doctemplate.ErrInvalidTemplateID)
}

func TestServiceCreateRejectsUnknownProduct(t *testing.T) {
	fix := newServiceFixture(t)

	req := validRequest(fix)
	req.Items = []LineItemInput{{ProductID: "ghost"}}
	_, err := fix.service.Create(context.Background(), Actor{UserID: "u"}, req)
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func TestServiceSnapshotSurvivesCatalogEdits(t *testing.T) {
	fix := newServiceFixture(t)
	ctx := context.Background()

	q, err := fix.service.Create(ctx, Actor{UserID: "u"}, validRequest(fix))
	require.NoError(t, err)
	require.Equal(t, 150.00, q.Items[0].UnitPrice)

	newPrice := 999.00
	_, err = fix.catalog.Update(ctx, fix.chairID, catalog.ProductInput{UnitPrice: &newPrice})
	require.NoError(t, err)

	stored, err := fix.service.Get(ctx, Actor{UserID: "u"}, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 150.00, stored.Items[0].UnitPrice)
	assert.Equal(t, 300.00, stored.GrossTotal)
}

func TestServiceOwnershipEnforcement(t *testing.T) {
	fix := newServiceFixture(t)
	ctx := context.Background()

	q, err := fix.service.Create(ctx, Actor{UserID: "owner"}, validRequest(fix))
	require.NoError(t, err)

	_, err = fix.service.Get(ctx, Actor{UserID: "intruder"}, q.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	got, err := fix.service.Get(ctx, Actor{UserID: "someone", Admin: true}, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, got.ID)

	err = fix.service.Delete(ctx, Actor{UserID: "intruder"}, q.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestServiceListScopedByOwner(t *testing.T) {
	fix := newServiceFixture(t)
	ctx := context.Background()

	_, err := fix.service.Create(ctx, Actor{UserID: "alice"}, validRequest(fix))
	require.NoError(t, err)
	_, err = fix.service.Create(ctx, Actor{UserID: "bob"}, validRequest(fix))
	require.NoError(t, err)

	mine, err := fix.service.List(ctx, Actor{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "alice", mine[0].OwnerUserID)

	all, err := fix.service.List(ctx, Actor{UserID: "root", Admin: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestServiceUpdateReprices(t *testing.T) {
	fix := newServiceFixture(t)
	ctx := context.Background()
	actor := Actor{UserID: "u"}

	q, err := fix.service.Create(ctx, actor, validRequest(fix))
	require.NoError(t, err)

	qty := 3
	req := validRequest(fix)
	req.ClientName = "Maria Souza"
	req.Items = []LineItemInput{{ProductID: fix.tableID, Quantity: &qty}}
	req.Discount = nil
	req.PaymentPlan = &PaymentPlanInput{Type: "installment", Installments: 3, MonthlyInterestPercent: 2}

	updated, err := fix.service.Update(ctx, actor, q.ID, req)
	require.NoError(t, err)

	assert.Equal(t, q.ID, updated.ID)
	assert.Equal(t, q.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Maria Souza", updated.ClientName)
	assert.Equal(t, 1261.50, updated.GrossTotal)
	assert.Equal(t, 0.0, updated.DiscountAmount)
	assert.InDelta(t, 1261.50*1.06, updated.TotalWithInterest, 1e-9)
	assert.Equal(t, 3, updated.PaymentPlan.Installments)
	require.NotNil(t, updated.UpdatedAt)
}

func TestServiceUpdateMissingQuote(t *testing.T) {
	fix := newServiceFixture(t)

	_, err := fix.service.Update(context.Background(), Actor{UserID: "u"}, "nope", validRequest(fix))
	assert.ErrorIs(t, err, ErrQuoteNotFound)
}

func TestServiceDeleteRemovesQuoteAndPDF(t *testing.T) {
	fix := newServiceFixture(t)
	ctx := context.Background()
	actor := Actor{UserID: "u"}

	q, err := fix.service.Create(ctx, actor, validRequest(fix))
	require.NoError(t, err)

	_, err = fix.pdfs.Write(q.ID, []byte("%PDF"))
	require.NoError(t, err)

	require.NoError(t, fix.service.Delete(ctx, actor, q.ID))

	_, err = fix.repo.Get(ctx, q.ID)
	assert.ErrorIs(t, err, ErrQuoteNotFound)
	_, err = fix.pdfs.Read(q.ID)
	assert.Error(t, err)
}

func TestServiceMarkGenerated(t *testing.T) {
	fix := newServiceFixture(t)
	ctx := context.Background()

	q, err := fix.service.Create(ctx, Actor{UserID: "u"}, validRequest(fix))
	require.NoError(t, err)

	require.NoError(t, fix.service.MarkGenerated(ctx, q.ID, "/pdfs/orcamento_x.pdf"))

	stored, err := fix.repo.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusGenerated, stored.Status)
	assert.Equal(t, "/pdfs/orcamento_x.pdf", stored.PDFLocation)
	require.NotNil(t, stored.GeneratedAt)
}
