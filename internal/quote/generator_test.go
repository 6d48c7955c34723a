package quote

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orcaflow/orcaflow/internal/doctemplate"
	"github.com/orcaflow/orcaflow/internal/pdf"
	"github.com/orcaflow/orcaflow/internal/platform/httpx"
	"github.com/orcaflow/orcaflow/internal/render"
	"github.com/orcaflow/orcaflow/internal/users"
)

type generatorFixture struct {
	*serviceFixture
	generator *Generator
	converts  *atomic.Int64
}

func newGeneratorFixture(t *testing.T, convert http.HandlerFunc) *generatorFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	serviceFix := newServiceFixture(t)

	var converts atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/forms/chromium/convert/html", func(w http.ResponseWriter, r *http.Request) {
		converts.Add(1)
		convert(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	resolver, err := doctemplate.NewResolver(t.TempDir())
	require.NoError(t, err)

	userRepo, err := users.NewRepository(t.TempDir())
	require.NoError(t, err)
	userService := users.NewService(userRepo)

	engine := pdf.NewEngine(srv.URL, 2*time.Second, logger)
	t.Cleanup(func() { engine.Shutdown(context.Background()) })

	generator := NewGenerator(logger, serviceFix.service, resolver,
		render.NewRenderer(logger, ""), engine, serviceFix.pdfs, userService, nil)

	return &generatorFixture{
		serviceFixture: serviceFix,
		generator:      generator,
		converts:       &converts,
	}
}

func echoConvert(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("%PDF-1.4 generated"))
}

func TestGeneratorProducesPDFAndMarksGenerated(t *testing.T) {
	fix := newGeneratorFixture(t, echoConvert)
	ctx := context.Background()
	actor := Actor{UserID: "owner"}

	q, err := fix.service.Create(ctx, actor, validRequest(fix.serviceFixture))
	require.NoError(t, err)
	require.Equal(t, StatusPending, q.Status)

	pdfBytes, filename, err := fix.generator.GeneratePDF(ctx, actor, q.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 generated"), pdfBytes)
	assert.Equal(t, "orcamento_"+q.ID+".pdf", filename)

	onDisk, err := fix.pdfs.Read(q.ID)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, onDisk)

	stored, err := fix.repo.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusGenerated, stored.Status)
	assert.Equal(t, fix.pdfs.Path(q.ID), stored.PDFLocation)
	require.NotNil(t, stored.GeneratedAt)
}

func TestGeneratorRegenerationIsIdempotent(t *testing.T) {
	fix := newGeneratorFixture(t, echoConvert)
	ctx := context.Background()
	actor := Actor{UserID: "owner"}

	q, err := fix.service.Create(ctx, actor, validRequest(fix.serviceFixture))
	require.NoError(t, err)

	first, _, err := fix.generator.GeneratePDF(ctx, actor, q.ID)
	require.NoError(t, err)
	second, _, err := fix.generator.GeneratePDF(ctx, actor, q.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := fix.repo.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusGenerated, stored.Status)
}

func TestGeneratorCoalescesConcurrentRequests(t *testing.T) {
	release := make(chan struct{})
	fix := newGeneratorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte("%PDF shared"))
	})
	ctx := context.Background()
	actor := Actor{UserID: "owner"}

	q, err := fix.service.Create(ctx, actor, validRequest(fix.serviceFixture))
	require.NoError(t, err)

	const callers = 5
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _, errs[i] = fix.generator.GeneratePDF(ctx, actor, q.ID)
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte("%PDF shared"), results[i])
	}
	assert.Equal(t, int64(1), fix.converts.Load())
}

func TestGeneratorOwnership(t *testing.T) {
	fix := newGeneratorFixture(t, echoConvert)
	ctx := context.Background()

	q, err := fix.service.Create(ctx, Actor{UserID: "owner"}, validRequest(fix.serviceFixture))
	require.NoError(t, err)

	_, _, err = fix.generator.GeneratePDF(ctx, Actor{UserID: "intruder"}, q.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, int64(0), fix.converts.Load())

	_, _, err = fix.generator.GeneratePDF(ctx, Actor{UserID: "root", Admin: true}, q.ID)
	require.NoError(t, err)
}

func TestGeneratorEngineFailureKeepsQuotePending(t *testing.T) {
	fix := newGeneratorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusInternalServerError)
	})
	ctx := context.Background()
	actor := Actor{UserID: "owner"}

	q, err := fix.service.Create(ctx, actor, validRequest(fix.serviceFixture))
	require.NoError(t, err)

	_, _, err = fix.generator.GeneratePDF(ctx, actor, q.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrUpstream)

	stored, err := fix.repo.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Empty(t, stored.PDFLocation)
}

func TestGeneratorMissingQuote(t *testing.T) {
	fix := newGeneratorFixture(t, echoConvert)

	_, _, err := fix.generator.GeneratePDF(context.Background(), Actor{UserID: "u"}, "nope")
	assert.ErrorIs(t, err, ErrQuoteNotFound)
}

func TestGeneratorHTMLPreview(t *testing.T) {
	fix := newGeneratorFixture(t, echoConvert)
	ctx := context.Background()
	actor := Actor{UserID: "owner"}

	q, err := fix.service.Create(ctx, actor, validRequest(fix.serviceFixture))
	require.NoError(t, err)

	htmlContent, err := fix.generator.HTML(ctx, actor, q.ID)
	require.NoError(t, err)
	assert.True(t, strings.Contains(htmlContent, "Maria Silva"))
	assert.True(t, strings.Contains(htmlContent, "R$ 300,00"))
	assert.True(t, strings.Contains(htmlContent, "R$ 270,00"))
	assert.Equal(t, int64(0), fix.converts.Load())
}

func TestGeneratorSurvivesWinnerDisconnect(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fix := newGeneratorFixture(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		_, _ = w.Write([]byte("%PDF detached"))
	})
	actor := Actor{UserID: "owner"}

	q, err := fix.service.Create(context.Background(), actor, validRequest(fix.serviceFixture))
	require.NoError(t, err)

	reqCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var pdfBytes []byte
	var genErr error
	go func() {
		defer close(done)
		pdfBytes, _, genErr = fix.generator.GeneratePDF(reqCtx, actor, q.ID)
	}()

	// The requester disconnects while the conversion is in flight. The
	// shared flight must still run to completion.
	<-started
	cancel()
	close(release)
	<-done

	require.NoError(t, genErr)
	assert.Equal(t, []byte("%PDF detached"), pdfBytes)

	stored, err := fix.repo.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusGenerated, stored.Status)
}

func TestDocumentQuoteMapping(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	q := &Quote{
		ID:             "Ab3dE",
		OwnerUserID:    "owner",
		ClientName:     "Maria Silva",
		ClientDocument: "123.456.789-00",
		ClientAddress:  "Rua das Flores 10",
		ClientPhone:    "+55 11 99999-0000",
		Notes:          "entrega em 15 dias",
		TemplateID:     "orcamento1.html",
		Items: []LineItem{
			{ProductID: "p1", Name: "Cadeira", Quantity: 2, UnitPrice: 150, LineTotal: 300, Photo: "data:image/png;base64,AA=="},
		},
		GrossTotal:        300,
		DiscountAmount:    30,
		NetTotal:          270,
		PaymentPlan:       PaymentPlan{Type: PaymentInstallment, Installments: 3, MonthlyInterestPercent: 2},
		TotalWithInterest: 286.2,
		InstallmentAmount: 95.4,
		Status:            StatusPending,
		CreatedAt:         now,
	}

	view := documentQuote(q)

	assert.Equal(t, "Ab3dE", view.ID)
	assert.Equal(t, "Maria Silva", view.ClientName)
	assert.Equal(t, "123.456.789-00", view.ClientDocument)
	assert.Equal(t, "entrega em 15 dias", view.Notes)
	assert.Equal(t, now, view.CreatedAt)
	require.Len(t, view.Items, 1)
	assert.Equal(t, render.LineItem{
		Name:      "Cadeira",
		Quantity:  2,
		UnitPrice: 150,
		LineTotal: 300,
		Photo:     "data:image/png;base64,AA==",
	}, view.Items[0])
	assert.True(t, view.PaymentPlan.Installment)
	assert.Equal(t, 3, view.PaymentPlan.Installments)
	assert.Equal(t, 2.0, view.PaymentPlan.MonthlyInterestPercent)
	assert.Equal(t, 286.2, view.TotalWithInterest)

	q.PaymentPlan = PaymentPlan{Type: PaymentCash, CashMethod: CashPix}
	view = documentQuote(q)
	assert.False(t, view.PaymentPlan.Installment)
	assert.Equal(t, "pix", view.PaymentPlan.CashMethod)
}
