package render

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orcaflow/orcaflow/internal/doctemplate"
)

func testQuote() Quote {
	return Quote{
		ID:         "Ab3dE",
		ClientName: "Maria Silva",
		Items: []LineItem{
			{
				Name:      "Cadeira",
				UnitPrice: 150,
				Quantity:  2,
				LineTotal: 300,
				Photo:     "data:image/png;base64,iVBORw0KGgo=",
			},
		},
		GrossTotal:        300,
		DiscountAmount:    30,
		NetTotal:          270,
		PaymentPlan:       PaymentPlan{CashMethod: "money"},
		TotalWithInterest: 270,
		InstallmentAmount: 270,
		CreatedAt:         time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRenderDefaultTemplate(t *testing.T) {
	resolver, err := doctemplate.NewResolver(t.TempDir())
	require.NoError(t, err)
	tmpl, err := resolver.Resolve("orcamento1.html")
	require.NoError(t, err)

	r := NewRenderer(discardLogger(), "")
	html, err := r.Render(testQuote(), tmpl, "João Vendedor")
	require.NoError(t, err)

	assert.Contains(t, html, "Maria Silva")
	assert.Contains(t, html, "João Vendedor")
	assert.Contains(t, html, "Cadeira")
	assert.Contains(t, html, "R$ 300,00")
	assert.Contains(t, html, "R$ 270,00")
	assert.Contains(t, html, "01/02/2026")
	// Validity is creation + 30 days.
	assert.Contains(t, html, "03/03/2026")
	// Product photos must survive as inline data URIs.
	assert.Contains(t, html, "data:image/png;base64,iVBORw0KGgo=")
}

func TestRenderEmbedsLogo(t *testing.T) {
	logoPath := filepath.Join(t.TempDir(), "logo.png")
	// Minimal PNG header so mimetype detection sees an image.
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	require.NoError(t, os.WriteFile(logoPath, png, 0o644))

	r := NewRenderer(discardLogger(), logoPath)
	tmpl := &doctemplate.Template{ID: "t.html", Content: []byte(`<img src="{{.LogoDataURI}}">`)}
	html, err := r.Render(testQuote(), tmpl, "")
	require.NoError(t, err)
	assert.Contains(t, html, "data:image/png;base64,")
}

func TestRenderMissingLogoIsNotFatal(t *testing.T) {
	r := NewRenderer(discardLogger(), filepath.Join(t.TempDir(), "nope.jpeg"))
	tmpl := &doctemplate.Template{ID: "t.html", Content: []byte(`<p>{{.Quote.ClientName}}</p>`)}
	html, err := r.Render(testQuote(), tmpl, "")
	require.NoError(t, err)
	assert.Contains(t, html, "Maria Silva")
}

func TestRenderInvalidTemplateSyntax(t *testing.T) {
	r := NewRenderer(discardLogger(), "")
	tmpl := &doctemplate.Template{ID: "broken.html", Content: []byte(`{{.Quote.ClientName`)}
	_, err := r.Render(testQuote(), tmpl, "")
	require.ErrorIs(t, err, ErrTemplateRender)
}

func TestRenderUndefinedFieldAborts(t *testing.T) {
	r := NewRenderer(discardLogger(), "")
	tmpl := &doctemplate.Template{ID: "bad.html", Content: []byte(`{{.NoSuchField}}`)}
	_, err := r.Render(testQuote(), tmpl, "")
	require.ErrorIs(t, err, ErrTemplateRender)
}

func TestRenderInstallmentBlock(t *testing.T) {
	resolver, err := doctemplate.NewResolver(t.TempDir())
	require.NoError(t, err)
	tmpl, err := resolver.Resolve("orcamento1.html")
	require.NoError(t, err)

	q := testQuote()
	q.PaymentPlan = PaymentPlan{Installment: true, Installments: 3, MonthlyInterestPercent: 5}
	q.TotalWithInterest = 310.5
	q.InstallmentAmount = 103.5

	r := NewRenderer(discardLogger(), "")
	html, err := r.Render(q, tmpl, "")
	require.NoError(t, err)
	assert.Contains(t, html, "3x de R$ 103,50")
	assert.Contains(t, html, "R$ 310,50")
}
