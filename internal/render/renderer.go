// Package render merges a resolved quote with a document template into
// self-contained HTML: the logo and product photos are embedded as data
// URIs so the PDF conversion step needs no network access.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/orcaflow/orcaflow/internal/doctemplate"
	"github.com/orcaflow/orcaflow/internal/platform/httpx"
)

// ErrTemplateRender marks a template that failed to parse or execute.
// Generation aborts; no partial HTML is ever returned.
var ErrTemplateRender = fmt.Errorf("%w: template render", httpx.ErrUnprocessable)

// LineItem is a priced product snapshot as the templates see it.
type LineItem struct {
	Name        string
	Description string
	Quantity    int
	UnitPrice   float64
	LineTotal   float64
	Photo       string
}

// PaymentPlan carries the payment terms a template may print.
// Installment selects between the cash and installment blocks.
type PaymentPlan struct {
	Installment            bool
	CashMethod             string
	Installments           int
	MonthlyInterestPercent float64
}

// Quote is the render-side view of a priced proposal. Callers map their
// domain model into it, so templates never bind to storage types.
type Quote struct {
	ID               string
	ClientName       string
	ClientDocument   string
	ClientAddress    string
	ClientPostalCode string
	ClientPhone      string
	ClientEmail      string
	Notes            string
	CreatedAt        time.Time

	Items       []LineItem
	PaymentPlan PaymentPlan

	GrossTotal        float64
	DiscountAmount    float64
	NetTotal          float64
	TotalWithInterest float64
	InstallmentAmount float64
}

// ItemView is a line item with presentation-ready formatted fields.
type ItemView struct {
	Name         string
	Description  string
	Quantity     int
	UnitPrice    string
	LineTotal    string
	PhotoDataURI template.URL
}

// Document is the substitution context handed to templates. Formatted
// fields are derived at render time, never persisted, so formatting rule
// changes apply retroactively to historical quotes.
type Document struct {
	Quote             Quote
	Items             []ItemView
	OwnerName         string
	LogoDataURI       template.URL
	CreatedAt         string
	ValidUntil        string
	GrossTotal        string
	DiscountAmount    string
	NetTotal          string
	TotalWithInterest string
	InstallmentAmount string
	HasDiscount       bool
	IsInstallment     bool
}

// Renderer builds HTML documents from quotes and templates.
type Renderer struct {
	logger *slog.Logger
	logo   template.URL
	funcs  template.FuncMap
}

// NewRenderer loads the company logo once at startup. A missing logo is a
// warning, not a failure: documents render without it.
func NewRenderer(logger *slog.Logger, logoPath string) *Renderer {
	r := &Renderer{
		logger: logger,
		funcs: template.FuncMap{
			"formatMoney": Money,
			"formatDate":  Date,
		},
	}
	if logoPath == "" {
		return r
	}
	raw, err := os.ReadFile(logoPath)
	if err != nil {
		logger.Warn("logo not loaded", slog.String("path", logoPath), slog.Any("error", err))
		return r
	}
	mtype := mimetype.Detect(raw)
	if !strings.HasPrefix(mtype.String(), "image/") {
		logger.Warn("logo is not an image", slog.String("path", logoPath), slog.String("type", mtype.String()))
		return r
	}
	r.logo = template.URL("data:" + mtype.String() + ";base64," + base64.StdEncoding.EncodeToString(raw))
	return r
}

// Render executes the template over the quote view. It is synchronous and
// side-effect free; any parse or execution failure aborts with
// ErrTemplateRender wrapping the cause.
func (r *Renderer) Render(q Quote, tmpl *doctemplate.Template, ownerName string) (string, error) {
	parsed, err := template.New(tmpl.ID).
		Funcs(r.funcs).
		Option("missingkey=error").
		Parse(string(tmpl.Content))
	if err != nil {
		return "", fmt.Errorf("%w (%s): %v", ErrTemplateRender, tmpl.ID, err)
	}

	doc := r.buildDocument(q, ownerName)

	var buf bytes.Buffer
	if err := parsed.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("%w (%s): %v", ErrTemplateRender, tmpl.ID, err)
	}
	return buf.String(), nil
}

func (r *Renderer) buildDocument(q Quote, ownerName string) Document {
	items := make([]ItemView, 0, len(q.Items))
	for _, item := range q.Items {
		view := ItemView{
			Name:        item.Name,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   Money(item.UnitPrice),
			LineTotal:   Money(item.LineTotal),
		}
		if strings.HasPrefix(item.Photo, "data:image/") {
			view.PhotoDataURI = template.URL(item.Photo)
		}
		items = append(items, view)
	}

	return Document{
		Quote:             q,
		Items:             items,
		OwnerName:         ownerName,
		LogoDataURI:       r.logo,
		CreatedAt:         Date(q.CreatedAt),
		ValidUntil:        Date(ValidUntil(q.CreatedAt)),
		GrossTotal:        Money(q.GrossTotal),
		DiscountAmount:    Money(q.DiscountAmount),
		NetTotal:          Money(q.NetTotal),
		TotalWithInterest: Money(q.TotalWithInterest),
		InstallmentAmount: Money(q.InstallmentAmount),
		HasDiscount:       q.DiscountAmount > 0,
		IsInstallment:     q.PaymentPlan.Installment,
	}
}
