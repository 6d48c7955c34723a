package quote

import (
	"fmt"
	"time"

	"github.com/orcaflow/orcaflow/internal/platform/httpx"
)

// Status tracks whether a quote has had its PDF generated at least once.
type Status string

const (
	StatusPending   Status = "pending"
	StatusGenerated Status = "generated"
)

// DiscountType is the closed set of discount variants.
type DiscountType string

const (
	DiscountNone       DiscountType = "none"
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// DiscountSpec is a tagged variant: Value is the percentage for
// DiscountPercentage and the absolute amount for DiscountFixed.
type DiscountSpec struct {
	Type  DiscountType `json:"type"`
	Value float64      `json:"value,omitempty"`
}

// PaymentPlanType is the closed set of payment plan variants.
type PaymentPlanType string

const (
	PaymentCash        PaymentPlanType = "cash"
	PaymentInstallment PaymentPlanType = "installment"
)

// CashMethod enumerates how a cash payment is settled.
type CashMethod string

const (
	CashMoney    CashMethod = "money"
	CashCard     CashMethod = "card"
	CashPix      CashMethod = "pix"
	CashTransfer CashMethod = "transfer"
)

// PaymentPlan is a tagged variant. Installment fields are meaningful only
// when Type is PaymentInstallment; CashMethod only for PaymentCash.
type PaymentPlan struct {
	Type                   PaymentPlanType `json:"type"`
	CashMethod             CashMethod      `json:"cash_method,omitempty"`
	Installments           int             `json:"installments,omitempty"`
	MonthlyInterestPercent float64         `json:"monthly_interest_percent,omitempty"`
}

// LineItem is a product snapshot embedded in a quote. Unit price, name,
// description and photo are copied from the catalog at pricing time and
// never follow later catalog edits.
type LineItem struct {
	ProductID   string  `json:"product_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	LineTotal   float64 `json:"line_total"`
	Photo       string  `json:"photo,omitempty"`
}

// Quote is a priced, client-addressed proposal document.
type Quote struct {
	ID                string       `json:"id"`
	OwnerUserID       string       `json:"owner_user_id"`
	ClientName        string       `json:"client_name"`
	ClientAddress     string       `json:"client_address,omitempty"`
	ClientPhone       string       `json:"client_phone,omitempty"`
	ClientEmail       string       `json:"client_email,omitempty"`
	ClientDocument    string       `json:"client_document,omitempty"`
	ClientPostalCode  string       `json:"client_postal_code,omitempty"`
	TemplateID        string       `json:"template_id"`
	Items             []LineItem   `json:"items"`
	GrossTotal        float64      `json:"gross_total"`
	Discount          DiscountSpec `json:"discount"`
	DiscountAmount    float64      `json:"discount_amount"`
	NetTotal          float64      `json:"net_total"`
	PaymentPlan       PaymentPlan  `json:"payment_plan"`
	TotalWithInterest float64      `json:"total_with_interest"`
	InstallmentAmount float64      `json:"installment_amount"`
	Notes             string       `json:"notes,omitempty"`
	Status            Status       `json:"status"`
	PDFLocation       string       `json:"pdf_location,omitempty"`
	GeneratedAt       *time.Time   `json:"generated_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         *time.Time   `json:"updated_at,omitempty"`
}

// Sentinel errors for the quote domain. Each wraps an httpx category so the
// HTTP layer maps it without losing which stage failed.
var (
	ErrUnknownProduct          = fmt.Errorf("%w: pricing: unknown product", httpx.ErrValidation)
	ErrInvalidQuantity         = fmt.Errorf("%w: pricing: quantity must be a positive integer", httpx.ErrValidation)
	ErrInvalidInstallmentCount = fmt.Errorf("%w: pricing: installment count must be at least 1", httpx.ErrValidation)
	ErrQuoteNotFound           = fmt.Errorf("%w: quote", httpx.ErrNotFound)
	ErrAccessDenied            = fmt.Errorf("%w: quote belongs to another user", httpx.ErrForbidden)
)
