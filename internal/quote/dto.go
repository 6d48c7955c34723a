package quote

// LineItemInput selects a product for a quote. Quantity is optional: an
// absent field defaults to one unit, while an explicit non-positive value
// is rejected at pricing time.
type LineItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  *int   `json:"quantity"`
}

// DiscountInput is the wire form of a discount.
type DiscountInput struct {
	Type  string  `json:"type" validate:"omitempty,oneof=none percentage fixed"`
	Value float64 `json:"value"`
}

// PaymentPlanInput is the wire form of a payment plan.
type PaymentPlanInput struct {
	Type                   string  `json:"type" validate:"omitempty,oneof=cash installment"`
	CashMethod             string  `json:"cash_method" validate:"omitempty,oneof=money card pix transfer"`
	Installments           int     `json:"installments"`
	MonthlyInterestPercent float64 `json:"monthly_interest_percent"`
}

// QuoteRequest carries everything needed to create or fully replace a
// quote. Updates re-price from the current catalog.
type QuoteRequest struct {
	ClientName       string            `json:"client_name" validate:"required,max=200"`
	ClientAddress    string            `json:"client_address" validate:"max=300"`
	ClientPhone      string            `json:"client_phone" validate:"max=40"`
	ClientEmail      string            `json:"client_email" validate:"omitempty,email"`
	ClientDocument   string            `json:"client_document" validate:"max=40"`
	ClientPostalCode string            `json:"client_postal_code" validate:"max=20"`
	TemplateID       string            `json:"template_id" validate:"required"`
	Items            []LineItemInput   `json:"items" validate:"required,min=1,dive"`
	Discount         *DiscountInput    `json:"discount"`
	PaymentPlan      *PaymentPlanInput `json:"payment_plan"`
	Notes            string            `json:"notes" validate:"max=2000"`
}

// lineItemRequests converts the wire items, defaulting absent quantities
// to a single unit.
func (r QuoteRequest) lineItemRequests() []LineItemRequest {
	out := make([]LineItemRequest, 0, len(r.Items))
	for _, item := range r.Items {
		quantity := 1
		if item.Quantity != nil {
			quantity = *item.Quantity
		}
		out = append(out, LineItemRequest{ProductID: item.ProductID, Quantity: quantity})
	}
	return out
}

// discountSpec converts the wire discount; an absent discount means none.
func (r QuoteRequest) discountSpec() DiscountSpec {
	if r.Discount == nil {
		return DiscountSpec{Type: DiscountNone}
	}
	spec := DiscountSpec{Type: DiscountType(r.Discount.Type), Value: r.Discount.Value}
	if spec.Type == "" {
		spec.Type = DiscountNone
	}
	return spec
}

// paymentPlan converts the wire plan; an absent plan means cash settled
// in money.
func (r QuoteRequest) paymentPlan() PaymentPlan {
	if r.PaymentPlan == nil {
		return PaymentPlan{Type: PaymentCash, CashMethod: CashMoney}
	}
	plan := PaymentPlan{
		Type:                   PaymentPlanType(r.PaymentPlan.Type),
		CashMethod:             CashMethod(r.PaymentPlan.CashMethod),
		Installments:           r.PaymentPlan.Installments,
		MonthlyInterestPercent: r.PaymentPlan.MonthlyInterestPercent,
	}
	if plan.Type == "" {
		plan.Type = PaymentCash
	}
	if plan.Type == PaymentCash {
		plan.Installments = 0
		plan.MonthlyInterestPercent = 0
		if plan.CashMethod == "" {
			plan.CashMethod = CashMoney
		}
	} else {
		plan.CashMethod = ""
	}
	return plan
}
