package quote

import (
	"fmt"

	"github.com/orcaflow/orcaflow/internal/catalog"
)

// LineItemRequest selects a catalog product and a quantity for pricing.
type LineItemRequest struct {
	ProductID string
	Quantity  int
}

// Financials is the fully resolved monetary outcome of pricing a quote.
// All values are unrounded; rounding happens at presentation time only.
type Financials struct {
	Items             []LineItem
	GrossTotal        float64
	DiscountAmount    float64
	NetTotal          float64
	TotalWithInterest float64
	InstallmentAmount float64
	// Installments is the effective number of payments: 1 for cash plans.
	Installments int
}

// ComputePricing resolves the requested line items against the catalog
// snapshot and produces every monetary field of a quote. It is a pure
// function: prices always come from the snapshot, never from the request,
// and any unknown product or invalid quantity aborts the whole computation.
func ComputePricing(requests []LineItemRequest, snapshot map[string]catalog.Product, discount DiscountSpec, plan PaymentPlan) (*Financials, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w (no line items)", ErrInvalidQuantity)
	}

	items := make([]LineItem, 0, len(requests))
	var gross float64
	for _, req := range requests {
		product, ok := snapshot[req.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownProduct, req.ProductID)
		}
		if req.Quantity <= 0 {
			return nil, fmt.Errorf("%w (product %q)", ErrInvalidQuantity, req.ProductID)
		}

		lineTotal := product.UnitPrice * float64(req.Quantity)
		items = append(items, LineItem{
			ProductID:   product.ID,
			Name:        product.Name,
			Description: product.Description,
			UnitPrice:   product.UnitPrice,
			Quantity:    req.Quantity,
			LineTotal:   lineTotal,
			Photo:       product.Photo,
		})
		gross += lineTotal
	}

	discountAmount := resolveDiscount(discount, gross)
	net := gross - discountAmount

	totalWithInterest, installmentAmount, installments, err := resolvePlan(plan, net)
	if err != nil {
		return nil, err
	}

	return &Financials{
		Items:             items,
		GrossTotal:        gross,
		DiscountAmount:    discountAmount,
		NetTotal:          net,
		TotalWithInterest: totalWithInterest,
		InstallmentAmount: installmentAmount,
		Installments:      installments,
	}, nil
}

// resolveDiscount computes the effective discount, clamped to [0, gross].
// Negative inputs count as zero so a discount can never raise the total.
func resolveDiscount(spec DiscountSpec, gross float64) float64 {
	value := spec.Value
	if value < 0 {
		value = 0
	}

	var amount float64
	switch spec.Type {
	case DiscountPercentage:
		amount = gross * value / 100
	case DiscountFixed:
		amount = value
	default:
		return 0
	}

	if amount > gross {
		amount = gross
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

// resolvePlan applies the payment plan to the net total. Installment plans
// use simple interest applied once: net * (1 + rate/100 * count).
func resolvePlan(plan PaymentPlan, net float64) (totalWithInterest, installmentAmount float64, installments int, err error) {
	switch plan.Type {
	case PaymentInstallment:
		if plan.Installments < 1 {
			return 0, 0, 0, fmt.Errorf("%w (got %d)", ErrInvalidInstallmentCount, plan.Installments)
		}
		rate := plan.MonthlyInterestPercent
		if rate < 0 {
			rate = 0
		}
		total := net * (1 + rate/100*float64(plan.Installments))
		return total, total / float64(plan.Installments), plan.Installments, nil
	default:
		// Cash plans settle in a single payment at the net total.
		return net, net, 1, nil
	}
}
