package services

import (
	"strings"

	domain "github.com/swiftbasket/api/internal/domain"
)

// Coupon rejection reasons surfaced on the cart instead of errors.
const (
	CouponReasonInactive   = "inactive"
	CouponReasonOutOfRange = "out_of_range"
	CouponReasonNotFound   = "not_found"
)

// FeePolicy carries the fee knobs applied when pricing a cart.
type FeePolicy struct {
	PlatformFee       float64
	PerKmRate         float64
	FreeDistanceKm    float64
	FreeDeliveryAbove float64
}

// PricingEngine recomputes cart money fields. All intermediate math is
// unrounded; tax and the aggregates are rounded once at cart level.
type PricingEngine struct {
	fees FeePolicy
}

// NewPricingEngine constructs an engine over the given fee policy.
func NewPricingEngine(fees FeePolicy) *PricingEngine {
	return &PricingEngine{fees: fees}
}

// Price recomputes the summary from the cart's lines, coupon, and delivery
// state. An empty cart zeroes every money field, platform fee included.
func (e *PricingEngine) Price(cart *domain.Cart) {
	if cart == nil {
		return
	}

	if cart.IsEmpty() {
		cart.Summary = domain.CartSummary{}
		if cart.Coupon != nil {
			cart.Coupon.Discount = 0
		}
		return
	}

	var subtotal, tax float64
	for _, line := range cart.Lines {
		subtotal += line.LineTotal
		tax += line.UnitPrice * float64(line.Quantity) * line.TaxRatePct / 100
	}
	tax = domain.Round2(tax)

	var discount float64
	if cart.Coupon != nil {
		e.recheckCouponBounds(cart.Coupon, subtotal)
		if cart.Coupon.Applied {
			discount = domain.Round2(subtotal * cart.Coupon.Pct / 100)
		}
		cart.Coupon.Discount = discount
	}

	platformFee := e.fees.PlatformFee
	beforeDelivery := subtotal + tax + platformFee - discount
	deliveryFee := e.deliveryFee(cart, beforeDelivery)

	cart.Summary = domain.CartSummary{
		Subtotal:    domain.Round2(subtotal),
		Discount:    discount,
		Tax:         tax,
		DeliveryFee: deliveryFee,
		PlatformFee: platformFee,
		Total:       domain.Round2(subtotal + tax + deliveryFee + platformFee - discount),
	}
}

// deliveryFee charges per km beyond the free radius, waived for carts whose
// total (delivery excluded) already clears the free-delivery threshold.
func (e *PricingEngine) deliveryFee(cart *domain.Cart, beforeDelivery float64) float64 {
	if strings.TrimSpace(cart.AddressID) == "" || cart.DistanceKm <= 0 {
		return 0
	}
	if e.fees.FreeDeliveryAbove > 0 && beforeDelivery > e.fees.FreeDeliveryAbove {
		return 0
	}

	billableKm := cart.DistanceKm - e.fees.FreeDistanceKm
	if billableKm <= 0 {
		return 0
	}
	return domain.CeilUnit(billableKm * e.fees.PerKmRate)
}

// recheckCouponBounds re-applies the coupon's subtotal bounds after a cart
// mutation, so the displayed discount tracks the live subtotal. A coupon
// without snapshotted bounds, or one rejected for another reason, is left
// alone.
func (e *PricingEngine) recheckCouponBounds(coupon *domain.CartCoupon, subtotal float64) {
	if coupon.MaxPrice <= 0 {
		return
	}
	inRange := subtotal >= coupon.MinPrice && subtotal <= coupon.MaxPrice
	switch {
	case coupon.Applied && !inRange:
		coupon.Applied = false
		coupon.Reason = CouponReasonOutOfRange
	case !coupon.Applied && inRange && coupon.Reason == CouponReasonOutOfRange:
		coupon.Applied = true
		coupon.Reason = ""
	}
}

// EvaluateCoupon checks a coupon against the current subtotal. Rejections come
// back as reasons on the result, never as errors.
func (e *PricingEngine) EvaluateCoupon(coupon domain.Coupon, subtotal float64) domain.CartCoupon {
	result := domain.CartCoupon{
		Code:     coupon.Code,
		Pct:      coupon.Pct,
		MinPrice: coupon.MinPrice,
		MaxPrice: coupon.MaxPrice,
	}

	switch {
	case !coupon.Active:
		result.Reason = CouponReasonInactive
	case subtotal < coupon.MinPrice || subtotal > coupon.MaxPrice:
		result.Reason = CouponReasonOutOfRange
	default:
		result.Applied = true
		result.Discount = domain.Round2(subtotal * coupon.Pct / 100)
	}
	return result
}
