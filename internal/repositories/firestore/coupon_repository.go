package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/swiftbasket/api/internal/domain"
	pfirestore "github.com/swiftbasket/api/internal/platform/firestore"
)

const couponsCollection = "coupons"

type couponDocument struct {
	Code     string  `firestore:"code"`
	Pct      float64 `firestore:"pct"`
	MinPrice float64 `firestore:"minPrice"`
	MaxPrice float64 `firestore:"maxPrice"`
	Active   bool    `firestore:"active"`
}

// CouponRepository stores coupons keyed by their normalised code.
type CouponRepository struct {
	coupons *pfirestore.BaseRepository[couponDocument]
}

// NewCouponRepository constructs a Firestore-backed coupon repository.
func NewCouponRepository(provider *pfirestore.Provider) (*CouponRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon repository requires firestore provider")
	}
	return &CouponRepository{
		coupons: pfirestore.NewBaseRepository[couponDocument](provider, couponsCollection),
	}, nil
}

func normaliseCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Upsert writes the coupon under its normalised code.
func (r *CouponRepository) Upsert(ctx context.Context, coupon domain.Coupon) error {
	code := normaliseCouponCode(coupon.Code)
	if code == "" {
		return errors.New("coupon: code is required")
	}
	_, err := r.coupons.Set(ctx, code, couponDocument{
		Code:     code,
		Pct:      coupon.Pct,
		MinPrice: coupon.MinPrice,
		MaxPrice: coupon.MaxPrice,
		Active:   coupon.Active,
	})
	return err
}

// Delete removes the coupon.
func (r *CouponRepository) Delete(ctx context.Context, code string) error {
	return r.coupons.Delete(ctx, normaliseCouponCode(code))
}

// FindByCode loads a coupon by its code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	doc, err := r.coupons.Get(ctx, normaliseCouponCode(code))
	if err != nil {
		return domain.Coupon{}, err
	}
	return domain.Coupon{
		Code:     doc.Data.Code,
		Pct:      doc.Data.Pct,
		MinPrice: doc.Data.MinPrice,
		MaxPrice: doc.Data.MaxPrice,
		Active:   doc.Data.Active,
	}, nil
}

// List returns coupons, optionally only active ones.
func (r *CouponRepository) List(ctx context.Context, activeOnly bool) ([]domain.Coupon, error) {
	docs, err := r.coupons.Query(ctx, func(q firestore.Query) firestore.Query {
		if activeOnly {
			q = q.Where("active", "==", true)
		}
		return q
	})
	if err != nil {
		return nil, err
	}

	coupons := make([]domain.Coupon, 0, len(docs))
	for _, doc := range docs {
		coupons = append(coupons, domain.Coupon{
			Code:     doc.Data.Code,
			Pct:      doc.Data.Pct,
			MinPrice: doc.Data.MinPrice,
			MaxPrice: doc.Data.MaxPrice,
			Active:   doc.Data.Active,
		})
	}
	return coupons, nil
}
