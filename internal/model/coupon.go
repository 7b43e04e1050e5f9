package model

// CouponStatusCode: итог попытки применить купон.
type CouponStatusCode string

const (
	CouponApplied                          CouponStatusCode = "APPLIED"
	CouponCodeAlreadyInBasket              CouponStatusCode = "COUPON_CODE_ALREADY_IN_BASKET"
	CouponCodeAlreadyRedeemed              CouponStatusCode = "COUPON_CODE_ALREADY_REDEEMED"
	CouponCodeUnknown                      CouponStatusCode = "COUPON_CODE_UNKNOWN"
	CouponDisabled                         CouponStatusCode = "COUPON_DISABLED"
	CouponCustomerRedemptionLimitExceeded  CouponStatusCode = "CUSTOMER_REDEMPTION_LIMIT_EXCEEDED"
	CouponNoActivePromotion                CouponStatusCode = "NO_ACTIVE_PROMOTION"
	CouponNoApplicablePromotion            CouponStatusCode = "NO_APPLICABLE_PROMOTION"
	CouponRedemptionLimitExceeded          CouponStatusCode = "REDEMPTION_LIMIT_EXCEEDED"
	CouponTimeframeRedemptionLimitExceeded CouponStatusCode = "TIMEFRAME_REDEMPTION_LIMIT_EXCEEDED"
	CouponNoContinuousCodes                CouponStatusCode = "NO_CONTINUOUS_CODES"
)

var couponStatusCodes = map[CouponStatusCode]struct{}{
	CouponApplied:                          {},
	CouponCodeAlreadyInBasket:              {},
	CouponCodeAlreadyRedeemed:              {},
	CouponCodeUnknown:                      {},
	CouponDisabled:                         {},
	CouponCustomerRedemptionLimitExceeded:  {},
	CouponNoActivePromotion:                {},
	CouponNoApplicablePromotion:            {},
	CouponRedemptionLimitExceeded:          {},
	CouponTimeframeRedemptionLimitExceeded: {},
	CouponNoContinuousCodes:                {},
}

// IsValid сообщает, входит ли код в перечисление.
func (c CouponStatusCode) IsValid() bool {
	_, ok := couponStatusCodes[c]
	return ok
}

// IsApplied: купон применён к корзине.
func (c CouponStatusCode) IsApplied() bool {
	return c == CouponApplied
}
