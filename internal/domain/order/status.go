package order

// PaymentStatus tracks money movement for an order
type PaymentStatus string

const (
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusPaid        PaymentStatus = "paid"
	PaymentStatusFailed      PaymentStatus = "failed"
	PaymentStatusNeedsReview PaymentStatus = "needs_review"
	PaymentStatusRefunded    PaymentStatus = "refunded"
)

// IsValid checks if the status is a known value
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusNeedsReview, PaymentStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo checks if the payment status can move to target
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return target == PaymentStatusPaid || target == PaymentStatusFailed || target == PaymentStatusNeedsReview
	case PaymentStatusFailed:
		return target == PaymentStatusPending || target == PaymentStatusPaid || target == PaymentStatusNeedsReview
	case PaymentStatusNeedsReview:
		return target == PaymentStatusPaid || target == PaymentStatusRefunded
	case PaymentStatusPaid:
		return target == PaymentStatusRefunded
	case PaymentStatusRefunded:
		return false
	}
	return false
}

// FulfillmentStatus tracks the physical progress of an order
type FulfillmentStatus string

const (
	FulfillmentStatusUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentStatusProcessing  FulfillmentStatus = "processing"
	FulfillmentStatusShipped     FulfillmentStatus = "shipped"
	FulfillmentStatusDelivered   FulfillmentStatus = "delivered"
	FulfillmentStatusCancelled   FulfillmentStatus = "cancelled"
)

// IsValid checks if the status is a known value
func (s FulfillmentStatus) IsValid() bool {
	switch s {
	case FulfillmentStatusUnfulfilled, FulfillmentStatusProcessing, FulfillmentStatusShipped,
		FulfillmentStatusDelivered, FulfillmentStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if the fulfillment status can move to target
func (s FulfillmentStatus) CanTransitionTo(target FulfillmentStatus) bool {
	switch s {
	case FulfillmentStatusUnfulfilled:
		return target == FulfillmentStatusProcessing || target == FulfillmentStatusCancelled
	case FulfillmentStatusProcessing:
		return target == FulfillmentStatusShipped || target == FulfillmentStatusCancelled
	case FulfillmentStatusShipped:
		return target == FulfillmentStatusDelivered
	case FulfillmentStatusDelivered, FulfillmentStatusCancelled:
		return false
	}
	return false
}
