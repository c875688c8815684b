// Package lifecycle is the single place booking and payment statuses change.
package lifecycle

type BookingStatus string

const (
	BookingPending           BookingStatus = "pending"
	BookingReschedulePending BookingStatus = "reschedule_pending"
	BookingConfirmed         BookingStatus = "confirmed"
	BookingInProgress        BookingStatus = "in_progress"
	BookingCancelled         BookingStatus = "cancelled"
	BookingRejected          BookingStatus = "rejected"
	BookingCompleted         BookingStatus = "completed"
	BookingNoShow            BookingStatus = "no_show"
)

// Terminal statuses accept no further booking transition.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingCancelled, BookingRejected, BookingCompleted, BookingNoShow:
		return true
	}
	return false
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingReschedulePending, BookingConfirmed, BookingInProgress,
		BookingCancelled, BookingRejected, BookingCompleted, BookingNoShow:
		return true
	}
	return false
}

// BlocksSlot reports whether a booking in this status occupies its window.
func (s BookingStatus) BlocksSlot() bool {
	return s != BookingCancelled
}

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentSuccess           PaymentStatus = "success"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefundPending     PaymentStatus = "refund_pending"
	PaymentCancelled         PaymentStatus = "cancelled"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentChargeback        PaymentStatus = "chargeback"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentSuccess, PaymentFailed, PaymentRefundPending, PaymentCancelled,
		PaymentRefunded, PaymentPartiallyRefunded, PaymentChargeback:
		return true
	}
	return false
}

// State is the pair of statuses every booking carries.
type State struct {
	Booking BookingStatus `json:"booking_status"`
	Payment PaymentStatus `json:"payment_status"`
}
