package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrNoChange means the event would leave the state as it is.
	ErrNoChange = errors.New("no change")
	// ErrTerminal means the booking already reached a final status.
	ErrTerminal = errors.New("booking is in a terminal status")
	// ErrInvalidTransition means the event is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

type EventKind string

const (
	EventCreate            EventKind = "create"
	EventRequestReschedule EventKind = "request_reschedule"
	EventConfirmReschedule EventKind = "confirm_reschedule"
	EventCancel            EventKind = "cancel"
	EventReject            EventKind = "reject"
	EventStart             EventKind = "start"
	EventComplete          EventKind = "complete"
	EventMarkNoShow        EventKind = "no_show"
	EventPaymentSucceeded  EventKind = "payment_succeeded"
	EventPaymentFailed     EventKind = "payment_failed"
	EventRefunded          EventKind = "refunded"
	EventChargeback        EventKind = "chargeback"
)

type Event struct {
	Kind EventKind
	// Partial marks a refund that did not cover the full amount.
	Partial bool
}

func On(kind EventKind) Event { return Event{Kind: kind} }

// Initial is the state of a booking that was just created.
func Initial() State {
	return State{Booking: BookingPending, Payment: PaymentPending}
}

// Apply returns the state after evt, or an error when evt is not allowed.
func Apply(s State, evt Event) (State, error) {
	switch evt.Kind {
	case EventCreate:
		return Initial(), nil
	case EventPaymentSucceeded:
		return paymentSucceeded(s)
	case EventPaymentFailed:
		return paymentFailed(s)
	case EventRefunded:
		return refunded(s, evt.Partial)
	case EventChargeback:
		return chargeback(s)
	}

	if s.Booking.Terminal() {
		if evt.Kind == EventCancel && s.Booking == BookingCancelled {
			return s, ErrNoChange
		}
		return s, ErrTerminal
	}

	switch evt.Kind {
	case EventRequestReschedule:
		switch s.Booking {
		case BookingReschedulePending:
			return s, ErrNoChange
		case BookingPending, BookingConfirmed:
			s.Booking = BookingReschedulePending
			return s, nil
		}
	case EventConfirmReschedule:
		switch s.Booking {
		case BookingReschedulePending:
			s.Booking = BookingPending
			return couple(s), nil
		case BookingPending, BookingConfirmed:
			return couple(s), nil
		}
	case EventCancel:
		s.Booking = BookingCancelled
		switch s.Payment {
		case PaymentSuccess:
			s.Payment = PaymentRefundPending
		case PaymentPending:
			s.Payment = PaymentCancelled
		}
		return s, nil
	case EventReject:
		if s.Booking == BookingPending {
			s.Booking = BookingRejected
			if s.Payment == PaymentSuccess {
				s.Payment = PaymentRefundPending
			} else if s.Payment == PaymentPending {
				s.Payment = PaymentCancelled
			}
			return s, nil
		}
	case EventStart:
		if s.Booking == BookingConfirmed {
			s.Booking = BookingInProgress
			return s, nil
		}
	case EventComplete:
		if s.Booking == BookingInProgress {
			s.Booking = BookingCompleted
			return s, nil
		}
	case EventMarkNoShow:
		if s.Booking == BookingConfirmed {
			s.Booking = BookingNoShow
			return s, nil
		}
	default:
		return s, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, evt.Kind)
	}
	return s, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, evt.Kind, s.Booking)
}

// couple confirms a pending booking whose payment already succeeded.
func couple(s State) State {
	if s.Booking == BookingPending && s.Payment == PaymentSuccess {
		s.Booking = BookingConfirmed
	}
	return s
}

func paymentSucceeded(s State) (State, error) {
	voided := s.Booking == BookingCancelled || s.Booking == BookingRejected
	switch s.Payment {
	case PaymentSuccess:
		return s, ErrNoChange
	case PaymentRefundPending:
		if voided {
			return s, ErrNoChange
		}
	case PaymentPending, PaymentFailed, PaymentCancelled:
		if voided {
			// Money arrived for a booking that no longer exists.
			s.Payment = PaymentRefundPending
			return s, nil
		}
		if s.Payment != PaymentCancelled {
			s.Payment = PaymentSuccess
			if s.Booking == BookingPending || s.Booking == BookingConfirmed {
				s.Booking = BookingConfirmed
			}
			return s, nil
		}
	}
	return s, fmt.Errorf("%w: payment success from %s", ErrInvalidTransition, s.Payment)
}

func paymentFailed(s State) (State, error) {
	switch s.Payment {
	case PaymentFailed:
		return s, ErrNoChange
	case PaymentPending:
		s.Payment = PaymentFailed
		return s, nil
	}
	return s, fmt.Errorf("%w: payment failure from %s", ErrInvalidTransition, s.Payment)
}

func refunded(s State, partial bool) (State, error) {
	target := PaymentRefunded
	if partial {
		target = PaymentPartiallyRefunded
	}
	switch s.Payment {
	case target:
		return s, ErrNoChange
	case PaymentSuccess, PaymentRefundPending, PaymentPartiallyRefunded:
		s.Payment = target
		return s, nil
	}
	return s, fmt.Errorf("%w: refund from %s", ErrInvalidTransition, s.Payment)
}

func chargeback(s State) (State, error) {
	switch s.Payment {
	case PaymentChargeback:
		return s, ErrNoChange
	case PaymentSuccess, PaymentRefundPending, PaymentPartiallyRefunded:
		s.Payment = PaymentChargeback
		return s, nil
	}
	return s, fmt.Errorf("%w: chargeback from %s", ErrInvalidTransition, s.Payment)
}
