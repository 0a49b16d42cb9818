package order

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending         Status = "pending"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusProcessing      Status = "processing"
	StatusDPPaid          Status = "dp_paid"
	StatusPaid            Status = "paid"
	StatusShipped         Status = "shipped"
	StatusDelivered       Status = "delivered"
	StatusCancelled       Status = "cancelled"
	StatusRefunded        Status = "refunded"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusAwaitingPayment,
	StatusProcessing,
	StatusDPPaid,
	StatusPaid,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusRefunded,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Open reports whether the order still needs work from the shop.
func (s Status) Open() bool {
	switch s {
	case StatusPending, StatusAwaitingPayment, StatusProcessing, StatusDPPaid:
		return true
	}
	return false
}

// forward lists the regular transitions. Cancelled and refunded are
// reachable from every non-terminal state and are handled separately.
var forward = map[Status][]Status{
	StatusPending:         {StatusAwaitingPayment, StatusProcessing, StatusDPPaid, StatusPaid},
	StatusAwaitingPayment: {StatusProcessing, StatusDPPaid, StatusPaid},
	StatusProcessing:      {StatusDPPaid, StatusPaid, StatusShipped},
	StatusDPPaid:          {StatusProcessing, StatusPaid},
	StatusPaid:            {StatusProcessing, StatusShipped},
	StatusShipped:         {StatusDelivered},
}

// CanTransition reports whether an order may move from one status to
// another under the strict lifecycle. Writing the same status is allowed.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled || to == StatusRefunded {
		return true
	}
	for _, next := range forward[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InferStatus returns the initial status of a customer checkout: cash on
// delivery and cash orders go straight to processing, transfer and down
// payment orders wait for money first.
func InferStatus(m PaymentMethod) Status {
	switch m {
	case PaymentCOD, PaymentCash:
		return StatusProcessing
	case PaymentTransfer, PaymentDP:
		return StatusAwaitingPayment
	default:
		return StatusPending
	}
}
