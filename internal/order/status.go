package order

import "fmt"

type Status string

const (
	StatusPendingPayment       Status = "pending_payment"
	StatusPaymentConfirmed     Status = "payment_confirmed"
	StatusPurchasing           Status = "purchasing"
	StatusShippedInternational Status = "shipped_international"
	StatusInCustoms            Status = "in_customs"
	StatusShippedLocal         Status = "shipped_local"
	StatusDelivered            Status = "delivered"
	StatusCancelled            Status = "cancelled"
)

// Sequence is the linear happy path. Cancelled is not part of it.
var Sequence = []Status{
	StatusPendingPayment,
	StatusPaymentConfirmed,
	StatusPurchasing,
	StatusShippedInternational,
	StatusInCustoms,
	StatusShippedLocal,
	StatusDelivered,
}

var labels = map[Status]string{
	StatusPendingPayment:       "Aguardando Pagamento",
	StatusPaymentConfirmed:     "Pagamento Confirmado",
	StatusPurchasing:           "Comprando Produto",
	StatusShippedInternational: "Enviado (Internacional)",
	StatusInCustoms:            "Na Alfândega",
	StatusShippedLocal:         "Em Trânsito (Angola)",
	StatusDelivered:            "Entregue",
	StatusCancelled:            "Cancelado",
}

// AllStatuses returns every recognized status, happy path first.
func AllStatuses() []Status {
	all := make([]Status, 0, len(Sequence)+1)
	all = append(all, Sequence...)
	return append(all, StatusCancelled)
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := labels[s]
	return ok
}

// Position is the index of s in Sequence. Cancelled and unknown values have none.
func (s Status) Position() (int, bool) {
	for i, st := range Sequence {
		if st == s {
			return i, true
		}
	}
	return -1, false
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s Status) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

func (s Status) String() string {
	return string(s)
}

// IsForward reports whether moving from one status to another follows the
// happy path, or cancels an order that has not finished yet.
func IsForward(from, to Status) bool {
	if to == StatusCancelled {
		return !from.IsTerminal()
	}
	fromPos, ok := from.Position()
	if !ok {
		return false
	}
	toPos, ok := to.Position()
	if !ok {
		return false
	}
	return toPos > fromPos
}
