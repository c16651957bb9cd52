package payments

// Method identifies the payment rail a transaction settled on
type Method string

const (
	MethodCard  Method = "card"
	MethodMpesa Method = "mpesa"
)

func (m Method) IsValid() bool {
	switch m {
	case MethodCard, MethodMpesa:
		return true
	}
	return false
}

func (m Method) String() string {
	return string(m)
}

// TransactionStatus is the state of a settled-payment record
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

func (t TransactionStatus) IsValid() bool {
	switch t {
	case TransactionStatusCompleted, TransactionStatusPending, TransactionStatusFailed:
		return true
	}
	return false
}

func (t TransactionStatus) String() string {
	return string(t)
}

// CorrelationStatus is the terminal outcome of a push attempt as reported by
// the provider callback
type CorrelationStatus string

const (
	CorrelationStatusCompleted CorrelationStatus = "completed"
	CorrelationStatusFailed    CorrelationStatus = "failed"
)
