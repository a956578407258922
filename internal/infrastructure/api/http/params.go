package http

const (
	MerchantIDParam    = "merchant_id"
	TransactionIDParam = "transaction_id"
)

// MaxSlateSize bounds request bodies carrying a slate.
const MaxSlateSize = 1 << 20
