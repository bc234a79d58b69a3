package models

// PaymentProviderRazorpay is the only gateway currently wired.
const PaymentProviderRazorpay = "razorpay"

// PaymentOrder is the gateway order descriptor returned to the client before checkout.
type PaymentOrder struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Amount   int64  `json:"amount"` // minor units (paise, cents)
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// PaymentConfirmation is what the client hands back after checkout.
type PaymentConfirmation struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}
