package payments

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/eventide/backend/internal/models"
)

// DefaultCurrency is used when an order does not name one.
const DefaultCurrency = "INR"

// Gateway creates checkout orders and verifies completed payments.
type Gateway interface {
	CreateOrder(ctx context.Context, amount float64, currency string) (models.PaymentOrder, error)
	Verify(p models.PaymentConfirmation) bool
}

// orderCreator is the slice of the Razorpay client we call.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Razorpay is the Razorpay-backed Gateway.
type Razorpay struct {
	orders orderCreator
	secret string
	now    func() time.Time
}

// NewRazorpay creates a gateway for the given key pair.
func NewRazorpay(keyID, keySecret string) *Razorpay {
	client := razorpay.NewClient(keyID, keySecret)
	return &Razorpay{orders: client.Order, secret: keySecret, now: time.Now}
}

// CreateOrder converts amount to minor units and opens an order. The call is
// synchronous in the SDK; ctx is checked before it is issued.
func (r *Razorpay) CreateOrder(ctx context.Context, amount float64, currency string) (models.PaymentOrder, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return models.PaymentOrder{}, fmt.Errorf("%w: amount must be positive", models.ErrInvalidInput)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if err := ctx.Err(); err != nil {
		return models.PaymentOrder{}, err
	}
	minor := int64(math.Round(amount * 100))
	receipt := fmt.Sprintf("receipt_order_%d", r.now().UnixMilli())
	body, err := r.orders.Create(map[string]interface{}{
		"amount":   minor,
		"currency": currency,
		"receipt":  receipt,
	}, nil)
	if err != nil {
		return models.PaymentOrder{}, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	order := models.PaymentOrder{
		ID:       str(body["id"]),
		Provider: models.PaymentProviderRazorpay,
		Amount:   minor,
		Currency: currency,
		Receipt:  receipt,
		Status:   str(body["status"]),
	}
	if order.ID == "" {
		return models.PaymentOrder{}, fmt.Errorf("%w: order response without id", models.ErrUpstream)
	}
	return order, nil
}

// Verify checks the checkout signature returned to the browser against the
// order and payment ids, keyed with the API secret.
func (r *Razorpay) Verify(p models.PaymentConfirmation) bool {
	if p.OrderID == "" || p.PaymentID == "" || p.Signature == "" {
		return false
	}
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   p.OrderID,
		"razorpay_payment_id": p.PaymentID,
	}, strings.ToLower(p.Signature), r.secret)
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}
