package provider

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"premarket-access-be/internal/entity"
	"premarket-access-be/internal/pkg/apperror"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// midtrans reports transaction_time in WIB
var jakarta = time.FixedZone("WIB", 7*60*60)

type MidtransNotification struct {
	TransactionId     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	TransactionTime   string `json:"transaction_time"`
	OrderId           string `json:"order_id"`
	FraudStatus       string `json:"fraud_status"`
	SignatureKey      string `json:"signature_key"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
}

type MidtransGateway struct {
	client    snap.Client
	serverKey string
	finishURL string
	now       func() time.Time
}

func NewMidtransGateway(serverKey string, isProduction bool, finishURL string) *MidtransGateway {
	env := midtrans.Sandbox
	if isProduction {
		env = midtrans.Production
	}

	g := &MidtransGateway{
		serverKey: serverKey,
		finishURL: finishURL,
		now:       func() time.Time { return time.Now().UTC() },
	}
	g.client.New(serverKey, env)
	return g
}

func (g *MidtransGateway) Name() string {
	return NameMidtrans
}

// WholeAmount reports whether amount can be sent as a snap gross amount,
// which only carries whole currency units.
func WholeAmount(amount float64) bool {
	return amount == math.Trunc(amount)
}

func (g *MidtransGateway) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !WholeAmount(req.Amount) {
		return nil, apperror.InvalidPricingConfig("midtrans charges must be whole currency units", map[string]any{"amount": req.Amount})
	}
	gross := int64(req.Amount)

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: gross,
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    req.Reference,
				Price: gross,
				Qty:   1,
				Name:  req.Description,
			},
		},
		EnabledPayments: snap.AllSnapPaymentType,
	}
	if g.finishURL != "" {
		snapReq.Callbacks = &snap.Callbacks{Finish: g.finishURL}
	}

	resp, midErr := g.client.CreateTransaction(snapReq)
	if midErr != nil {
		return nil, fmt.Errorf("midtrans error: %s", midErr.GetMessage())
	}

	return &Charge{
		ProviderReference: req.Reference,
		Token:             resp.Token,
		RedirectURL:       resp.RedirectURL,
	}, nil
}

func (g *MidtransGateway) ParseNotification(body []byte) (*Notification, error) {
	var n MidtransNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, apperror.Validation("malformed midtrans notification", map[string]any{"error": err.Error()})
	}
	if n.OrderId == "" || n.TransactionStatus == "" {
		return nil, apperror.Validation("midtrans notification is missing order_id or transaction_status", nil)
	}
	if !VerifyMidtransSignature(n, g.serverKey) {
		return nil, apperror.InvalidSignature()
	}

	outcome, ok := MapMidtransStatus(n.TransactionStatus, n.FraudStatus)
	if !ok {
		return nil, apperror.Validation("unknown midtrans transaction status", map[string]any{"transaction_status": n.TransactionStatus})
	}

	return &Notification{
		Provider:          NameMidtrans,
		EventId:           MidtransEventID(n),
		ProviderReference: n.OrderId,
		Outcome:           outcome,
		OccurredAt:        g.occurredAt(n),
		Raw:               json.RawMessage(body),
	}, nil
}

func (g *MidtransGateway) occurredAt(n MidtransNotification) time.Time {
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", n.TransactionTime, jakarta); err == nil {
		return t.UTC()
	}
	return g.now()
}

// MidtransSignature is SHA512(order_id + status_code + gross_amount + server_key), hex encoded.
func MidtransSignature(orderId, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderId + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func VerifyMidtransSignature(n MidtransNotification, serverKey string) bool {
	if serverKey == "" || n.SignatureKey == "" {
		return false
	}
	expected := MidtransSignature(n.OrderId, n.StatusCode, n.GrossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}

// MidtransEventID identifies one status report of one transaction. Midtrans
// resends the same report on retry, so the pair is stable across deliveries.
func MidtransEventID(n MidtransNotification) string {
	id := n.TransactionId
	if id == "" {
		id = n.OrderId
	}
	return id + ":" + n.TransactionStatus
}

func MapMidtransStatus(status, fraudStatus string) (entity.PaymentOutcome, bool) {
	switch status {
	case "capture":
		if fraudStatus == "challenge" {
			return entity.PaymentOutcomePending, true
		}
		return entity.PaymentOutcomeSucceeded, true
	case "settlement":
		return entity.PaymentOutcomeSucceeded, true
	case "deny", "cancel", "expire", "failure":
		return entity.PaymentOutcomeFailed, true
	case "pending", "authorize":
		return entity.PaymentOutcomePending, true
	}
	return "", false
}
