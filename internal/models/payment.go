package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts possibles d'un paiement : un paiement est résolu exactement une fois
const (
	PaymentPending  = "PENDING"
	PaymentVerified = "VERIFIED"
	PaymentFailed   = "FAILED"
)

var ValidPaymentStatuses = map[string]bool{
	PaymentPending:  true,
	PaymentVerified: true,
	PaymentFailed:   true,
}

type Payment struct {
	ID               gocql.UUID `json:"id" db:"payment_id"`
	OrderID          gocql.UUID `json:"orderId" db:"order_id"`
	BankName         string     `json:"bankName" db:"bank_name"`
	AccountNumber    string     `json:"accountNumber" db:"account_number"`
	AccountName      string     `json:"accountName" db:"account_name"`
	Amount           float64    `json:"amount" db:"amount"`
	ReferenceCode    string     `json:"referenceCode" db:"reference_code"`
	Status           string     `json:"status" db:"status"`
	VerificationNote string     `json:"verificationNote,omitempty" db:"verification_note"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
	VerifiedAt       *time.Time `json:"verifiedAt,omitempty" db:"verified_at"`
}

// PaymentLog est un journal d'audit en append-only, jamais modifié ni supprimé
type PaymentLog struct {
	ID        gocql.UUID `json:"id" db:"log_id"`
	PaymentID gocql.UUID `json:"paymentId" db:"payment_id"`
	Action    string     `json:"action" db:"action"`
	Details   string     `json:"details" db:"details"` // JSON libre (note, méthode, timestamp)
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}
