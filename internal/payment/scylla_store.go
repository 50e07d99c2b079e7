package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"wave_back_end/internal/database"
	"wave_back_end/internal/models"
)

// ScyllaStore persiste les paiements dans ks_orders. L'unicité du code de
// référence et le paiement unique par commande reposent sur des insertions
// LWT dans les tables d'index dédiées.
type ScyllaStore struct{}

func NewScyllaStore() *ScyllaStore {
	return &ScyllaStore{}
}

func (s *ScyllaStore) ClaimReference(ctx context.Context, code string, paymentID gocql.UUID) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, err
	}

	var existingCode string
	var existingID gocql.UUID
	applied, err := session.Query(`
		INSERT INTO payments_by_reference (reference_code, payment_id)
		VALUES (?, ?) IF NOT EXISTS`, code, paymentID).WithContext(ctx).
		ScanCAS(&existingCode, &existingID)
	if err != nil {
		return false, fmt.Errorf("réservation du code %s: %w", code, err)
	}
	return applied, nil
}

func (s *ScyllaStore) ReleaseReference(ctx context.Context, code string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query(`DELETE FROM payments_by_reference WHERE reference_code = ?`, code).
		WithContext(ctx).Exec()
}

func (s *ScyllaStore) Insert(ctx context.Context, p models.Payment) (bool, gocql.UUID, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, gocql.UUID{}, err
	}

	var existingOrderID, existingPaymentID gocql.UUID
	applied, err := session.Query(`
		INSERT INTO payments_by_order (order_id, payment_id)
		VALUES (?, ?) IF NOT EXISTS`, p.OrderID, p.ID).WithContext(ctx).
		ScanCAS(&existingOrderID, &existingPaymentID)
	if err != nil {
		return false, gocql.UUID{}, fmt.Errorf("index paiement par commande: %w", err)
	}
	if !applied {
		return false, existingPaymentID, nil
	}

	if err := session.Query(`
		INSERT INTO payments (payment_id, order_id, bank_name, account_number, account_name,
			amount, reference_code, status, verification_note, created_at, verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OrderID, p.BankName, p.AccountNumber, p.AccountName,
		p.Amount, p.ReferenceCode, p.Status, p.VerificationNote, p.CreatedAt, p.VerifiedAt).
		WithContext(ctx).Exec(); err != nil {
		return false, gocql.UUID{}, fmt.Errorf("insertion paiement: %w", err)
	}

	return true, p.ID, nil
}

func (s *ScyllaStore) GetByID(ctx context.Context, id gocql.UUID) (models.Payment, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return models.Payment{}, err
	}
	return scanPayment(session.Query(`
		SELECT payment_id, order_id, bank_name, account_number, account_name,
			amount, reference_code, status, verification_note, created_at, verified_at
		FROM payments WHERE payment_id = ?`, id).WithContext(ctx))
}

func (s *ScyllaStore) GetByOrderID(ctx context.Context, orderID gocql.UUID) (models.Payment, error) {
	var paymentID gocql.UUID
	q := database.GetPreparedGetPaymentByOrder()
	if q == nil {
		session, err := database.GetOrdersSession()
		if err != nil {
			return models.Payment{}, err
		}
		q = session.Query(`SELECT payment_id FROM payments_by_order WHERE order_id = ?`)
	}
	if err := q.Bind(orderID).WithContext(ctx).Scan(&paymentID); err != nil {
		return models.Payment{}, err
	}
	return s.GetByID(ctx, paymentID)
}

func (s *ScyllaStore) GetByReference(ctx context.Context, code string) (models.Payment, error) {
	var paymentID gocql.UUID
	q := database.GetPreparedGetPaymentByReference()
	if q == nil {
		session, err := database.GetOrdersSession()
		if err != nil {
			return models.Payment{}, err
		}
		q = session.Query(`SELECT payment_id FROM payments_by_reference WHERE reference_code = ?`)
	}
	if err := q.Bind(code).WithContext(ctx).Scan(&paymentID); err != nil {
		return models.Payment{}, err
	}
	return s.GetByID(ctx, paymentID)
}

func (s *ScyllaStore) Resolve(ctx context.Context, id gocql.UUID, status, note string, verifiedAt *time.Time) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, err
	}

	var current string
	applied, err := session.Query(`
		UPDATE payments SET status = ?, verification_note = ?, verified_at = ?
		WHERE payment_id = ? IF status = ?`,
		status, note, verifiedAt, id, models.PaymentPending).WithContext(ctx).
		ScanCAS(&current)
	if err != nil {
		return false, fmt.Errorf("résolution du paiement: %w", err)
	}
	return applied, nil
}

func (s *ScyllaStore) AppendLog(ctx context.Context, l models.PaymentLog) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query(`
		INSERT INTO payment_logs (payment_id, log_id, action, details, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		l.PaymentID, l.ID, l.Action, l.Details, l.CreatedAt).WithContext(ctx).Exec()
}

func (s *ScyllaStore) ListLogs(ctx context.Context, paymentID gocql.UUID) ([]models.PaymentLog, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`
		SELECT payment_id, log_id, action, details, created_at
		FROM payment_logs WHERE payment_id = ?`, paymentID).WithContext(ctx).Iter()

	var logs []models.PaymentLog
	var l models.PaymentLog
	for iter.Scan(&l.PaymentID, &l.ID, &l.Action, &l.Details, &l.CreatedAt) {
		logs = append(logs, l)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture du journal: %w", err)
	}
	return logs, nil
}

func (s *ScyllaStore) ListAll(ctx context.Context) ([]models.Payment, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`
		SELECT payment_id, order_id, bank_name, account_number, account_name,
			amount, reference_code, status, verification_note, created_at, verified_at
		FROM payments`).WithContext(ctx).Iter()

	var payments []models.Payment
	for {
		var p models.Payment
		if !iter.Scan(&p.ID, &p.OrderID, &p.BankName, &p.AccountNumber, &p.AccountName,
			&p.Amount, &p.ReferenceCode, &p.Status, &p.VerificationNote, &p.CreatedAt, &p.VerifiedAt) {
			break
		}
		payments = append(payments, p)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture des paiements: %w", err)
	}
	return payments, nil
}

func scanPayment(q *gocql.Query) (models.Payment, error) {
	var p models.Payment
	err := q.Scan(&p.ID, &p.OrderID, &p.BankName, &p.AccountNumber, &p.AccountName,
		&p.Amount, &p.ReferenceCode, &p.Status, &p.VerificationNote, &p.CreatedAt, &p.VerifiedAt)
	if err != nil {
		return models.Payment{}, err
	}
	return p, nil
}
