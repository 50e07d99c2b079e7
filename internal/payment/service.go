package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/gocql/gocql"

	"wave_back_end/internal/models"
)

var (
	ErrPaymentNotFound    = errors.New("paiement introuvable")
	ErrAlreadyResolved    = errors.New("paiement déjà traité")
	ErrInvalidAction      = errors.New("action invalide")
	ErrReferenceExhausted = errors.New("impossible de générer un code de référence unique")
)

// Un virement non confirmé au-delà de ce délai est considéré comme abandonné
const paymentExpiry = 24 * time.Hour

const referenceCodeAttempts = 25

// Store persiste paiements, index de référence et journal d'audit
type Store interface {
	// ClaimReference réserve un code de référence (LWT IF NOT EXISTS) ;
	// retourne false si le code est déjà pris
	ClaimReference(ctx context.Context, code string, paymentID gocql.UUID) (bool, error)
	ReleaseReference(ctx context.Context, code string) error
	// Insert enregistre le paiement et son index par commande. Si un paiement
	// existe déjà pour la commande, retourne (false, idExistant, nil).
	Insert(ctx context.Context, p models.Payment) (bool, gocql.UUID, error)
	GetByID(ctx context.Context, id gocql.UUID) (models.Payment, error)
	GetByOrderID(ctx context.Context, orderID gocql.UUID) (models.Payment, error)
	GetByReference(ctx context.Context, code string) (models.Payment, error)
	// Resolve fait passer le paiement de PENDING au statut donné (LWT) ;
	// retourne false si le paiement n'était plus PENDING
	Resolve(ctx context.Context, id gocql.UUID, status, note string, verifiedAt *time.Time) (bool, error)
	AppendLog(ctx context.Context, l models.PaymentLog) error
	ListAll(ctx context.Context) ([]models.Payment, error)
}

// OrderGateway expose les opérations de commande dont le cycle de paiement a
// besoin. *order.Service les implémente directement.
type OrderGateway interface {
	Get(ctx context.Context, id gocql.UUID, requesterEmail string, isAdmin bool) (models.Order, error)
	MarkProcessing(ctx context.Context, id gocql.UUID) error
	CancelForPayment(ctx context.Context, id gocql.UUID) error
}

// VerifyResult porte l'issue d'une tentative de vérification côté client.
// Payment est nil quand le code de référence est inconnu.
type VerifyResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Payment *models.Payment `json:"payment,omitempty"`
}

// Service gère le cycle de vie des paiements par virement bancaire : création
// idempotente avec code de référence unique, vérification client, validation
// et rejet manuels côté admin
type Service struct {
	store    Store
	orders   OrderGateway
	verifier Verifier
	now      func() time.Time
	randRef  func() int
}

func NewService(store Store, orders OrderGateway, verifier Verifier) *Service {
	return &Service{
		store:    store,
		orders:   orders,
		verifier: verifier,
		now:      time.Now,
		randRef:  func() int { return rand.Intn(90000) + 10000 },
	}
}

func bankDetails() (name, account, holder string) {
	name = os.Getenv("BANK_NAME")
	if name == "" {
		name = "Khan Bank"
	}
	account = os.Getenv("BANK_ACCOUNT_NUMBER")
	if account == "" {
		account = "5771180385"
	}
	holder = os.Getenv("BANK_ACCOUNT_NAME")
	if holder == "" {
		holder = "BAYARJAVKHLAN BATDORJ"
	}
	return
}

// Create ouvre un paiement PENDING pour une commande. Idempotent : si un
// paiement existe déjà pour cette commande, il est retourné tel quel. Le code
// de référence à 5 chiffres est réservé via LWT pour garantir son unicité.
func (s *Service) Create(ctx context.Context, orderID gocql.UUID) (models.Payment, bool, error) {
	o, err := s.orders.Get(ctx, orderID, "", true)
	if err != nil {
		return models.Payment{}, false, err
	}

	// Chemin rapide : paiement déjà ouvert pour cette commande
	if existing, err := s.store.GetByOrderID(ctx, orderID); err == nil {
		return existing, false, nil
	}

	paymentID := gocql.TimeUUID()

	var referenceCode string
	for attempt := 0; attempt < referenceCodeAttempts; attempt++ {
		code := fmt.Sprintf("%d", s.randRef())
		claimed, err := s.store.ClaimReference(ctx, code, paymentID)
		if err != nil {
			return models.Payment{}, false, err
		}
		if claimed {
			referenceCode = code
			break
		}
	}
	if referenceCode == "" {
		return models.Payment{}, false, ErrReferenceExhausted
	}

	bankName, account, holder := bankDetails()
	p := models.Payment{
		ID:            paymentID,
		OrderID:       orderID,
		BankName:      bankName,
		AccountNumber: account,
		AccountName:   holder,
		Amount:        o.Total,
		ReferenceCode: referenceCode,
		Status:        models.PaymentPending,
		CreatedAt:     s.now(),
	}

	applied, existingID, err := s.store.Insert(ctx, p)
	if err != nil {
		s.releaseReference(ctx, referenceCode)
		return models.Payment{}, false, err
	}
	if !applied {
		// Une création concurrente a gagné : on libère notre code et on
		// retourne le paiement existant
		s.releaseReference(ctx, referenceCode)
		existing, err := s.store.GetByID(ctx, existingID)
		if err != nil {
			return models.Payment{}, false, err
		}
		return existing, false, nil
	}

	log.Printf("💳 Paiement créé: ref %s pour la commande %s (%.2f)", referenceCode, o.OrderNumber, o.Total)
	return p, true, nil
}

func (s *Service) releaseReference(ctx context.Context, code string) {
	if err := s.store.ReleaseReference(ctx, code); err != nil {
		log.Printf("⚠️ Libération du code %s échouée: %v", code, err)
	}
}

// Note de résolution posée quand la fenêtre de 24h est dépassée : elle permet
// de distinguer, à la relecture, un paiement expiré d'un rejet manuel
const expiredNote = "expiré après 24h sans virement"

const (
	msgExpired  = "Төлбөрийн хугацаа дууссан. Шинээр захиалга үүсгэнэ үү."
	msgRejected = "Төлбөр татгалзагдсан байна. Дэлгэрэнгүй мэдээллийг манай багаас лавлана уу."
)

func failedMessage(p models.Payment) string {
	if p.VerificationNote == expiredNote {
		return msgExpired
	}
	return msgRejected
}

// VerifyByReference traite une demande de vérification côté client. Un
// paiement en attente depuis plus de 24h est basculé en FAILED ; sinon la
// décision est déléguée au vérificateur configuré.
func (s *Service) VerifyByReference(ctx context.Context, referenceCode string) (VerifyResult, error) {
	p, err := s.store.GetByReference(ctx, referenceCode)
	if err != nil {
		return VerifyResult{Success: false, Message: "Төлбөрийн код олдсонгүй"}, nil
	}

	switch p.Status {
	case models.PaymentVerified:
		return VerifyResult{Success: true, Message: "Төлбөр аль хэдийн баталгаажсан байна", Payment: &p}, nil
	case models.PaymentFailed:
		return VerifyResult{Success: false, Message: failedMessage(p), Payment: &p}, nil
	}

	if s.now().Sub(p.CreatedAt) > paymentExpiry {
		applied, err := s.store.Resolve(ctx, p.ID, models.PaymentFailed, expiredNote, nil)
		if err != nil {
			return VerifyResult{}, err
		}
		if applied {
			p.Status = models.PaymentFailed
			p.VerificationNote = expiredNote
		}
		return VerifyResult{Success: false, Message: msgExpired, Payment: &p}, nil
	}

	confirmed, message, err := s.verifier.CheckTransfer(ctx, p)
	if err != nil {
		return VerifyResult{}, err
	}
	if !confirmed {
		return VerifyResult{Success: false, Message: message, Payment: &p}, nil
	}

	verifiedAt := s.now()
	applied, err := s.store.Resolve(ctx, p.ID, models.PaymentVerified, "virement confirmé", &verifiedAt)
	if err != nil {
		return VerifyResult{}, err
	}
	if !applied {
		// Résolution concurrente : on relit l'état final
		current, err := s.store.GetByID(ctx, p.ID)
		if err != nil {
			return VerifyResult{}, err
		}
		if current.Status == models.PaymentVerified {
			return VerifyResult{Success: true, Message: "Төлбөр аль хэдийн баталгаажсан байна", Payment: &current}, nil
		}
		return VerifyResult{Success: false, Message: failedMessage(current), Payment: &current}, nil
	}

	if err := s.orders.MarkProcessing(ctx, p.OrderID); err != nil {
		log.Printf("❌ Passage en PROCESSING échoué pour la commande %s: %v", p.OrderID, err)
	}

	p.Status = models.PaymentVerified
	p.VerifiedAt = &verifiedAt
	log.Printf("✅ Paiement vérifié: ref %s", p.ReferenceCode)
	return VerifyResult{Success: true, Message: "Төлбөр амжилттай баталгаажлаа!", Payment: &p}, nil
}

const (
	ActionVerify = "verify"
	ActionReject = "reject"
)

// ManualResolve applique la décision d'un administrateur sur un paiement
// PENDING. Chaque décision laisse exactement une entrée dans le journal
// d'audit ; un paiement déjà traité est refusé.
func (s *Service) ManualResolve(ctx context.Context, paymentID gocql.UUID, action, note, adminEmail string) (models.Payment, error) {
	if action != ActionVerify && action != ActionReject {
		return models.Payment{}, ErrInvalidAction
	}

	p, err := s.store.GetByID(ctx, paymentID)
	if err != nil {
		return models.Payment{}, ErrPaymentNotFound
	}
	if p.Status != models.PaymentPending {
		return models.Payment{}, ErrAlreadyResolved
	}

	now := s.now()
	var (
		newStatus  string
		verifiedAt *time.Time
		logAction  string
	)
	if action == ActionVerify {
		newStatus = models.PaymentVerified
		verifiedAt = &now
		logAction = "MANUAL_VERIFY"
	} else {
		newStatus = models.PaymentFailed
		logAction = "MANUAL_REJECT"
	}

	applied, err := s.store.Resolve(ctx, paymentID, newStatus, note, verifiedAt)
	if err != nil {
		return models.Payment{}, err
	}
	if !applied {
		return models.Payment{}, ErrAlreadyResolved
	}

	if action == ActionVerify {
		if err := s.orders.MarkProcessing(ctx, p.OrderID); err != nil {
			log.Printf("❌ Passage en PROCESSING échoué pour la commande %s: %v", p.OrderID, err)
		}
	} else {
		if err := s.orders.CancelForPayment(ctx, p.OrderID); err != nil {
			log.Printf("❌ Annulation de la commande %s échouée: %v", p.OrderID, err)
		}
	}

	details, _ := json.Marshal(map[string]string{
		"note":      note,
		"admin":     adminEmail,
		"method":    "manual_admin_verification",
		"timestamp": now.UTC().Format(time.RFC3339),
	})
	if err := s.store.AppendLog(ctx, models.PaymentLog{
		ID:        gocql.TimeUUID(),
		PaymentID: paymentID,
		Action:    logAction,
		Details:   string(details),
		CreatedAt: now,
	}); err != nil {
		log.Printf("⚠️ Écriture du journal de paiement échouée: %v", err)
	}

	p.Status = newStatus
	p.VerificationNote = note
	p.VerifiedAt = verifiedAt
	log.Printf("🔏 Décision admin %s sur le paiement %s (ref %s)", logAction, paymentID, p.ReferenceCode)
	return p, nil
}

// GetByOrder retourne le paiement associé à une commande
func (s *Service) GetByOrder(ctx context.Context, orderID gocql.UUID) (models.Payment, error) {
	p, err := s.store.GetByOrderID(ctx, orderID)
	if err != nil {
		return models.Payment{}, ErrPaymentNotFound
	}
	return p, nil
}

// List retourne tous les paiements, filtrés par statut si demandé
func (s *Service) List(ctx context.Context, status string) ([]models.Payment, error) {
	payments, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return payments, nil
	}
	filtered := make([]models.Payment, 0, len(payments))
	for _, p := range payments {
		if p.Status == status {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}
