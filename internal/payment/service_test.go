package payment

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wave_back_end/internal/models"
)

type fakeStore struct {
	payments   map[gocql.UUID]models.Payment
	byOrder    map[gocql.UUID]gocql.UUID
	references map[string]gocql.UUID
	logs       []models.PaymentLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		payments:   make(map[gocql.UUID]models.Payment),
		byOrder:    make(map[gocql.UUID]gocql.UUID),
		references: make(map[string]gocql.UUID),
	}
}

func (s *fakeStore) ClaimReference(ctx context.Context, code string, paymentID gocql.UUID) (bool, error) {
	if _, taken := s.references[code]; taken {
		return false, nil
	}
	s.references[code] = paymentID
	return true, nil
}

func (s *fakeStore) ReleaseReference(ctx context.Context, code string) error {
	delete(s.references, code)
	return nil
}

func (s *fakeStore) Insert(ctx context.Context, p models.Payment) (bool, gocql.UUID, error) {
	if existing, ok := s.byOrder[p.OrderID]; ok {
		return false, existing, nil
	}
	s.byOrder[p.OrderID] = p.ID
	s.payments[p.ID] = p
	return true, p.ID, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id gocql.UUID) (models.Payment, error) {
	p, ok := s.payments[id]
	if !ok {
		return models.Payment{}, gocql.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) GetByOrderID(ctx context.Context, orderID gocql.UUID) (models.Payment, error) {
	id, ok := s.byOrder[orderID]
	if !ok {
		return models.Payment{}, gocql.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *fakeStore) GetByReference(ctx context.Context, code string) (models.Payment, error) {
	id, ok := s.references[code]
	if !ok {
		return models.Payment{}, gocql.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *fakeStore) Resolve(ctx context.Context, id gocql.UUID, status, note string, verifiedAt *time.Time) (bool, error) {
	p, ok := s.payments[id]
	if !ok {
		return false, gocql.ErrNotFound
	}
	if p.Status != models.PaymentPending {
		return false, nil
	}
	p.Status = status
	p.VerificationNote = note
	p.VerifiedAt = verifiedAt
	s.payments[id] = p
	return true, nil
}

func (s *fakeStore) AppendLog(ctx context.Context, l models.PaymentLog) error {
	s.logs = append(s.logs, l)
	return nil
}

func (s *fakeStore) ListAll(ctx context.Context) ([]models.Payment, error) {
	payments := make([]models.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		payments = append(payments, p)
	}
	return payments, nil
}

type fakeOrderGateway struct {
	orders     map[gocql.UUID]models.Order
	processing []gocql.UUID
	cancelled  []gocql.UUID
}

func newFakeOrderGateway(orders ...models.Order) *fakeOrderGateway {
	g := &fakeOrderGateway{orders: make(map[gocql.UUID]models.Order)}
	for _, o := range orders {
		g.orders[o.ID] = o
	}
	return g
}

func (g *fakeOrderGateway) Get(ctx context.Context, id gocql.UUID, requesterEmail string, isAdmin bool) (models.Order, error) {
	o, ok := g.orders[id]
	if !ok {
		return models.Order{}, gocql.ErrNotFound
	}
	return o, nil
}

func (g *fakeOrderGateway) MarkProcessing(ctx context.Context, id gocql.UUID) error {
	g.processing = append(g.processing, id)
	o := g.orders[id]
	o.Status = models.OrderProcessing
	g.orders[id] = o
	return nil
}

func (g *fakeOrderGateway) CancelForPayment(ctx context.Context, id gocql.UUID) error {
	g.cancelled = append(g.cancelled, id)
	o := g.orders[id]
	o.Status = models.OrderCancelled
	g.orders[id] = o
	return nil
}

// alwaysConfirm confirme tous les virements, pour tester le chemin de succès
type alwaysConfirm struct{}

func (alwaysConfirm) CheckTransfer(ctx context.Context, p models.Payment) (bool, string, error) {
	return true, "", nil
}

func testOrder(total float64) models.Order {
	return models.Order{
		ID:            gocql.TimeUUID(),
		OrderNumber:   "ORD-1788256800000-A1B2C3D4E",
		CustomerEmail: "bat@example.mn",
		Total:         total,
		Status:        models.OrderPending,
	}
}

func newTestService(store *fakeStore, gateway *fakeOrderGateway, verifier Verifier) *Service {
	if verifier == nil {
		verifier = ManualVerifier{}
	}
	return NewService(store, gateway, verifier)
}

func TestCreateOpensPendingPayment(t *testing.T) {
	o := testOrder(150.50)
	store := newFakeStore()
	svc := newTestService(store, newFakeOrderGateway(o), nil)

	p, created, err := svc.Create(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, created)

	assert.Equal(t, models.PaymentPending, p.Status)
	assert.Equal(t, 150.50, p.Amount)
	assert.Equal(t, o.ID, p.OrderID)
	assert.Equal(t, "Khan Bank", p.BankName)
	assert.Len(t, p.ReferenceCode, 5)
	assert.Nil(t, p.VerifiedAt)
}

func TestCreateIsIdempotentPerOrder(t *testing.T) {
	o := testOrder(99.99)
	store := newFakeStore()
	svc := newTestService(store, newFakeOrderGateway(o), nil)

	first, created, err := svc.Create(context.Background(), o.ID)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.Create(context.Background(), o.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ReferenceCode, second.ReferenceCode)
	assert.Len(t, store.payments, 1)
}

func TestCreateRetriesOnReferenceCollision(t *testing.T) {
	o := testOrder(42.00)
	store := newFakeStore()
	// Le premier code est déjà pris par un autre paiement
	store.references["12345"] = gocql.TimeUUID()

	svc := newTestService(store, newFakeOrderGateway(o), nil)
	codes := []int{12345, 12345, 67890}
	svc.randRef = func() int {
		code := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return code
	}

	p, created, err := svc.Create(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "67890", p.ReferenceCode)
}

func TestCreateGivesUpWhenReferencesExhausted(t *testing.T) {
	o := testOrder(42.00)
	store := newFakeStore()
	store.references["11111"] = gocql.TimeUUID()

	svc := newTestService(store, newFakeOrderGateway(o), nil)
	svc.randRef = func() int { return 11111 }

	_, _, err := svc.Create(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrReferenceExhausted)
}

func TestVerifyUnknownReference(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeOrderGateway(), nil)

	result, err := svc.VerifyByReference(context.Background(), "00000")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Төлбөрийн код олдсонгүй", result.Message)
	assert.Nil(t, result.Payment)
}

func TestVerifyWithManualVerifierLeavesPaymentPending(t *testing.T) {
	o := testOrder(75.00)
	store := newFakeStore()
	gateway := newFakeOrderGateway(o)
	svc := newTestService(store, gateway, ManualVerifier{})

	p, _, err := svc.Create(context.Background(), o.ID)
	require.NoError(t, err)

	result, err := svc.VerifyByReference(context.Background(), p.ReferenceCode)
	require.NoError(t, err)
	assert.False(t, result.Success)

	stored, _ := store.GetByID(context.Background(), p.ID)
	assert.Equal(t, models.PaymentPending, stored.Status)
	assert.Empty(t, gateway.processing)
}

func TestVerifyConfirmedTransferMarksOrderProcessing(t *testing.T) {
	o := testOrder(75.00)
	store := newFakeStore()
	gateway := newFakeOrderGateway(o)
	svc := newTestService(store, gateway, alwaysConfirm{})

	p, _, err := svc.Create(context.Background(), o.ID)
	require.NoError(t, err)

	result, err := svc.VerifyByReference(context.Background(), p.ReferenceCode)
	require.NoError(t, err)
	assert.True(t, result.Success)

	stored, _ := store.GetByID(context.Background(), p.ID)
	assert.Equal(t, models.PaymentVerified, stored.Status)
	require.NotNil(t, stored.VerifiedAt)
	assert.Equal(t, []gocql.UUID{o.ID}, gateway.processing)
}

func TestVerifyIsIdempotentOnVerifiedPayment(t *testing.T) {
	o := testOrder(75.00)
	store := newFakeStore()
	gateway := newFakeOrderGateway(o)
	svc := newTestService(store, gateway, alwaysConfirm{})

	p, _, err := svc.Create(context.Background(), o.ID)
	require.NoError(t, err)

	_, err = svc.VerifyByReference(context.Background(), p.ReferenceCode)
	require.NoError(t, err)

	result, err := svc.VerifyByReference(context.Background(), p.ReferenceCode)
	require.NoError(t, err)
	assert.True(t, result.Success)
	// La commande n'est passée en PROCESSING qu'une seule fois
	assert.Len(t, gateway.processing, 1)
}

func TestVerifyExpiresStalePayment(t *testing.T) {
	o := testOrder(75.00)
	store := newFakeStore()
	gateway := newFakeOrderGateway(o)
	svc := newTestService(store, gateway, alwaysConfirm{})

	p, _, err := svc.Create(context.Background(), o.ID)
	require.NoError(t, err)

	// 25 heures plus tard, même un virement confirmé ne passe plus
	svc.now = func() time.Time { return p.CreatedAt.Add(25 * time.Hour) }

	result, err := svc.VerifyByReference(context.Background(), p.ReferenceCode)
	require.NoError(t, err)
	assert.False(t, result.Success)

	stored, _ := store.GetByID(context.Background(), p.ID)
	assert.Equal(t, models.PaymentFailed, stored.Status)
	assert.Empty(t, gateway.processing)

	// Une relecture ultérieure garde le message d'expiration
	again, err := svc.VerifyByReference(context.Background(), p.ReferenceCode)
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.Equal(t, msgExpired, again.Message)
}

func TestVerifyRejectedPaymentMentionsRejection(t *testing.T) {
	o := testOrder(75.00)
	store := newFakeStore()
	gateway := newFakeOrderGateway(o)
	svc := newTestService(store, gateway, alwaysConfirm{})

	p, _, err := svc.Create(context.Background(), o.ID)
	require.NoError(t, err)

	_, err = svc.ManualResolve(context.Background(), p.ID, ActionReject, "virement jamais reçu", "admin@wave.mn")
	require.NoError(t, err)

	// Le client qui revérifie un paiement rejeté ne doit pas lire un message
	// d'expiration
	result, err := svc.VerifyByReference(context.Background(), p.ReferenceCode)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, msgRejected, result.Message)
	require.NotNil(t, result.Payment)
	assert.Equal(t, models.PaymentFailed, result.Payment.Status)
}

func TestVerifyJustUnderExpiryStillWorks(t *testing.T) {
	o := testOrder(75.00)
	store := newFakeStore()
	svc := newTestService(store, newFakeOrderGateway(o), alwaysConfirm{})

	p, _, err := svc.Create(context.Background(), o.ID)
	require.NoError(t, err)

	svc.now = func() time.Time { return p.CreatedAt.Add(paymentExpiry - time.Minute) }

	result, err := svc.VerifyByReference(context.Background(), p.ReferenceCode)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestManualVerifyConfirmsPaymentAndLogs(t *testing.T) {
	o := testOrder(120.00)
	store := newFakeStore()
	gateway := newFakeOrderGateway(o)
	svc := newTestService(store, gateway, nil)

	p, _, err := svc.Create(context.Background(), o.ID)
	require.NoError(t, err)

	resolved, err := svc.ManualResolve(context.Background(), p.ID, ActionVerify, "virement reçu le 01/09", "admin@wavefashion.mn")
	require.NoError(t, err)

	assert.Equal(t, models.PaymentVerified, resolved.Status)
	require.NotNil(t, resolved.VerifiedAt)
	assert.Equal(t, []gocql.UUID{o.ID}, gateway.processing)
	assert.Empty(t, gateway.cancelled)

	require.Len(t, store.logs, 1)
	entry := store.logs[0]
	assert.Equal(t, "MANUAL_VERIFY", entry.Action)
	assert.Equal(t, p.ID, entry.PaymentID)

	var details map[string]string
	require.NoError(t, json.Unmarshal([]byte(entry.Details), &details))
	assert.Equal(t, "virement reçu le 01/09", details["note"])
	assert.Equal(t, "admin@wavefashion.mn", details["admin"])
	assert.Equal(t, "manual_admin_verification", details["method"])
}

func TestManualRejectCancelsOrderAndLogs(t *testing.T) {
	o := testOrder(120.00)
	store := newFakeStore()
	gateway := newFakeOrderGateway(o)
	svc := newTestService(store, gateway, nil)

	p, _, err := svc.Create(context.Background(), o.ID)
	require.NoError(t, err)

	resolved, err := svc.ManualResolve(context.Background(), p.ID, ActionReject, "aucun virement reçu", "admin@wavefashion.mn")
	require.NoError(t, err)

	assert.Equal(t, models.PaymentFailed, resolved.Status)
	assert.Nil(t, resolved.VerifiedAt)
	assert.Equal(t, []gocql.UUID{o.ID}, gateway.cancelled)
	assert.Empty(t, gateway.processing)

	require.Len(t, store.logs, 1)
	assert.Equal(t, "MANUAL_REJECT", store.logs[0].Action)
}

func TestManualResolveRejectsAlreadyResolvedPayment(t *testing.T) {
	o := testOrder(120.00)
	store := newFakeStore()
	gateway := newFakeOrderGateway(o)
	svc := newTestService(store, gateway, nil)

	p, _, err := svc.Create(context.Background(), o.ID)
	require.NoError(t, err)

	_, err = svc.ManualResolve(context.Background(), p.ID, ActionVerify, "", "admin@wavefashion.mn")
	require.NoError(t, err)

	_, err = svc.ManualResolve(context.Background(), p.ID, ActionReject, "", "admin@wavefashion.mn")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	// Un seul passage en PROCESSING, aucune annulation, un seul log
	assert.Len(t, gateway.processing, 1)
	assert.Empty(t, gateway.cancelled)
	assert.Len(t, store.logs, 1)
}

func TestManualResolveRejectsUnknownAction(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeOrderGateway(), nil)

	_, err := svc.ManualResolve(context.Background(), gocql.TimeUUID(), "approve", "", "admin@wavefashion.mn")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestListFiltersByStatus(t *testing.T) {
	orderA, orderB := testOrder(10), testOrder(20)
	store := newFakeStore()
	gateway := newFakeOrderGateway(orderA, orderB)
	svc := newTestService(store, gateway, nil)

	pa, _, err := svc.Create(context.Background(), orderA.ID)
	require.NoError(t, err)
	_, _, err = svc.Create(context.Background(), orderB.ID)
	require.NoError(t, err)

	_, err = svc.ManualResolve(context.Background(), pa.ID, ActionVerify, "", "admin@wavefashion.mn")
	require.NoError(t, err)

	pending, err := svc.List(context.Background(), models.PaymentPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
