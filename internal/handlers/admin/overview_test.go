package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wave_back_end/internal/models"
	paymentsvc "wave_back_end/internal/payment"
)

type fakeOrderStore struct {
	orders []models.Order
}

func (s *fakeOrderStore) Insert(ctx context.Context, o models.Order) error {
	s.orders = append(s.orders, o)
	return nil
}

func (s *fakeOrderStore) GetByID(ctx context.Context, id gocql.UUID) (models.Order, error) {
	for _, o := range s.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return models.Order{}, gocql.ErrNotFound
}

func (s *fakeOrderStore) Update(ctx context.Context, o models.Order) error {
	for i := range s.orders {
		if s.orders[i].ID == o.ID {
			s.orders[i] = o
		}
	}
	return nil
}

func (s *fakeOrderStore) SetStatus(ctx context.Context, id gocql.UUID, from, to string) (bool, error) {
	for i := range s.orders {
		if s.orders[i].ID == id && s.orders[i].Status == from {
			s.orders[i].Status = to
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeOrderStore) ListAll(ctx context.Context) ([]models.Order, error) {
	return append([]models.Order(nil), s.orders...), nil
}

func (s *fakeOrderStore) ListByEmail(ctx context.Context, email string) ([]models.Order, error) {
	var orders []models.Order
	for _, o := range s.orders {
		if strings.EqualFold(o.CustomerEmail, email) {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

type emptyPaymentStore struct{}

func (emptyPaymentStore) ClaimReference(ctx context.Context, code string, paymentID gocql.UUID) (bool, error) {
	return true, nil
}
func (emptyPaymentStore) ReleaseReference(ctx context.Context, code string) error { return nil }
func (emptyPaymentStore) Insert(ctx context.Context, p models.Payment) (bool, gocql.UUID, error) {
	return true, gocql.UUID{}, nil
}
func (emptyPaymentStore) GetByID(ctx context.Context, id gocql.UUID) (models.Payment, error) {
	return models.Payment{}, gocql.ErrNotFound
}
func (emptyPaymentStore) GetByOrderID(ctx context.Context, orderID gocql.UUID) (models.Payment, error) {
	return models.Payment{}, gocql.ErrNotFound
}
func (emptyPaymentStore) GetByReference(ctx context.Context, code string) (models.Payment, error) {
	return models.Payment{}, gocql.ErrNotFound
}
func (emptyPaymentStore) Resolve(ctx context.Context, id gocql.UUID, status, note string, verifiedAt *time.Time) (bool, error) {
	return false, nil
}
func (emptyPaymentStore) AppendLog(ctx context.Context, l models.PaymentLog) error { return nil }
func (emptyPaymentStore) ListAll(ctx context.Context) ([]models.Payment, error)    { return nil, nil }

func analyticsRouter(orders *fakeOrderStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	payments := paymentsvc.NewService(emptyPaymentStore{}, nil, paymentsvc.ManualVerifier{})
	h := NewHandler(orders, payments)

	r := gin.New()
	r.GET("/api/admin/analytics", h.Analytics)
	return r
}

func customer(created time.Time, total float64, status, email string) models.Order {
	o := orderAt(created, total, status)
	o.CustomerEmail = email
	return o
}

func TestAnalyticsOverviewGrowthFields(t *testing.T) {
	// Premier jour du mois pour éviter les effets de bord du changement de mois
	now := time.Now()
	currentMonth := time.Date(now.Year(), now.Month(), 1, 12, 0, 0, 0, time.Local)
	previousMonth := currentMonth.AddDate(0, -1, 0)

	store := &fakeOrderStore{orders: []models.Order{
		customer(currentMonth, 120.00, models.OrderPending, "bat@example.mn"),
		customer(currentMonth, 80.00, models.OrderDelivered, "oyun@example.mn"),
		customer(previousMonth, 100.00, models.OrderDelivered, "bat@example.mn"),
		customer(currentMonth, 999.00, models.OrderCancelled, "saraa@example.mn"),
	}}

	r := analyticsRouter(store)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/analytics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Overview map[string]interface{} `json:"overview"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Overview)

	// Les commandes annulées ne comptent ni dans le CA ni dans les clients
	assert.Equal(t, float64(300), body.Overview["totalRevenue"])
	assert.Equal(t, float64(3), body.Overview["totalOrders"])
	assert.Equal(t, float64(2), body.Overview["totalCustomers"])

	// 200 ce mois-ci contre 100 le mois dernier
	assert.Equal(t, float64(100), body.Overview["revenueGrowth"])
	assert.Equal(t, float64(100), body.Overview["ordersGrowth"])

	// La croissance des inscriptions fait partie de l'aperçu, même sans
	// inscription sur la période
	require.Contains(t, body.Overview, "usersGrowth")
	assert.Equal(t, float64(0), body.Overview["usersGrowth"])

	require.Contains(t, body.Overview, "totalProducts")
	require.Contains(t, body.Overview, "pendingPayments")
}
