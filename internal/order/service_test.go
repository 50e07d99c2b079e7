package order

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wave_back_end/internal/models"
)

type fakeProductStore struct {
	products    map[gocql.UUID]models.Product
	failReserve map[gocql.UUID]bool
}

func newFakeProductStore(products ...models.Product) *fakeProductStore {
	s := &fakeProductStore{
		products:    make(map[gocql.UUID]models.Product),
		failReserve: make(map[gocql.UUID]bool),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeProductStore) GetActiveByIDs(ctx context.Context, ids []gocql.UUID) (map[gocql.UUID]models.Product, error) {
	found := make(map[gocql.UUID]models.Product)
	for _, id := range ids {
		if p, ok := s.products[id]; ok && p.IsActive {
			found[id] = p
		}
	}
	return found, nil
}

func (s *fakeProductStore) ReserveInventory(ctx context.Context, productID gocql.UUID, quantity int) error {
	if s.failReserve[productID] {
		return ErrInventoryConflict
	}
	p := s.products[productID]
	if p.Inventory < quantity {
		return ErrInventoryConflict
	}
	p.Inventory -= quantity
	s.products[productID] = p
	return nil
}

func (s *fakeProductStore) RestoreInventory(ctx context.Context, productID gocql.UUID, quantity int) error {
	p := s.products[productID]
	p.Inventory += quantity
	s.products[productID] = p
	return nil
}

type fakeOrderStore struct {
	orders    map[gocql.UUID]models.Order
	insertErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[gocql.UUID]models.Order)}
}

func (s *fakeOrderStore) Insert(ctx context.Context, o models.Order) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.orders[o.ID] = o
	return nil
}

func (s *fakeOrderStore) GetByID(ctx context.Context, id gocql.UUID) (models.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, gocql.ErrNotFound
	}
	return o, nil
}

func (s *fakeOrderStore) Update(ctx context.Context, o models.Order) error {
	s.orders[o.ID] = o
	return nil
}

func (s *fakeOrderStore) SetStatus(ctx context.Context, id gocql.UUID, from, to string) (bool, error) {
	o, ok := s.orders[id]
	if !ok {
		return false, gocql.ErrNotFound
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	s.orders[id] = o
	return true, nil
}

func (s *fakeOrderStore) ListAll(ctx context.Context) ([]models.Order, error) {
	orders := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, o)
	}
	return orders, nil
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

func testProduct(name string, inventory int, price float64) models.Product {
	return models.Product{
		ID:        gocql.TimeUUID(),
		Name:      name,
		Price:     price,
		Category:  "vestes",
		Inventory: inventory,
		IsActive:  true,
		Images:    []string{"https://img.test/" + name + ".jpg"},
	}
}

func testCreateRequest(items ...CreateItem) CreateRequest {
	total := 0.0
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return CreateRequest{
		CustomerName:  "Bat Erdene",
		CustomerEmail: "Bat@Example.MN",
		ShippingAddress: ShippingAddress{
			Address: "Peace Avenue 17",
			City:    "Ulaanbaatar",
			Country: "Mongolia",
		},
		Items: items,
		Total: total,
	}
}

func TestCreateReservesInventory(t *testing.T) {
	jacket := testProduct("Veste denim", 10, 89.90)
	products := newFakeProductStore(jacket)
	orders := newFakeOrderStore()
	svc := NewService(orders, products)

	req := testCreateRequest(CreateItem{ProductID: jacket.ID.String(), Quantity: 3, Price: 89.90})
	o, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.OrderPending, o.Status)
	assert.Equal(t, "bat@example.mn", o.CustomerEmail)
	assert.True(t, strings.HasPrefix(o.OrderNumber, "ORD-"))
	assert.Equal(t, 7, products.products[jacket.ID].Inventory)

	require.Len(t, o.Items, 1)
	assert.Equal(t, 89.90, o.Items[0].Price)
	assert.Equal(t, "Veste denim", o.Items[0].ProductName)

	stored, err := orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, stored.OrderNumber)
}

func TestCreateRejectsInsufficientInventory(t *testing.T) {
	jacket := testProduct("Veste denim", 5, 89.90)
	products := newFakeProductStore(jacket)
	svc := NewService(newFakeOrderStore(), products)

	req := testCreateRequest(CreateItem{ProductID: jacket.ID.String(), Quantity: 6, Price: 89.90})
	_, err := svc.Create(context.Background(), req)

	var insufficient *InsufficientInventoryError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "Veste denim", insufficient.ProductName)
	// Rien n'a été décrémenté
	assert.Equal(t, 5, products.products[jacket.ID].Inventory)
}

func TestCreateRejectsZeroStockProduct(t *testing.T) {
	soldOut := testProduct("Écharpe laine", 0, 25.00)
	products := newFakeProductStore(soldOut)
	svc := NewService(newFakeOrderStore(), products)

	req := testCreateRequest(CreateItem{ProductID: soldOut.ID.String(), Quantity: 1, Price: 25.00})
	_, err := svc.Create(context.Background(), req)

	var insufficient *InsufficientInventoryError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "Écharpe laine", insufficient.ProductName)
}

func TestCreateRejectsInactiveProduct(t *testing.T) {
	hidden := testProduct("Ancien modèle", 10, 49.90)
	hidden.IsActive = false
	svc := NewService(newFakeOrderStore(), newFakeProductStore(hidden))

	req := testCreateRequest(CreateItem{ProductID: hidden.ID.String(), Quantity: 1, Price: 49.90})
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestCreateCompensatesPartialReservation(t *testing.T) {
	jacket := testProduct("Veste denim", 10, 89.90)
	scarf := testProduct("Écharpe laine", 10, 25.00)
	products := newFakeProductStore(jacket, scarf)
	// La réservation du second article échoue après coup (course concurrente)
	products.failReserve[scarf.ID] = true
	orders := newFakeOrderStore()
	svc := NewService(orders, products)

	req := testCreateRequest(
		CreateItem{ProductID: jacket.ID.String(), Quantity: 2, Price: 89.90},
		CreateItem{ProductID: scarf.ID.String(), Quantity: 1, Price: 25.00},
	)
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)

	// Le stock du premier article a été restauré, aucune commande créée
	assert.Equal(t, 10, products.products[jacket.ID].Inventory)
	assert.Empty(t, orders.orders)
}

func TestCreateRestoresInventoryWhenInsertFails(t *testing.T) {
	jacket := testProduct("Veste denim", 10, 89.90)
	products := newFakeProductStore(jacket)
	orders := newFakeOrderStore()
	orders.insertErr = errors.New("écriture refusée")
	svc := NewService(orders, products)

	req := testCreateRequest(CreateItem{ProductID: jacket.ID.String(), Quantity: 4, Price: 89.90})
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, 10, products.products[jacket.ID].Inventory)
}

func TestCancelRestoresInventory(t *testing.T) {
	jacket := testProduct("Veste denim", 10, 89.90)
	products := newFakeProductStore(jacket)
	orders := newFakeOrderStore()
	svc := NewService(orders, products)

	req := testCreateRequest(CreateItem{ProductID: jacket.ID.String(), Quantity: 3, Price: 89.90})
	o, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 7, products.products[jacket.ID].Inventory)

	cancelled, err := svc.Cancel(context.Background(), o.ID, "bat@example.mn", false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.Equal(t, 10, products.products[jacket.ID].Inventory)
}

func TestCancelIsNotRepeatable(t *testing.T) {
	jacket := testProduct("Veste denim", 10, 89.90)
	products := newFakeProductStore(jacket)
	orders := newFakeOrderStore()
	svc := NewService(orders, products)

	req := testCreateRequest(CreateItem{ProductID: jacket.ID.String(), Quantity: 3, Price: 89.90})
	o, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), o.ID, "bat@example.mn", false)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), o.ID, "bat@example.mn", false)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	// Le stock n'est restauré qu'une seule fois
	assert.Equal(t, 10, products.products[jacket.ID].Inventory)
}

func TestCancelRejectsShippedAndDelivered(t *testing.T) {
	orders := newFakeOrderStore()
	svc := NewService(orders, newFakeProductStore())

	for _, status := range []string{models.OrderShipped, models.OrderDelivered} {
		o := models.Order{
			ID:            gocql.TimeUUID(),
			CustomerEmail: "bat@example.mn",
			Status:        status,
		}
		orders.orders[o.ID] = o

		_, err := svc.Cancel(context.Background(), o.ID, "bat@example.mn", false)
		assert.ErrorIs(t, err, ErrNotCancellable, "statut %s", status)
	}
}

func TestCancelRejectsOtherCustomers(t *testing.T) {
	orders := newFakeOrderStore()
	svc := NewService(orders, newFakeProductStore())

	o := models.Order{
		ID:            gocql.TimeUUID(),
		CustomerEmail: "bat@example.mn",
		Status:        models.OrderPending,
	}
	orders.orders[o.ID] = o

	_, err := svc.Cancel(context.Background(), o.ID, "autre@example.mn", false)
	assert.ErrorIs(t, err, ErrForbidden)

	// Un admin peut annuler la commande d'un autre client
	_, err = svc.Cancel(context.Background(), o.ID, "admin@example.mn", true)
	assert.NoError(t, err)
}

func TestCancelForPaymentIgnoresAlreadyCancelled(t *testing.T) {
	orders := newFakeOrderStore()
	svc := NewService(orders, newFakeProductStore())

	o := models.Order{
		ID:     gocql.TimeUUID(),
		Status: models.OrderCancelled,
	}
	orders.orders[o.ID] = o

	assert.NoError(t, svc.CancelForPayment(context.Background(), o.ID))
}

func TestUpdateValidatesStatus(t *testing.T) {
	orders := newFakeOrderStore()
	svc := NewService(orders, newFakeProductStore())

	o := models.Order{ID: gocql.TimeUUID(), Status: models.OrderPending}
	orders.orders[o.ID] = o

	bogus := "EN_ROUTE"
	_, err := svc.Update(context.Background(), o.ID, UpdateRequest{Status: &bogus})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	shipped := models.OrderShipped
	updated, err := svc.Update(context.Background(), o.ID, UpdateRequest{Status: &shipped})
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, updated.Status)
}

func TestListFiltersSortsAndPaginates(t *testing.T) {
	orders := newFakeOrderStore()
	svc := NewService(orders, newFakeProductStore())

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		status := models.OrderPending
		if i%2 == 1 {
			status = models.OrderShipped
		}
		o := models.Order{
			ID:            gocql.TimeUUID(),
			CustomerEmail: "bat@example.mn",
			Status:        status,
			Total:         float64(10 * (i + 1)),
			CreatedAt:     base.Add(time.Duration(i) * time.Hour),
		}
		orders.orders[o.ID] = o
	}

	// Filtre par statut
	page, total, err := svc.List(context.Background(), ListFilter{Status: models.OrderShipped, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, o := range page {
		assert.Equal(t, models.OrderShipped, o.Status)
	}

	// Tri par total croissant, pagination de 2
	page, total, err = svc.List(context.Background(), ListFilter{Page: 2, Limit: 2, SortBy: "total", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, 30.0, page[0].Total)
	assert.Equal(t, 40.0, page[1].Total)

	// Page hors bornes
	page, total, err = svc.List(context.Background(), ListFilter{Page: 9, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, page)
}

func TestGenerateOrderNumberFormat(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	n := generateOrderNumber(now)

	parts := strings.Split(n, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "ORD", parts[0])
	assert.Equal(t, "1788256800000", parts[1])
	assert.Len(t, parts[2], 9)
	assert.Equal(t, strings.ToUpper(parts[2]), parts[2])
}
