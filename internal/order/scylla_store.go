package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"wave_back_end/internal/database"
	"wave_back_end/internal/models"
)

// ErrInventoryConflict : la décrémentation conditionnelle a épuisé ses
// tentatives sans trouver assez de stock
var ErrInventoryConflict = errors.New("conflit de stock")

const inventoryRetryAttempts = 5

// ScyllaProductStore lit le catalogue et ajuste le stock via des transactions
// légères (LWT) dans ks_products
type ScyllaProductStore struct{}

func NewScyllaProductStore() *ScyllaProductStore {
	return &ScyllaProductStore{}
}

func (s *ScyllaProductStore) GetActiveByIDs(ctx context.Context, ids []gocql.UUID) (map[gocql.UUID]models.Product, error) {
	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	products := make(map[gocql.UUID]models.Product, len(ids))
	for _, id := range ids {
		var p models.Product
		var imagesJSON []string
		err := session.Query(`
			SELECT product_id, name, description, price, images, category, inventory, is_active
			FROM products WHERE product_id = ?`, id).WithContext(ctx).
			Scan(&p.ID, &p.Name, &p.Description, &p.Price, &imagesJSON, &p.Category, &p.Inventory, &p.IsActive)
		if err == gocql.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lecture produit %s: %w", id, err)
		}
		if !p.IsActive {
			continue
		}
		p.Images = imagesJSON
		products[id] = p
	}

	return products, nil
}

// ReserveInventory décrémente le stock avec un UPDATE ... IF inventory = ?.
// La condition garantit qu'aucune réservation concurrente n'est perdue ; en
// cas de course on relit et on réessaie, dans une limite de tentatives.
func (s *ScyllaProductStore) ReserveInventory(ctx context.Context, productID gocql.UUID, quantity int) error {
	return s.adjustInventory(ctx, productID, -quantity)
}

func (s *ScyllaProductStore) RestoreInventory(ctx context.Context, productID gocql.UUID, quantity int) error {
	return s.adjustInventory(ctx, productID, quantity)
}

func (s *ScyllaProductStore) adjustInventory(ctx context.Context, productID gocql.UUID, delta int) error {
	session, err := database.GetProductsSession()
	if err != nil {
		return err
	}

	for attempt := 0; attempt < inventoryRetryAttempts; attempt++ {
		var current int
		err := session.Query(`SELECT inventory FROM products WHERE product_id = ?`, productID).
			WithContext(ctx).Scan(&current)
		if err != nil {
			return fmt.Errorf("lecture stock %s: %w", productID, err)
		}

		next := current + delta
		if next < 0 {
			return ErrInventoryConflict
		}

		applied, err := session.Query(`
			UPDATE products SET inventory = ?, updated_at = ?
			WHERE product_id = ? IF inventory = ?`,
			next, time.Now(), productID, current).WithContext(ctx).
			ScanCAS(&current)
		if err != nil {
			return fmt.Errorf("mise à jour stock %s: %w", productID, err)
		}
		if applied {
			return nil
		}
		// Le stock a bougé entre la lecture et l'écriture, on réessaie
	}

	return ErrInventoryConflict
}

// ScyllaOrderStore persiste les commandes dans ks_orders. Les items sont
// dénormalisés en JSON dans la ligne de commande, avec une vue secondaire
// orders_by_email pour l'historique client.
type ScyllaOrderStore struct{}

func NewScyllaOrderStore() *ScyllaOrderStore {
	return &ScyllaOrderStore{}
}

func (s *ScyllaOrderStore) Insert(ctx context.Context, o models.Order) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("sérialisation des items: %w", err)
	}

	if err := session.Query(`
		INSERT INTO orders (order_id, order_number, customer_name, customer_email, customer_phone,
			address, city, state, zip_code, country, total, status, items, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.OrderNumber, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.Address, o.City, o.State, o.ZipCode, o.Country, o.Total, o.Status,
		string(itemsJSON), o.CreatedAt, o.UpdatedAt).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("insertion commande: %w", err)
	}

	if err := session.Query(`
		INSERT INTO orders_by_email (customer_email, created_at, order_id)
		VALUES (?, ?, ?)`,
		o.CustomerEmail, o.CreatedAt, o.ID).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("insertion index email: %w", err)
	}

	return nil
}

func (s *ScyllaOrderStore) GetByID(ctx context.Context, id gocql.UUID) (models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return models.Order{}, err
	}

	var o models.Order
	var itemsJSON string
	err = session.Query(`
		SELECT order_id, order_number, customer_name, customer_email, customer_phone,
			address, city, state, zip_code, country, total, status, items, created_at, updated_at
		FROM orders WHERE order_id = ?`, id).WithContext(ctx).
		Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
			&o.Address, &o.City, &o.State, &o.ZipCode, &o.Country, &o.Total, &o.Status,
			&itemsJSON, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return models.Order{}, err
	}

	if itemsJSON != "" {
		if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
			return models.Order{}, fmt.Errorf("désérialisation des items: %w", err)
		}
	}

	return o, nil
}

func (s *ScyllaOrderStore) Update(ctx context.Context, o models.Order) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("sérialisation des items: %w", err)
	}

	return session.Query(`
		UPDATE orders SET customer_name = ?, customer_email = ?, customer_phone = ?,
			address = ?, city = ?, state = ?, zip_code = ?, country = ?,
			total = ?, status = ?, items = ?, updated_at = ?
		WHERE order_id = ?`,
		o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.Address, o.City, o.State, o.ZipCode, o.Country,
		o.Total, o.Status, string(itemsJSON), o.UpdatedAt, o.ID).
		WithContext(ctx).Exec()
}

func (s *ScyllaOrderStore) SetStatus(ctx context.Context, id gocql.UUID, from, to string) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, err
	}

	var current string
	applied, err := session.Query(`
		UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ? IF status = ?`,
		to, time.Now(), id, from).WithContext(ctx).ScanCAS(&current)
	if err != nil {
		return false, fmt.Errorf("transition de statut: %w", err)
	}
	return applied, nil
}

func (s *ScyllaOrderStore) ListAll(ctx context.Context) ([]models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`
		SELECT order_id, order_number, customer_name, customer_email, customer_phone,
			address, city, state, zip_code, country, total, status, items, created_at, updated_at
		FROM orders`).WithContext(ctx).Iter()

	var orders []models.Order
	var o models.Order
	var itemsJSON string
	for iter.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.Address, &o.City, &o.State, &o.ZipCode, &o.Country, &o.Total, &o.Status,
		&itemsJSON, &o.CreatedAt, &o.UpdatedAt) {
		if itemsJSON != "" {
			if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
				continue
			}
		}
		orders = append(orders, o)
		o = models.Order{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture des commandes: %w", err)
	}

	return orders, nil
}

func (s *ScyllaOrderStore) ListByEmail(ctx context.Context, email string) ([]models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`
		SELECT order_id FROM orders_by_email WHERE customer_email = ?`, email).
		WithContext(ctx).Iter()

	var ids []gocql.UUID
	var id gocql.UUID
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("lecture index email: %w", err)
	}

	orders := make([]models.Order, 0, len(ids))
	for _, orderID := range ids {
		o, err := s.GetByID(ctx, orderID)
		if err != nil {
			continue
		}
		orders = append(orders, o)
	}

	return orders, nil
}
