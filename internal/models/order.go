package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts possibles d'une commande
const (
	OrderPending    = "PENDING"
	OrderProcessing = "PROCESSING"
	OrderShipped    = "SHIPPED"
	OrderDelivered  = "DELIVERED"
	OrderCancelled  = "CANCELLED"
)

var ValidOrderStatuses = map[string]bool{
	OrderPending:    true,
	OrderProcessing: true,
	OrderShipped:    true,
	OrderDelivered:  true,
	OrderCancelled:  true,
}

type Order struct {
	ID            gocql.UUID  `json:"id" db:"order_id"`
	OrderNumber   string      `json:"orderNumber" db:"order_number"`
	CustomerName  string      `json:"customerName" db:"customer_name"`
	CustomerEmail string      `json:"customerEmail" db:"customer_email"`
	CustomerPhone string      `json:"customerPhone,omitempty" db:"customer_phone"`
	Address       string      `json:"address" db:"address"`
	City          string      `json:"city" db:"city"`
	State         string      `json:"state,omitempty" db:"state"`
	ZipCode       string      `json:"zipCode,omitempty" db:"zip_code"`
	Country       string      `json:"country" db:"country"`
	Total         float64     `json:"total" db:"total"`
	Status        string      `json:"status" db:"status"`
	Items         []OrderItem `json:"items"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time   `json:"updatedAt" db:"updated_at"`
}

// OrderItem fige le prix unitaire au moment de la commande
type OrderItem struct {
	ID           gocql.UUID `json:"id" db:"item_id"`
	ProductID    gocql.UUID `json:"productId" db:"product_id"`
	Quantity     int        `json:"quantity" db:"quantity"`
	Price        float64    `json:"price" db:"price"`
	ProductName  string     `json:"productName,omitempty"`
	ProductImage string     `json:"productImage,omitempty"`
}
