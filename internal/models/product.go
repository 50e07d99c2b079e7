package models

import (
	"time"

	"github.com/gocql/gocql"
)

type Product struct {
	ID          gocql.UUID `json:"id" db:"product_id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Price       float64    `json:"price" db:"price"`
	Images      []string   `json:"images" db:"images"` // La première image est l'image principale
	Category    string     `json:"category" db:"category"`
	Features    []string   `json:"features" db:"features"`
	Inventory   int        `json:"inventory" db:"inventory"`
	IsActive    bool       `json:"isActive" db:"is_active"`
	AvgRating   float64    `json:"avgRating"`
	ReviewCount int        `json:"reviewCount"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}
