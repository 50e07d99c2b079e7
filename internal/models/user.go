package models

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name,omitempty"`
	Password    string    `json:"-"`
	Role        string    `json:"role,omitempty"`
	OrderCount  int       `json:"orderCount"`  // Dérivé, jamais stocké
	ReviewCount int       `json:"reviewCount"` // Dérivé, jamais stocké
	CreatedAt   time.Time `json:"createdAt"`
}
