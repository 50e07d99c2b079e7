package admin

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"wave_back_end/internal/database"
)

// loadCategories associe chaque identifiant produit à sa catégorie, produits
// désactivés compris : les commandes historiques les référencent encore
func (h *Handler) loadCategories(c *gin.Context) map[string]string {
	categories := make(map[string]string)

	session, err := database.GetProductsSession()
	if err != nil {
		return categories
	}

	iter := session.Query(`SELECT product_id, category FROM products`).
		WithContext(c.Request.Context()).Iter()

	var id gocql.UUID
	var category string
	for iter.Scan(&id, &category) {
		categories[id.String()] = category
	}
	if err := iter.Close(); err != nil {
		log.Printf("⚠️ Lecture des catégories échouée: %v", err)
	}

	return categories
}

// countActiveProducts compte les produits actuellement en vente
func (h *Handler) countActiveProducts(ctx context.Context) int {
	session, err := database.GetProductsSession()
	if err != nil {
		return 0
	}

	iter := session.Query(`SELECT is_active FROM products`).WithContext(ctx).Iter()

	count := 0
	var isActive bool
	for iter.Scan(&isActive) {
		if isActive {
			count++
		}
	}
	if err := iter.Close(); err != nil {
		log.Printf("⚠️ Comptage des produits échoué: %v", err)
	}

	return count
}

// userRegistrationsByMonth compte les inscriptions du mois calendaire courant
// et du mois précédent, pour la croissance utilisateurs
func (h *Handler) userRegistrationsByMonth(ctx context.Context, now time.Time) (current, previous int) {
	session, err := database.GetUsersSession()
	if err != nil {
		return 0, 0
	}

	iter := session.Query(`SELECT created_at FROM users`).WithContext(ctx).Iter()

	cy, cm, _ := now.Date()
	py, pm, _ := now.AddDate(0, -1, 0).Date()
	var createdAt time.Time
	for iter.Scan(&createdAt) {
		y, m, _ := createdAt.Date()
		switch {
		case y == cy && m == cm:
			current++
		case y == py && m == pm:
			previous++
		}
	}
	if err := iter.Close(); err != nil {
		log.Printf("⚠️ Lecture des inscriptions échouée: %v", err)
	}

	return current, previous
}

// stockCounts compte les produits actifs en stock faible (< 5) ou épuisés
func (h *Handler) stockCounts(c *gin.Context) (lowStock, outOfStock int) {
	session, err := database.GetProductsSession()
	if err != nil {
		return 0, 0
	}

	iter := session.Query(`SELECT inventory, is_active FROM products`).
		WithContext(c.Request.Context()).Iter()

	var inventory int
	var isActive bool
	for iter.Scan(&inventory, &isActive) {
		if !isActive {
			continue
		}
		switch {
		case inventory == 0:
			outOfStock++
		case inventory < 5:
			lowStock++
		}
	}
	if err := iter.Close(); err != nil {
		log.Printf("⚠️ Lecture des stocks échouée: %v", err)
	}

	return lowStock, outOfStock
}

func (h *Handler) countUsers(ctx context.Context) int {
	session, err := database.GetUsersSession()
	if err != nil {
		return 0
	}

	var count int
	if err := session.Query(`SELECT COUNT(*) FROM users`).WithContext(ctx).Scan(&count); err != nil {
		log.Printf("⚠️ Comptage des utilisateurs échoué: %v", err)
		return 0
	}
	return count
}
