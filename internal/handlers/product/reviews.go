package product

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"wave_back_end/internal/database"
	"wave_back_end/internal/models"
)

type createReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// GetReviews liste les avis d'un produit, du plus récent au plus ancien
func GetReviews(c *gin.Context) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant produit invalide"})
		return
	}

	reviews := fetchReviews(c, id)
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "total": len(reviews)})
}

// CreateReview enregistre l'avis d'un client authentifié. Un utilisateur ne
// peut noter un produit qu'une seule fois : la table reviews_by_user_product
// sert de verrou via IF NOT EXISTS.
func CreateReview(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant produit invalide"})
		return
	}

	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "La note doit être comprise entre 1 et 5"})
		return
	}

	userID := c.GetString("user_id")
	userEmail := c.GetString("email")

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Base de données indisponible"})
		return
	}

	// Le produit doit exister et être actif
	var isActive bool
	if err := session.Query(`SELECT is_active FROM products WHERE product_id = ?`, productID).
		WithContext(c.Request.Context()).Scan(&isActive); err != nil || !isActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	review := models.Review{
		ID:        gocql.TimeUUID(),
		ProductID: productID,
		UserID:    userID,
		UserName:  userEmail,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now(),
	}

	var existingUser string
	var existingProduct, existingReview gocql.UUID
	applied, err := session.Query(`
		INSERT INTO reviews_by_user_product (user_id, product_id, review_id)
		VALUES (?, ?, ?) IF NOT EXISTS`,
		userID, productID, review.ID).WithContext(c.Request.Context()).
		ScanCAS(&existingUser, &existingProduct, &existingReview)
	if err != nil {
		log.Printf("❌ Verrou d'avis échoué: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de l'enregistrement de l'avis"})
		return
	}
	if !applied {
		c.JSON(http.StatusConflict, gin.H{"error": "Vous avez déjà laissé un avis sur ce produit"})
		return
	}

	if err := session.Query(`
		INSERT INTO reviews_by_product (product_id, review_id, user_id, user_name, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		review.ProductID, review.ID, review.UserID, review.UserName,
		review.Rating, review.Comment, review.CreatedAt).
		WithContext(c.Request.Context()).Exec(); err != nil {
		log.Printf("❌ Insertion avis échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de l'enregistrement de l'avis"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"review": review})
}

func fetchReviews(c *gin.Context, productID gocql.UUID) []models.Review {
	session, err := database.GetProductsSession()
	if err != nil {
		return []models.Review{}
	}

	iter := session.Query(`
		SELECT product_id, review_id, user_id, user_name, rating, comment, created_at
		FROM reviews_by_product WHERE product_id = ?`, productID).
		WithContext(c.Request.Context()).Iter()

	reviews := []models.Review{}
	var r models.Review
	for iter.Scan(&r.ProductID, &r.ID, &r.UserID, &r.UserName, &r.Rating, &r.Comment, &r.CreatedAt) {
		reviews = append(reviews, r)
	}
	if err := iter.Close(); err != nil {
		log.Printf("⚠️ Lecture des avis échouée pour %s: %v", productID, err)
	}

	return reviews
}
