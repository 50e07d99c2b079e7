package user

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"wave_back_end/internal/database"
	"wave_back_end/internal/models"
	"wave_back_end/internal/utils"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register crée un compte client. L'unicité de l'email repose sur une
// insertion conditionnelle dans users_by_email.
func Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email, nom et mot de passe (8 caractères min) requis"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Base de données indisponible"})
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		log.Printf("❌ Hachage du mot de passe échoué: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du compte"})
		return
	}

	userID := gocql.TimeUUID()

	var existingEmail string
	var existingID gocql.UUID
	applied, err := session.Query(`
		INSERT INTO users_by_email (email, user_id) VALUES (?, ?) IF NOT EXISTS`,
		email, userID).WithContext(c.Request.Context()).
		ScanCAS(&existingEmail, &existingID)
	if err != nil {
		log.Printf("❌ Réservation d'email échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du compte"})
		return
	}
	if !applied {
		c.JSON(http.StatusConflict, gin.H{"error": "Un compte existe déjà avec cet email"})
		return
	}

	now := time.Now()
	if err := session.Query(`
		INSERT INTO users (user_id, email, password, name, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, email, hashed, req.Name, models.RoleUser, now).
		WithContext(c.Request.Context()).Exec(); err != nil {
		log.Printf("❌ Insertion utilisateur échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du compte"})
		return
	}

	u := models.User{
		ID:        userID.String(),
		Email:     email,
		Name:      req.Name,
		Role:      models.RoleUser,
		CreatedAt: now,
	}

	token, err := utils.GenerateJWT(u)
	if err != nil {
		log.Printf("❌ Génération du token échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du compte"})
		return
	}

	log.Printf("👤 Compte créé: %s", email)
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": u})
}

// Login authentifie un client et retourne un token JWT valable 24h
func Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email et mot de passe requis"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var userID gocql.UUID
	q := database.GetPreparedGetUserByEmail()
	if q == nil {
		session, err := database.GetUsersSession()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Base de données indisponible"})
			return
		}
		q = session.Query(`SELECT user_id FROM users_by_email WHERE email = ?`)
	}
	if err := q.Bind(email).WithContext(c.Request.Context()).Scan(&userID); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	u, err := fetchUser(c, userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	ok, err := utils.VerifyPassword(req.Password, u.Password)
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	token, err := utils.GenerateJWT(u)
	if err != nil {
		log.Printf("❌ Génération du token échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la connexion"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": u})
}

// Me retourne le profil du client connecté
func Me(c *gin.Context) {
	userID, err := gocql.ParseUUID(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session invalide"})
		return
	}

	u, err := fetchUser(c, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}

	u.OrderCount = countOrders(c, u.Email)
	u.ReviewCount = countReviews(c, u.ID)

	c.JSON(http.StatusOK, gin.H{"user": u})
}

func countOrders(c *gin.Context, email string) int {
	session, err := database.GetOrdersSession()
	if err != nil {
		return 0
	}

	var count int
	if err := session.Query(`SELECT COUNT(*) FROM orders_by_email WHERE customer_email = ?`,
		strings.ToLower(email)).WithContext(c.Request.Context()).Scan(&count); err != nil {
		return 0
	}
	return count
}

func countReviews(c *gin.Context, userID string) int {
	session, err := database.GetProductsSession()
	if err != nil {
		return 0
	}

	var count int
	if err := session.Query(`SELECT COUNT(*) FROM reviews_by_user_product WHERE user_id = ?`,
		userID).WithContext(c.Request.Context()).Scan(&count); err != nil {
		return 0
	}
	return count
}

func fetchUser(c *gin.Context, userID gocql.UUID) (models.User, error) {
	q := database.GetPreparedGetUserByID()
	if q == nil {
		session, err := database.GetUsersSession()
		if err != nil {
			return models.User{}, err
		}
		q = session.Query(`SELECT email, password, name, role, created_at FROM users WHERE user_id = ?`)
	}

	var u models.User
	if err := q.Bind(userID).WithContext(c.Request.Context()).
		Scan(&u.Email, &u.Password, &u.Name, &u.Role, &u.CreatedAt); err != nil {
		return models.User{}, err
	}
	u.ID = userID.String()
	return u, nil
}
