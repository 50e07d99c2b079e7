package admin

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"wave_back_end/internal/database"
)

type updateUserRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=USER ADMIN"`
}

// UpdateUserRole change le rôle d'un compte (promotion ou rétrogradation)
func (h *Handler) UpdateUserRole(c *gin.Context) {
	userID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant utilisateur invalide"})
		return
	}

	var req updateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rôle USER ou ADMIN attendu"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Base de données indisponible"})
		return
	}

	var email string
	if err := session.Query(`SELECT email FROM users WHERE user_id = ?`, userID).
		WithContext(c.Request.Context()).Scan(&email); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}

	if err := session.Query(`UPDATE users SET role = ? WHERE user_id = ?`, req.Role, userID).
		WithContext(c.Request.Context()).Exec(); err != nil {
		log.Printf("❌ Mise à jour du rôle échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour du rôle"})
		return
	}

	log.Printf("🔑 Rôle de %s changé en %s", email, req.Role)
	c.JSON(http.StatusOK, gin.H{"message": "Rôle mis à jour", "role": req.Role})
}

// DeleteUser supprime un compte sans historique de commandes. Un compte avec
// des commandes est conservé pour garder l'historique cohérent.
func (h *Handler) DeleteUser(c *gin.Context) {
	userID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant utilisateur invalide"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Base de données indisponible"})
		return
	}

	var email string
	if err := session.Query(`SELECT email FROM users WHERE user_id = ?`, userID).
		WithContext(c.Request.Context()).Scan(&email); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}

	if orders, err := h.orders.ListByEmail(c.Request.Context(), strings.ToLower(email)); err == nil && len(orders) > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Impossible de supprimer un compte avec des commandes"})
		return
	}

	if err := session.Query(`DELETE FROM users WHERE user_id = ?`, userID).
		WithContext(c.Request.Context()).Exec(); err != nil {
		log.Printf("❌ Suppression utilisateur échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la suppression"})
		return
	}
	if err := session.Query(`DELETE FROM users_by_email WHERE email = ?`, email).
		WithContext(c.Request.Context()).Exec(); err != nil {
		log.Printf("⚠️ Nettoyage de l'index email échoué pour %s: %v", email, err)
	}

	log.Printf("🗑️ Compte supprimé: %s", email)
	c.JSON(http.StatusOK, gin.H{"message": "Compte supprimé"})
}
