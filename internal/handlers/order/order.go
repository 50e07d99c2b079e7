package order

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"wave_back_end/internal/models"
	ordersvc "wave_back_end/internal/order"
	"wave_back_end/internal/utils"
)

// Handler expose le cycle de vie des commandes en HTTP
type Handler struct {
	svc *ordersvc.Service
}

func NewHandler(svc *ordersvc.Service) *Handler {
	return &Handler{svc: svc}
}

func isAdmin(c *gin.Context) bool {
	return c.GetString("role") == models.RoleAdmin
}

// Create traite un checkout : validation, réservation de stock, création
func (h *Handler) Create(c *gin.Context) {
	var req ordersvc.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données de commande invalides: " + err.Error()})
		return
	}

	o, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		var insufficient *ordersvc.InsufficientInventoryError
		switch {
		case errors.As(err, &insufficient):
			c.JSON(http.StatusBadRequest, gin.H{"error": insufficient.Error()})
		case errors.Is(err, ordersvc.ErrProductUnavailable):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Printf("❌ Création de commande échouée: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création de la commande"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Commande créée avec succès", "order": o})
}

// List retourne les commandes du client connecté ; un admin voit tout et peut
// filtrer par statut ou par email
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	f := ordersvc.ListFilter{
		Status:    c.Query("status"),
		Page:      page,
		Limit:     limit,
		SortBy:    c.DefaultQuery("sortBy", "createdAt"),
		SortOrder: c.DefaultQuery("sortOrder", "desc"),
	}

	if isAdmin(c) {
		f.Email = c.Query("email")
	} else {
		f.Email = c.GetString("email")
	}

	if f.Status != "" && !models.ValidOrderStatuses[f.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut de filtre invalide"})
		return
	}

	orders, total, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		log.Printf("❌ Lecture des commandes échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des commandes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"pagination": gin.H{
			"page":       f.Page,
			"limit":      f.Limit,
			"total":      total,
			"totalPages": (total + f.Limit - 1) / f.Limit,
		},
	})
}

// Get retourne une commande avec ses articles
func (h *Handler) Get(c *gin.Context) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	o, err := h.svc.Get(c.Request.Context(), id, c.GetString("email"), isAdmin(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": o})
}

// Update applique une mise à jour partielle (admin). Un changement de statut
// déclenche un email de suivi au client.
func (h *Handler) Update(c *gin.Context) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	var req ordersvc.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	o, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if req.Status != nil {
		go func(o models.Order, status string) {
			if err := utils.SendOrderStatusEmail(o, status); err != nil {
				log.Printf("⚠️ Email de suivi non envoyé pour %s: %v", o.OrderNumber, err)
			}
		}(o, *req.Status)
	}

	c.JSON(http.StatusOK, gin.H{"order": o})
}

// Cancel annule une commande et restaure le stock
func (h *Handler) Cancel(c *gin.Context) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	o, err := h.svc.Cancel(c.Request.Context(), id, c.GetString("email"), isAdmin(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": o, "message": "Commande annulée, stock restauré"})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ordersvc.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
	case errors.Is(err, ordersvc.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
	case errors.Is(err, ordersvc.ErrNotCancellable):
		c.JSON(http.StatusConflict, gin.H{"error": "Une commande expédiée ou livrée ne peut pas être annulée"})
	case errors.Is(err, ordersvc.ErrAlreadyCancelled):
		c.JSON(http.StatusConflict, gin.H{"error": "Commande déjà annulée"})
	case errors.Is(err, ordersvc.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut invalide"})
	default:
		log.Printf("❌ Opération sur commande échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
	}
}
