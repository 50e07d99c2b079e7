package payment

import (
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"wave_back_end/internal/models"
	ordersvc "wave_back_end/internal/order"
	paymentsvc "wave_back_end/internal/payment"
	"wave_back_end/internal/utils"
)

// Handler expose le cycle de vie des paiements par virement en HTTP
type Handler struct {
	svc    *paymentsvc.Service
	store  *paymentsvc.ScyllaStore
	orders *ordersvc.Service
}

func NewHandler(svc *paymentsvc.Service, store *paymentsvc.ScyllaStore, orders *ordersvc.Service) *Handler {
	return &Handler{svc: svc, store: store, orders: orders}
}

type createPaymentRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

type verifyPaymentRequest struct {
	ReferenceCode string `json:"referenceCode" binding:"required,len=5,numeric"`
}

type manualResolveRequest struct {
	PaymentID string `json:"paymentId" binding:"required"`
	Action    string `json:"action" binding:"required,oneof=verify reject"`
	Note      string `json:"note"`
}

// Create ouvre un paiement pour une commande et retourne les coordonnées
// bancaires avec le code de référence à inscrire dans le virement.
// Idempotent : rappeler avec la même commande retourne le paiement existant.
func (h *Handler) Create(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande requis"})
		return
	}

	orderID, err := gocql.ParseUUID(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	p, created, err := h.svc.Create(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, ordersvc.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
			return
		}
		log.Printf("❌ Création de paiement échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du paiement"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"payment": p})
}

// Status retourne l'état du paiement d'une commande
func (h *Handler) Status(c *gin.Context) {
	orderID, err := gocql.ParseUUID(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	p, err := h.svc.GetByOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Aucun paiement pour cette commande"})
		return
	}

	response := gin.H{"payment": p}
	if o, err := h.orders.Get(c.Request.Context(), orderID, "", true); err == nil {
		response["order"] = gin.H{
			"orderNumber":   o.OrderNumber,
			"status":        o.Status,
			"total":         o.Total,
			"customerEmail": o.CustomerEmail,
		}
	}

	c.JSON(http.StatusOK, response)
}

// TransferQR génère le QR code du virement (banque, compte, montant, code)
func (h *Handler) TransferQR(c *gin.Context) {
	orderID, err := gocql.ParseUUID(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	p, err := h.svc.GetByOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Aucun paiement pour cette commande"})
		return
	}

	png, err := utils.GenerateTransferQR(p.BankName, p.AccountNumber, p.AccountName, p.ReferenceCode, p.Amount)
	if err != nil {
		log.Printf("❌ Génération du QR échouée pour %s: %v", p.ReferenceCode, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la génération du QR code"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// Verify traite une demande de vérification côté client à partir du code de
// référence. Un échec métier (code inconnu, paiement expiré ou rejeté, virement
// non confirmé) répond 400 avec le détail dans le corps.
func (h *Handler) Verify(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Код 5 оронтой тоо байх ёстой"})
		return
	}

	result, err := h.svc.VerifyByReference(c.Request.Context(), req.ReferenceCode)
	if err != nil {
		log.Printf("❌ Vérification de paiement échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la vérification"})
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	c.JSON(status, result)
}

// AdminList retourne tous les paiements pour le back-office, enrichis du
// numéro de commande, avec filtre par statut
func (h *Handler) AdminList(c *gin.Context) {
	payments, err := h.svc.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		log.Printf("❌ Lecture des paiements échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des paiements"})
		return
	}

	// Les champs du paiement sont aplatis au premier niveau, le résumé de la
	// commande vient à côté
	type adminPayment struct {
		models.Payment
		OrderNumber   string `json:"orderNumber,omitempty"`
		CustomerName  string `json:"customerName,omitempty"`
		CustomerEmail string `json:"customerEmail,omitempty"`
	}

	// Les plus récents en premier
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	totalCount := len(payments)
	if offset > totalCount {
		offset = totalCount
	}
	end := offset + limit
	if end > totalCount {
		end = totalCount
	}
	page := payments[offset:end]

	enriched := make([]adminPayment, 0, len(page))
	for _, p := range page {
		entry := adminPayment{Payment: p}
		if o, err := h.orders.Get(c.Request.Context(), p.OrderID, "", true); err == nil {
			entry.OrderNumber = o.OrderNumber
			entry.CustomerName = o.CustomerName
			entry.CustomerEmail = o.CustomerEmail
		}
		enriched = append(enriched, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"payments":   enriched,
		"totalCount": totalCount,
		"hasMore":    end < totalCount,
	})
}

// AdminResolve applique la décision manuelle d'un administrateur :
// verify confirme le virement, reject abandonne le paiement et annule la
// commande. Chaque décision est journalisée.
func (h *Handler) AdminResolve(c *gin.Context) {
	var req manualResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide: action verify ou reject attendue"})
		return
	}

	paymentID, err := gocql.ParseUUID(req.PaymentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de paiement invalide"})
		return
	}

	p, err := h.svc.ManualResolve(c.Request.Context(), paymentID, req.Action, req.Note, c.GetString("email"))
	if err != nil {
		switch {
		case errors.Is(err, paymentsvc.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Paiement introuvable"})
		case errors.Is(err, paymentsvc.ErrAlreadyResolved):
			c.JSON(http.StatusConflict, gin.H{"error": "Ce paiement a déjà été traité"})
		case errors.Is(err, paymentsvc.ErrInvalidAction):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Action invalide"})
		default:
			log.Printf("❌ Décision admin échouée: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du traitement du paiement"})
		}
		return
	}

	message := "Paiement validé, commande en préparation"
	if req.Action == paymentsvc.ActionReject {
		message = "Paiement rejeté, commande annulée"
	}

	response := gin.H{"success": true, "message": message, "payment": p}
	if o, err := h.orders.Get(c.Request.Context(), p.OrderID, "", true); err == nil {
		response["order"] = o
	}
	c.JSON(http.StatusOK, response)
}

// AdminLogs retourne le journal d'audit d'un paiement
func (h *Handler) AdminLogs(c *gin.Context) {
	paymentID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de paiement invalide"})
		return
	}

	logs, err := h.store.ListLogs(c.Request.Context(), paymentID)
	if err != nil {
		log.Printf("❌ Lecture du journal échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la lecture du journal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
