package admin

import (
	"encoding/base64"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"wave_back_end/internal/database"
	"wave_back_end/internal/models"
	ordersvc "wave_back_end/internal/order"
	paymentsvc "wave_back_end/internal/payment"
	"wave_back_end/internal/utils"
)

// Handler regroupe les endpoints du back-office : analytics, tableau de bord,
// gestion des utilisateurs et factures PDF
type Handler struct {
	orders   ordersvc.Store
	payments *paymentsvc.Service
}

func NewHandler(orders ordersvc.Store, payments *paymentsvc.Service) *Handler {
	return &Handler{orders: orders, payments: payments}
}

// Analytics calcule les indicateurs de vente : croissance mensuelle, top
// produits, ventilation par catégorie et série des 6 derniers mois
func (h *Handler) Analytics(c *gin.Context) {
	ctx := c.Request.Context()

	orders, err := h.orders.ListAll(ctx)
	if err != nil {
		log.Printf("❌ Lecture des commandes échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du calcul des statistiques"})
		return
	}

	now := time.Now()
	currentRevenue, currentCount := MonthRevenue(orders, now)
	previousRevenue, previousCount := MonthRevenue(orders, now.AddDate(0, -1, 0))
	currentUsers, previousUsers := h.userRegistrationsByMonth(ctx, now)

	totalRevenue := 0.0
	customers := make(map[string]bool)
	for _, o := range countedOrders(orders) {
		totalRevenue += o.Total
		customers[strings.ToLower(o.CustomerEmail)] = true
	}

	// Fenêtre glissante (7, 30, 90 ou 365 jours) pour l'aperçu
	period, err := strconv.Atoi(c.DefaultQuery("period", "30"))
	if err != nil || period < 1 {
		period = 30
	}
	periodStart := now.AddDate(0, 0, -period)
	periodRevenue := 0.0
	periodOrders := 0
	for _, o := range countedOrders(orders) {
		if o.CreatedAt.After(periodStart) {
			periodRevenue += o.Total
			periodOrders++
		}
	}

	pendingPayments := 0
	if payments, err := h.payments.List(ctx, models.PaymentPending); err == nil {
		pendingPayments = len(payments)
	}

	sorted := append([]models.Order(nil), orders...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	recent := sorted
	if len(recent) > 5 {
		recent = recent[:5]
	}

	categories := h.loadCategories(c)

	c.JSON(http.StatusOK, gin.H{
		"overview": gin.H{
			"totalRevenue":    round2(totalRevenue),
			"totalOrders":     len(countedOrders(orders)),
			"totalCustomers":  len(customers),
			"totalUsers":      h.countUsers(ctx),
			"totalProducts":   h.countActiveProducts(ctx),
			"pendingPayments": pendingPayments,
			"periodDays":      period,
			"periodRevenue":   round2(periodRevenue),
			"periodOrders":    periodOrders,
			"revenueGrowth":   GrowthPercent(currentRevenue, previousRevenue),
			"ordersGrowth":    GrowthPercent(float64(currentCount), float64(previousCount)),
			"usersGrowth":     GrowthPercent(float64(currentUsers), float64(previousUsers)),
		},
		"currentMonth": gin.H{
			"revenue": currentRevenue,
			"orders":  currentCount,
		},
		"previousMonth": gin.H{
			"revenue": previousRevenue,
			"orders":  previousCount,
		},
		"recentOrders":    recent,
		"monthlySales":    MonthlySeries(orders, now),
		"topProducts":     TopProducts(orders, 5),
		"salesByCategory": RevenueByCategory(orders, categories),
	})
}

// Dashboard retourne un aperçu rapide : compteurs et dernières commandes
func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	orders, err := h.orders.ListAll(ctx)
	if err != nil {
		log.Printf("❌ Lecture des commandes échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération du tableau de bord"})
		return
	}

	statusCounts := make(map[string]int)
	totalRevenue := 0.0
	for _, o := range orders {
		statusCounts[o.Status]++
		if o.Status != models.OrderCancelled {
			totalRevenue += o.Total
		}
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	recent := orders
	if len(recent) > 5 {
		recent = recent[:5]
	}

	pendingPayments := 0
	if payments, err := h.payments.List(ctx, models.PaymentPending); err == nil {
		pendingPayments = len(payments)
	}

	lowStock, outOfStock := h.stockCounts(c)

	c.JSON(http.StatusOK, gin.H{
		"totalOrders":     len(orders),
		"totalRevenue":    round2(totalRevenue),
		"ordersByStatus":  statusCounts,
		"pendingPayments": pendingPayments,
		"lowStock":        lowStock,
		"outOfStock":      outOfStock,
		"recentOrders":    recent,
	})
}

// Users liste les comptes avec leurs compteurs dérivés (commandes, avis)
func (h *Handler) Users(c *gin.Context) {
	ctx := c.Request.Context()

	usersSession, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Base de données indisponible"})
		return
	}

	iter := usersSession.Query(`SELECT user_id, email, name, role, created_at FROM users`).
		WithContext(ctx).Iter()

	var users []models.User
	var id gocql.UUID
	var u models.User
	for iter.Scan(&id, &u.Email, &u.Name, &u.Role, &u.CreatedAt) {
		u.ID = id.String()
		users = append(users, u)
		u = models.User{}
	}
	if err := iter.Close(); err != nil {
		log.Printf("❌ Lecture des utilisateurs échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des utilisateurs"})
		return
	}

	// Compteur de commandes par email
	orderCounts := make(map[string]int)
	if orders, err := h.orders.ListAll(ctx); err == nil {
		for _, o := range orders {
			orderCounts[strings.ToLower(o.CustomerEmail)]++
		}
	}

	// Compteur d'avis par utilisateur
	reviewCounts := make(map[string]int)
	if productsSession, err := database.GetProductsSession(); err == nil {
		reviewIter := productsSession.Query(`SELECT user_id FROM reviews_by_user_product`).
			WithContext(ctx).Iter()
		var userID string
		for reviewIter.Scan(&userID) {
			reviewCounts[userID]++
		}
		if err := reviewIter.Close(); err != nil {
			log.Printf("⚠️ Lecture des avis échouée: %v", err)
		}
	}

	for i := range users {
		users[i].OrderCount = orderCounts[strings.ToLower(users[i].Email)]
		users[i].ReviewCount = reviewCounts[users[i].ID]
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
}

// Invoice génère la facture PDF d'une commande, avec le QR de virement si un
// paiement existe
func (h *Handler) Invoice(c *gin.Context) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	o, err := h.orders.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}

	var payment *models.Payment
	var qrBase64 string
	if p, err := h.payments.GetByOrder(c.Request.Context(), id); err == nil {
		payment = &p
		if png, err := utils.GenerateTransferQR(p.BankName, p.AccountNumber, p.AccountName, p.ReferenceCode, p.Amount); err == nil {
			qrBase64 = base64.StdEncoding.EncodeToString(png)
		}
	}

	html := utils.GenerateInvoiceHTML(o, payment, qrBase64)
	pdf, err := utils.RenderInvoicePDF(html)
	if err != nil {
		log.Printf("❌ Génération de la facture échouée pour %s: %v", o.OrderNumber, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la génération de la facture"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=facture-"+o.OrderNumber+".pdf")
	c.Data(http.StatusOK, "application/pdf", pdf)
}
