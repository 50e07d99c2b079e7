package product

import (
	"log"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"wave_back_end/internal/cache"
	"wave_back_end/internal/database"
	"wave_back_end/internal/models"
	"wave_back_end/internal/services"
)

type createProductRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price" binding:"required,gt=0"`
	Images      []string `json:"images"`
	Category    string   `json:"category" binding:"required"`
	Features    []string `json:"features"`
	Inventory   int      `json:"inventory" binding:"min=0"`
}

type updateProductRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price"`
	Images      *[]string `json:"images"`
	Category    *string   `json:"category"`
	Features    *[]string `json:"features"`
	Inventory   *int      `json:"inventory"`
	IsActive    *bool     `json:"isActive"`
}

// GetProducts liste le catalogue actif avec pagination, filtre par catégorie
// et recherche plein texte via Elasticsearch
func GetProducts(c *gin.Context) {
	search := c.Query("search")
	category := c.Query("category")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	if search != "" {
		results, err := services.SearchProducts(search)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"products": results, "total": len(results)})
			return
		}
		// Repli sur un scan ScyllaDB quand l'index est indisponible
		log.Printf("⚠️ Recherche Elasticsearch indisponible, repli sur ScyllaDB: %v", err)
		all, err := fetchActiveProducts(c, category)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Recherche indisponible"})
			return
		}
		needle := strings.ToLower(search)
		matched := make([]models.Product, 0)
		for _, p := range all {
			if strings.Contains(strings.ToLower(p.Name), needle) ||
				strings.Contains(strings.ToLower(p.Description), needle) ||
				strings.Contains(strings.ToLower(p.Category), needle) {
				matched = append(matched, p)
			}
		}
		c.JSON(http.StatusOK, gin.H{"products": matched, "total": len(matched)})
		return
	}

	// Le listing sans filtre est servi depuis Redis quand c'est possible
	cacheable := category == ""
	var products []models.Product
	if cacheable {
		products = cache.GetCachedProductList(c.Request.Context())
	}

	if products == nil {
		var err error
		products, err = fetchActiveProducts(c, category)
		if err != nil {
			log.Printf("❌ Lecture du catalogue échouée: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des produits"})
			return
		}

		attachRatings(products)
		for i := range products {
			products[i].Images = services.SignProductImages(c.Request.Context(), products[i].Images)
		}

		if cacheable {
			cache.SetCachedProductList(c.Request.Context(), products)
		}
	}

	sortProducts(products, c.DefaultQuery("sortBy", "createdAt"), c.DefaultQuery("sortOrder", "desc"))

	total := len(products)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	totalPages := (total + limit - 1) / limit
	c.JSON(http.StatusOK, gin.H{
		"products":   products[start:end],
		"total":      total,
		"page":       page,
		"limit":      limit,
		"totalPages": totalPages,
	})
}

// GetProduct retourne un produit actif avec ses avis et sa note moyenne
func GetProduct(c *gin.Context) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant produit invalide"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Base de données indisponible"})
		return
	}

	var p models.Product
	err = session.Query(`
		SELECT product_id, name, description, price, images, category, features,
			inventory, is_active, created_at, updated_at
		FROM products WHERE product_id = ?`, id).WithContext(c.Request.Context()).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Images, &p.Category,
			&p.Features, &p.Inventory, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil || !p.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	reviews := fetchReviews(c, id)
	p.ReviewCount = len(reviews)
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		p.AvgRating = math.Round(float64(sum)/float64(len(reviews))*10) / 10
	}
	p.Images = services.SignProductImages(c.Request.Context(), p.Images)

	c.JSON(http.StatusOK, gin.H{"product": p, "reviews": reviews})
}

// CreateProduct ajoute un produit au catalogue (admin)
func CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données produit invalides: " + err.Error()})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Base de données indisponible"})
		return
	}

	now := time.Now()
	p := models.Product{
		ID:          gocql.TimeUUID(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Images:      req.Images,
		Category:    req.Category,
		Features:    req.Features,
		Inventory:   req.Inventory,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := session.Query(`
		INSERT INTO products (product_id, name, description, price, images, category,
			features, inventory, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Price, p.Images, p.Category,
		p.Features, p.Inventory, p.IsActive, p.CreatedAt, p.UpdatedAt).
		WithContext(c.Request.Context()).Exec(); err != nil {
		log.Printf("❌ Création produit échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du produit"})
		return
	}

	services.IndexProduct(p)
	cache.InvalidateProductList(c.Request.Context())

	log.Printf("📦 Produit créé: %s (%s)", p.Name, p.ID)
	c.JSON(http.StatusCreated, gin.H{"product": p})
}

// UpdateProduct applique une mise à jour partielle (admin)
func UpdateProduct(c *gin.Context) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant produit invalide"})
		return
	}

	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}
	if req.Price != nil && *req.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le prix doit être strictement positif"})
		return
	}
	if req.Inventory != nil && *req.Inventory < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le stock ne peut pas être négatif"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Base de données indisponible"})
		return
	}

	var p models.Product
	err = session.Query(`
		SELECT product_id, name, description, price, images, category, features,
			inventory, is_active, created_at, updated_at
		FROM products WHERE product_id = ?`, id).WithContext(c.Request.Context()).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Images, &p.Category,
			&p.Features, &p.Inventory, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Images != nil {
		p.Images = *req.Images
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Features != nil {
		p.Features = *req.Features
	}
	if req.Inventory != nil {
		p.Inventory = *req.Inventory
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	p.UpdatedAt = time.Now()

	if err := session.Query(`
		UPDATE products SET name = ?, description = ?, price = ?, images = ?, category = ?,
			features = ?, inventory = ?, is_active = ?, updated_at = ?
		WHERE product_id = ?`,
		p.Name, p.Description, p.Price, p.Images, p.Category,
		p.Features, p.Inventory, p.IsActive, p.UpdatedAt, p.ID).
		WithContext(c.Request.Context()).Exec(); err != nil {
		log.Printf("❌ Mise à jour produit échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour du produit"})
		return
	}

	if p.IsActive {
		services.IndexProduct(p)
	} else {
		services.RemoveProductFromIndex(p.ID.String())
	}
	cache.InvalidateProductList(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{"product": p})
}

// DeleteProduct désactive un produit (suppression douce) pour préserver
// l'historique des commandes qui le référencent
func DeleteProduct(c *gin.Context) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant produit invalide"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Base de données indisponible"})
		return
	}

	var exists gocql.UUID
	if err := session.Query(`SELECT product_id FROM products WHERE product_id = ?`, id).
		WithContext(c.Request.Context()).Scan(&exists); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	if err := session.Query(`
		UPDATE products SET is_active = false, updated_at = ? WHERE product_id = ?`,
		time.Now(), id).WithContext(c.Request.Context()).Exec(); err != nil {
		log.Printf("❌ Désactivation produit échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la suppression du produit"})
		return
	}

	services.RemoveProductFromIndex(id.String())
	cache.InvalidateProductList(c.Request.Context())

	log.Printf("🗑️ Produit désactivé: %s", id)
	c.JSON(http.StatusOK, gin.H{"message": "Produit supprimé"})
}

func fetchActiveProducts(c *gin.Context, category string) ([]models.Product, error) {
	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`
		SELECT product_id, name, description, price, images, category, features,
			inventory, is_active, created_at, updated_at
		FROM products`).WithContext(c.Request.Context()).Iter()

	var products []models.Product
	var p models.Product
	for iter.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Images, &p.Category,
		&p.Features, &p.Inventory, &p.IsActive, &p.CreatedAt, &p.UpdatedAt) {
		if p.IsActive && (category == "" || p.Category == category) {
			products = append(products, p)
		}
		p = models.Product{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	return products, nil
}

// attachRatings agrège la note moyenne (1 décimale) et le nombre d'avis
func attachRatings(products []models.Product) {
	session, err := database.GetProductsSession()
	if err != nil {
		return
	}

	for i := range products {
		iter := session.Query(`SELECT rating FROM reviews_by_product WHERE product_id = ?`,
			products[i].ID).Iter()
		sum, count := 0, 0
		var rating int
		for iter.Scan(&rating) {
			sum += rating
			count++
		}
		if err := iter.Close(); err != nil {
			continue
		}
		products[i].ReviewCount = count
		if count > 0 {
			products[i].AvgRating = math.Round(float64(sum)/float64(count)*10) / 10
		}
	}
}

func sortProducts(products []models.Product, sortBy, sortOrder string) {
	asc := sortOrder == "asc"
	sort.SliceStable(products, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "name":
			less = products[i].Name < products[j].Name
		case "price":
			less = products[i].Price < products[j].Price
		default: // createdAt
			less = products[i].CreatedAt.Before(products[j].CreatedAt)
		}
		if asc {
			return less
		}
		return !less
	})
}

// GetAllProducts liste tout le catalogue, produits désactivés compris (admin)
func GetAllProducts(c *gin.Context) {
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Base de données indisponible"})
		return
	}

	iter := session.Query(`
		SELECT product_id, name, description, price, images, category, features,
			inventory, is_active, created_at, updated_at
		FROM products`).WithContext(c.Request.Context()).Iter()

	var products []models.Product
	var p models.Product
	for iter.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Images, &p.Category,
		&p.Features, &p.Inventory, &p.IsActive, &p.CreatedAt, &p.UpdatedAt) {
		products = append(products, p)
		p = models.Product{}
	}
	if err := iter.Close(); err != nil {
		log.Printf("❌ Lecture du catalogue échouée: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des produits"})
		return
	}

	attachRatings(products)
	sortProducts(products, c.DefaultQuery("sortBy", "createdAt"), c.DefaultQuery("sortOrder", "desc"))

	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}
