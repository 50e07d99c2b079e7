package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gocql/gocql"

	"wave_back_end/internal/database"
	"wave_back_end/internal/models"
)

const (
	ProductCacheTTL     = 10 * time.Minute
	ProductListCacheKey = "products:list:default"
)

// GetCachedProductList retourne la première page du catalogue depuis Redis, ou nil
func GetCachedProductList(ctx context.Context) []models.Product {
	data, err := database.Redis.Get(ctx, ProductListCacheKey).Result()
	if err != nil {
		return nil
	}

	var products []models.Product
	if err := json.Unmarshal([]byte(data), &products); err != nil {
		return nil
	}
	return products
}

// SetCachedProductList met en cache la première page du catalogue
func SetCachedProductList(ctx context.Context, products []models.Product) {
	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	database.Redis.Set(ctx, ProductListCacheKey, data, ProductCacheTTL)
}

// InvalidateProductList invalide le cache après toute mutation du catalogue
func InvalidateProductList(ctx context.Context) {
	database.Redis.Del(ctx, ProductListCacheKey)
}

// GetProductNamesFromCache récupère les noms de plusieurs produits (annotation
// des items de commande), avec lookup ScyllaDB pour les produits manquants
func GetProductNamesFromCache(ctx context.Context, productIDs []string) map[string]string {
	result := make(map[string]string)
	missingIDs := []string{}

	// 1. Essayer de récupérer depuis Redis
	for _, productID := range productIDs {
		key := "product_name:" + productID
		name, err := database.Redis.Get(ctx, key).Result()
		if err == nil {
			result[productID] = name
		} else {
			missingIDs = append(missingIDs, productID)
		}
	}

	// 2. Récupérer les produits manquants depuis ScyllaDB
	if len(missingIDs) > 0 {
		session, err := database.GetProductsSession()
		if err != nil {
			return result
		}
		for _, productID := range missingIDs {
			pid, err := gocql.ParseUUID(productID)
			if err != nil {
				continue
			}
			var name string
			if err := session.Query("SELECT name FROM products WHERE product_id = ?", pid).Scan(&name); err == nil {
				result[productID] = name
				database.Redis.Set(ctx, "product_name:"+productID, name, ProductCacheTTL)
			}
		}
	}

	return result
}
