package admin

import (
	"math"
	"sort"
	"time"

	"wave_back_end/internal/models"
)

// MonthlySales est un point de la série des ventes mensuelles
type MonthlySales struct {
	Month   string  `json:"month"` // format AAAA-MM
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// ProductSales agrège les ventes d'un produit
type ProductSales struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

// CategorySales agrège le chiffre d'affaires d'une catégorie
type CategorySales struct {
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
	Orders   int     `json:"orders"`
}

// countedOrders retourne les commandes qui comptent dans les statistiques :
// tout sauf les commandes annulées
func countedOrders(orders []models.Order) []models.Order {
	kept := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status != models.OrderCancelled {
			kept = append(kept, o)
		}
	}
	return kept
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GrowthPercent calcule la variation en pourcentage, arrondie à 2 décimales.
// Un mois précédent à zéro donne 0 plutôt qu'une division par zéro.
func GrowthPercent(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return round2((current - previous) / previous * 100)
}

// MonthRevenue additionne le chiffre d'affaires des commandes créées dans le
// mois calendaire contenant ref
func MonthRevenue(orders []models.Order, ref time.Time) (revenue float64, count int) {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	end := start.AddDate(0, 1, 0)
	for _, o := range countedOrders(orders) {
		if !o.CreatedAt.Before(start) && o.CreatedAt.Before(end) {
			revenue += o.Total
			count++
		}
	}
	return round2(revenue), count
}

// MonthlySeries construit la série des 6 derniers mois calendaires (mois
// courant inclus), avec des zéros pour les mois sans vente
func MonthlySeries(orders []models.Order, now time.Time) []MonthlySales {
	series := make([]MonthlySales, 0, 6)
	counted := countedOrders(orders)

	for i := 5; i >= 0; i-- {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)

		point := MonthlySales{Month: start.Format("2006-01")}
		for _, o := range counted {
			if !o.CreatedAt.Before(start) && o.CreatedAt.Before(end) {
				point.Revenue += o.Total
				point.Orders++
			}
		}
		point.Revenue = round2(point.Revenue)
		series = append(series, point)
	}

	return series
}

// TopProducts retourne les n produits les plus vendus en quantité
func TopProducts(orders []models.Order, n int) []ProductSales {
	byProduct := make(map[string]*ProductSales)
	for _, o := range countedOrders(orders) {
		for _, item := range o.Items {
			id := item.ProductID.String()
			entry, ok := byProduct[id]
			if !ok {
				entry = &ProductSales{ProductID: id, Name: item.ProductName}
				byProduct[id] = entry
			}
			entry.Quantity += item.Quantity
			entry.Revenue = round2(entry.Revenue + item.Price*float64(item.Quantity))
		}
	}

	ranked := make([]ProductSales, 0, len(byProduct))
	for _, entry := range byProduct {
		ranked = append(ranked, *entry)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Quantity != ranked[j].Quantity {
			return ranked[i].Quantity > ranked[j].Quantity
		}
		return ranked[i].Revenue > ranked[j].Revenue
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// RevenueByCategory ventile le chiffre d'affaires par catégorie de produit.
// categories associe chaque identifiant produit à sa catégorie ; les produits
// inconnus tombent dans "autres".
func RevenueByCategory(orders []models.Order, categories map[string]string) []CategorySales {
	byCategory := make(map[string]*CategorySales)
	for _, o := range countedOrders(orders) {
		seen := make(map[string]bool)
		for _, item := range o.Items {
			category, ok := categories[item.ProductID.String()]
			if !ok || category == "" {
				category = "autres"
			}
			entry, found := byCategory[category]
			if !found {
				entry = &CategorySales{Category: category}
				byCategory[category] = entry
			}
			entry.Revenue = round2(entry.Revenue + item.Price*float64(item.Quantity))
			if !seen[category] {
				entry.Orders++
				seen[category] = true
			}
		}
	}

	ranked := make([]CategorySales, 0, len(byCategory))
	for _, entry := range byCategory {
		ranked = append(ranked, *entry)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Revenue > ranked[j].Revenue
	})
	return ranked
}
