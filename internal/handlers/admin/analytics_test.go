package admin

import (
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wave_back_end/internal/models"
)

func orderAt(created time.Time, total float64, status string, items ...models.OrderItem) models.Order {
	return models.Order{
		ID:            gocql.TimeUUID(),
		CustomerEmail: "bat@example.mn",
		Total:         total,
		Status:        status,
		Items:         items,
		CreatedAt:     created,
	}
}

func item(productID gocql.UUID, name string, quantity int, price float64) models.OrderItem {
	return models.OrderItem{
		ID:          gocql.TimeUUID(),
		ProductID:   productID,
		ProductName: name,
		Quantity:    quantity,
		Price:       price,
	}
}

func TestGrowthPercent(t *testing.T) {
	assert.Equal(t, 50.0, GrowthPercent(150, 100))
	assert.Equal(t, -25.0, GrowthPercent(75, 100))
	assert.Equal(t, 0.0, GrowthPercent(100, 100))
	assert.Equal(t, 33.33, GrowthPercent(120, 90))
	// Mois précédent sans vente : pas de division par zéro
	assert.Equal(t, 0.0, GrowthPercent(500, 0))
	assert.Equal(t, 0.0, GrowthPercent(0, 0))
}

func TestMonthRevenueUsesCalendarMonths(t *testing.T) {
	now := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	orders := []models.Order{
		orderAt(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), 100, models.OrderPending),
		orderAt(time.Date(2026, 9, 30, 23, 59, 0, 0, time.UTC), 50, models.OrderDelivered),
		// Mois précédent, hors fenêtre
		orderAt(time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC), 999, models.OrderDelivered),
		// Annulée, jamais comptée
		orderAt(time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), 777, models.OrderCancelled),
	}

	revenue, count := MonthRevenue(orders, now)
	assert.Equal(t, 150.0, revenue)
	assert.Equal(t, 2, count)
}

func TestMonthlySeriesCoversSixMonthsZeroFilled(t *testing.T) {
	now := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	orders := []models.Order{
		orderAt(time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), 100, models.OrderPending),
		orderAt(time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC), 40, models.OrderDelivered),
		orderAt(time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC), 60, models.OrderShipped),
		// Trop ancienne pour la fenêtre de 6 mois
		orderAt(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), 500, models.OrderDelivered),
	}

	series := MonthlySeries(orders, now)
	require.Len(t, series, 6)

	months := make([]string, 0, 6)
	for _, point := range series {
		months = append(months, point.Month)
	}
	assert.Equal(t, []string{"2026-04", "2026-05", "2026-06", "2026-07", "2026-08", "2026-09"}, months)

	assert.Equal(t, 0.0, series[0].Revenue) // avril sans vente
	assert.Equal(t, 0, series[0].Orders)
	assert.Equal(t, 100.0, series[2].Revenue) // juin
	assert.Equal(t, 2, series[2].Orders)
	assert.Equal(t, 100.0, series[5].Revenue) // septembre
}

func TestTopProductsRanksByQuantity(t *testing.T) {
	jacket := gocql.TimeUUID()
	scarf := gocql.TimeUUID()
	boots := gocql.TimeUUID()
	now := time.Now()

	orders := []models.Order{
		orderAt(now, 0, models.OrderDelivered,
			item(jacket, "Veste denim", 2, 89.90),
			item(scarf, "Écharpe laine", 5, 25.00)),
		orderAt(now, 0, models.OrderPending,
			item(jacket, "Veste denim", 1, 89.90),
			item(boots, "Bottines cuir", 1, 149.00)),
		// Les quantités des commandes annulées ne comptent pas
		orderAt(now, 0, models.OrderCancelled,
			item(boots, "Bottines cuir", 50, 149.00)),
	}

	top := TopProducts(orders, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "Écharpe laine", top[0].Name)
	assert.Equal(t, 5, top[0].Quantity)
	assert.Equal(t, 125.0, top[0].Revenue)
	assert.Equal(t, "Veste denim", top[1].Name)
	assert.Equal(t, 3, top[1].Quantity)
}

func TestRevenueByCategoryExcludesCancelled(t *testing.T) {
	jacket := gocql.TimeUUID()
	scarf := gocql.TimeUUID()
	unknown := gocql.TimeUUID()
	now := time.Now()

	categories := map[string]string{
		jacket.String(): "vestes",
		scarf.String():  "accessoires",
	}

	orders := []models.Order{
		orderAt(now, 0, models.OrderDelivered,
			item(jacket, "Veste denim", 2, 100.00),
			item(scarf, "Écharpe laine", 1, 25.00)),
		orderAt(now, 0, models.OrderCancelled,
			item(jacket, "Veste denim", 10, 100.00)),
		orderAt(now, 0, models.OrderPending,
			item(unknown, "Produit retiré", 1, 10.00)),
	}

	byCategory := RevenueByCategory(orders, categories)
	require.Len(t, byCategory, 3)

	assert.Equal(t, "vestes", byCategory[0].Category)
	assert.Equal(t, 200.0, byCategory[0].Revenue)
	assert.Equal(t, 1, byCategory[0].Orders)

	assert.Equal(t, "accessoires", byCategory[1].Category)
	assert.Equal(t, 25.0, byCategory[1].Revenue)

	// Produit sans catégorie connue
	assert.Equal(t, "autres", byCategory[2].Category)
	assert.Equal(t, 10.0, byCategory[2].Revenue)
}
