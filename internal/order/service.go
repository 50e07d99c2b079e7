package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"wave_back_end/internal/models"
)

// Erreurs métier, traduites en codes HTTP par les handlers
var (
	ErrProductUnavailable = errors.New("produit introuvable ou inactif")
	ErrOrderNotFound      = errors.New("commande introuvable")
	ErrForbidden          = errors.New("accès refusé")
	ErrNotCancellable     = errors.New("une commande expédiée ou livrée ne peut pas être annulée")
	ErrAlreadyCancelled   = errors.New("commande déjà annulée")
	ErrInvalidStatus      = errors.New("statut invalide")
)

// InsufficientInventoryError nomme le produit en rupture : la création échoue en bloc
type InsufficientInventoryError struct {
	ProductName string
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("stock insuffisant pour le produit : %s", e.ProductName)
}

// ProductStore expose le catalogue au cycle de vie des commandes
type ProductStore interface {
	GetActiveByIDs(ctx context.Context, ids []gocql.UUID) (map[gocql.UUID]models.Product, error)
	// ReserveInventory décrémente le stock de façon conditionnelle (LWT) et
	// échoue si le stock restant est insuffisant
	ReserveInventory(ctx context.Context, productID gocql.UUID, quantity int) error
	// RestoreInventory ré-incrémente le stock (annulation ou compensation)
	RestoreInventory(ctx context.Context, productID gocql.UUID, quantity int) error
}

// Store persiste commandes et items
type Store interface {
	Insert(ctx context.Context, o models.Order) error
	GetByID(ctx context.Context, id gocql.UUID) (models.Order, error)
	Update(ctx context.Context, o models.Order) error
	// SetStatus passe le statut de from → to de façon conditionnelle ;
	// retourne false si le statut courant n'était plus `from`
	SetStatus(ctx context.Context, id gocql.UUID, from, to string) (bool, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	ListByEmail(ctx context.Context, email string) ([]models.Order, error)
}

type CreateItem struct {
	ProductID string  `json:"productId" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
	Price     float64 `json:"price" binding:"required,gt=0"`
}

type ShippingAddress struct {
	Address string `json:"address" binding:"required"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country" binding:"required"`
}

type CreateRequest struct {
	CustomerName    string          `json:"customerName" binding:"required"`
	CustomerEmail   string          `json:"customerEmail" binding:"required,email"`
	CustomerPhone   string          `json:"customerPhone"`
	ShippingAddress ShippingAddress `json:"shippingAddress" binding:"required"`
	Items           []CreateItem    `json:"items" binding:"required,min=1,dive"`
	Total           float64         `json:"total" binding:"required,gt=0"`
	ShippingMethod  string          `json:"shippingMethod"`
	PaymentMethod   string          `json:"paymentMethod"`
}

type UpdateRequest struct {
	Status        *string `json:"status"`
	CustomerName  *string `json:"customerName"`
	CustomerEmail *string `json:"customerEmail"`
	CustomerPhone *string `json:"customerPhone"`
	Address       *string `json:"address"`
	City          *string `json:"city"`
	State         *string `json:"state"`
	ZipCode       *string `json:"zipCode"`
	Country       *string `json:"country"`
}

type ListFilter struct {
	Status    string
	Email     string // vide = toutes les commandes (admin)
	Page      int
	Limit     int
	SortBy    string // createdAt | total | status
	SortOrder string // asc | desc
}

// Service implémente le cycle de vie des commandes : création avec réservation
// de stock, annulation avec remise en stock, mises à jour admin
type Service struct {
	orders   Store
	products ProductStore
	now      func() time.Time
}

func NewService(orders Store, products ProductStore) *Service {
	return &Service{orders: orders, products: products, now: time.Now}
}

// generateOrderNumber produit un numéro lisible : ORD-<timestamp>-<suffixe aléatoire>
func generateOrderNumber(now time.Time) string {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), string(suffix))
}

// Create valide la demande, réserve le stock article par article puis persiste
// la commande. La réservation est compensée intégralement au premier échec :
// soit tout le stock est décrémenté et la commande existe, soit rien ne change.
func (s *Service) Create(ctx context.Context, req CreateRequest) (models.Order, error) {
	ids := make([]gocql.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		id, err := gocql.ParseUUID(item.ProductID)
		if err != nil {
			return models.Order{}, ErrProductUnavailable
		}
		ids = append(ids, id)
	}

	products, err := s.products.GetActiveByIDs(ctx, ids)
	if err != nil {
		return models.Order{}, err
	}
	if len(products) != len(ids) {
		return models.Order{}, ErrProductUnavailable
	}

	// Vérification de stock avant toute écriture : au premier manque, on
	// refuse la commande entière en nommant le produit
	for i, item := range req.Items {
		p := products[ids[i]]
		if p.Inventory < item.Quantity {
			return models.Order{}, &InsufficientInventoryError{ProductName: p.Name}
		}
	}

	// Réservation conditionnelle (LWT). En cas d'échec partiel, on restaure
	// ce qui a déjà été réservé pour éviter toute dérive de stock.
	reserved := make([]int, 0, len(req.Items))
	for i, item := range req.Items {
		if err := s.products.ReserveInventory(ctx, ids[i], item.Quantity); err != nil {
			for _, j := range reserved {
				if restoreErr := s.products.RestoreInventory(ctx, ids[j], req.Items[j].Quantity); restoreErr != nil {
					log.Printf("❌ Compensation stock échouée pour %s: %v", ids[j], restoreErr)
				}
			}
			if errors.Is(err, ErrInventoryConflict) {
				return models.Order{}, &InsufficientInventoryError{ProductName: products[ids[i]].Name}
			}
			return models.Order{}, err
		}
		reserved = append(reserved, i)
	}

	now := s.now()
	o := models.Order{
		ID:            gocql.TimeUUID(),
		OrderNumber:   generateOrderNumber(now),
		CustomerName:  req.CustomerName,
		CustomerEmail: strings.ToLower(req.CustomerEmail),
		CustomerPhone: req.CustomerPhone,
		Address:       req.ShippingAddress.Address,
		City:          req.ShippingAddress.City,
		State:         req.ShippingAddress.State,
		ZipCode:       req.ShippingAddress.ZipCode,
		Country:       req.ShippingAddress.Country,
		Total:         req.Total,
		Status:        models.OrderPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for i, item := range req.Items {
		p := products[ids[i]]
		image := ""
		if len(p.Images) > 0 {
			image = p.Images[0]
		}
		o.Items = append(o.Items, models.OrderItem{
			ID:           gocql.TimeUUID(),
			ProductID:    ids[i],
			Quantity:     item.Quantity,
			Price:        item.Price, // prix figé au moment de la commande
			ProductName:  p.Name,
			ProductImage: image,
		})
	}

	if err := s.orders.Insert(ctx, o); err != nil {
		// La commande n'existe pas : on rend le stock réservé
		for i, item := range req.Items {
			if restoreErr := s.products.RestoreInventory(ctx, ids[i], item.Quantity); restoreErr != nil {
				log.Printf("❌ Compensation stock échouée pour %s: %v", ids[i], restoreErr)
			}
		}
		return models.Order{}, err
	}

	log.Printf("🛒 Commande créée: %s (%.2f) pour %s", o.OrderNumber, o.Total, o.CustomerEmail)
	return o, nil
}

// Get récupère une commande ; les non-admins ne voient que les leurs
func (s *Service) Get(ctx context.Context, id gocql.UUID, requesterEmail string, isAdmin bool) (models.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return models.Order{}, ErrOrderNotFound
	}
	if !isAdmin && !strings.EqualFold(o.CustomerEmail, requesterEmail) {
		return models.Order{}, ErrForbidden
	}
	return o, nil
}

// Update applique une mise à jour partielle (admin). Seule l'appartenance du
// statut à l'énumération est vérifiée : toute transition est acceptée.
func (s *Service) Update(ctx context.Context, id gocql.UUID, req UpdateRequest) (models.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return models.Order{}, ErrOrderNotFound
	}

	if req.Status != nil {
		if !models.ValidOrderStatuses[*req.Status] {
			return models.Order{}, ErrInvalidStatus
		}
		o.Status = *req.Status
	}
	if req.CustomerName != nil {
		o.CustomerName = *req.CustomerName
	}
	if req.CustomerEmail != nil {
		o.CustomerEmail = strings.ToLower(*req.CustomerEmail)
	}
	if req.CustomerPhone != nil {
		o.CustomerPhone = *req.CustomerPhone
	}
	if req.Address != nil {
		o.Address = *req.Address
	}
	if req.City != nil {
		o.City = *req.City
	}
	if req.State != nil {
		o.State = *req.State
	}
	if req.ZipCode != nil {
		o.ZipCode = *req.ZipCode
	}
	if req.Country != nil {
		o.Country = *req.Country
	}

	o.UpdatedAt = s.now()
	if err := s.orders.Update(ctx, o); err != nil {
		return models.Order{}, err
	}

	return o, nil
}

// Cancel annule une commande et remet chaque article en stock. Le passage au
// statut CANCELLED est conditionnel : une commande déjà annulée n'est jamais
// remise en stock une seconde fois.
func (s *Service) Cancel(ctx context.Context, id gocql.UUID, requesterEmail string, isAdmin bool) (models.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return models.Order{}, ErrOrderNotFound
	}
	if !isAdmin && !strings.EqualFold(o.CustomerEmail, requesterEmail) {
		return models.Order{}, ErrForbidden
	}

	switch o.Status {
	case models.OrderShipped, models.OrderDelivered:
		return models.Order{}, ErrNotCancellable
	case models.OrderCancelled:
		return models.Order{}, ErrAlreadyCancelled
	}

	applied, err := s.orders.SetStatus(ctx, id, o.Status, models.OrderCancelled)
	if err != nil {
		return models.Order{}, err
	}
	if !applied {
		// Un autre appel a résolu la commande entre-temps
		return models.Order{}, ErrAlreadyCancelled
	}

	for _, item := range o.Items {
		if err := s.products.RestoreInventory(ctx, item.ProductID, item.Quantity); err != nil {
			log.Printf("❌ Remise en stock échouée pour %s: %v", item.ProductID, err)
		}
	}

	o.Status = models.OrderCancelled
	o.UpdatedAt = s.now()
	log.Printf("↩️ Commande annulée: %s, stock restauré", o.OrderNumber)
	return o, nil
}

// CancelForPayment annule une commande suite au rejet de son paiement.
// Idempotent : une commande déjà annulée est laissée telle quelle.
func (s *Service) CancelForPayment(ctx context.Context, id gocql.UUID) error {
	_, err := s.Cancel(ctx, id, "", true)
	if errors.Is(err, ErrAlreadyCancelled) {
		return nil
	}
	return err
}

// MarkProcessing passe une commande en PROCESSING après vérification du paiement
func (s *Service) MarkProcessing(ctx context.Context, id gocql.UUID) error {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return ErrOrderNotFound
	}
	o.Status = models.OrderProcessing
	o.UpdatedAt = s.now()
	return s.orders.Update(ctx, o)
}

// List renvoie une page de commandes triées. Le tri et la pagination se font
// en mémoire après lecture : les volumes restent faibles et ScyllaDB ne trie
// pas sur des colonnes arbitraires.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Order, int, error) {
	var (
		orders []models.Order
		err    error
	)

	if f.Email != "" {
		orders, err = s.orders.ListByEmail(ctx, strings.ToLower(f.Email))
	} else {
		orders, err = s.orders.ListAll(ctx)
	}
	if err != nil {
		return nil, 0, err
	}

	if f.Status != "" {
		filtered := orders[:0]
		for _, o := range orders {
			if o.Status == f.Status {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}

	sortOrders(orders, f.SortBy, f.SortOrder)

	total := len(orders)
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	start := (page - 1) * limit
	if start >= total {
		return []models.Order{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	return orders[start:end], total, nil
}

func sortOrders(orders []models.Order, sortBy, sortOrder string) {
	asc := sortOrder == "asc"
	sort.SliceStable(orders, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "total":
			less = orders[i].Total < orders[j].Total
		case "status":
			less = orders[i].Status < orders[j].Status
		default: // createdAt
			less = orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		if asc {
			return less
		}
		return !less
	})
}
