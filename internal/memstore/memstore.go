// Package memstore keeps the shop's data in process memory. It satisfies
// the same store contracts as the MySQL DAOs; the server runs on it when
// db.driver is "memory", and service and router tests use it too.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Store holds every table behind one lock.
type Store struct {
	mu         sync.Mutex
	seq        int32
	users      map[int32]models.User
	categories map[int32]models.Category
	products   map[int32]models.Product
	links      map[int32][]int32
	inventory  map[int32]models.Inventory
	orders     map[int32]models.Order
	reviews    []models.Review
	now        func() time.Time
	hashCost   int
}

func New() *Store {
	return &Store{
		users:      map[int32]models.User{},
		categories: map[int32]models.Category{},
		products:   map[int32]models.Product{},
		links:      map[int32][]int32{},
		inventory:  map[int32]models.Inventory{},
		orders:     map[int32]models.Order{},
		now:        time.Now,
		hashCost:   bcrypt.DefaultCost,
	}
}

// WithHashCost sets the bcrypt cost for new passwords.
func (s *Store) WithHashCost(cost int) *Store {
	s.hashCost = cost
	return s
}

func (s *Store) nextID() int32 {
	s.seq++
	return s.seq
}

func (s *Store) stamp() models.Timestamp {
	return models.NewTimestamp(s.now())
}

func (s *Store) Users() *Users           { return &Users{s} }
func (s *Store) Categories() *Categories { return &Categories{s} }
func (s *Store) Products() *Products     { return &Products{s} }
func (s *Store) Inventory() *Inventory   { return &Inventory{s} }
func (s *Store) Orders() *Orders         { return &Orders{s} }
func (s *Store) Reviews() *Reviews       { return &Reviews{s} }

// Users is the user table.
type Users struct{ s *Store }

func (u *Users) FindByID(_ context.Context, id int32) (models.User, bool, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	return user, ok, nil
}

func (u *Users) find(match func(models.User) bool) (models.User, bool, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, user := range u.s.users {
		if match(user) {
			return user, true, nil
		}
	}
	return models.User{}, false, nil
}

func (u *Users) FindByUsername(_ context.Context, username string) (models.User, bool, error) {
	return u.find(func(user models.User) bool { return user.Username == username })
}

func (u *Users) FindByEmail(_ context.Context, email string) (models.User, bool, error) {
	return u.find(func(user models.User) bool { return user.Email == email })
}

func (u *Users) FindAll(_ context.Context) ([]models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	list := make([]models.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		list = append(list, user)
	}
	slices.SortFunc(list, func(a, b models.User) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt.Time), cmp.Compare(b.ID, a.ID))
	})
	return list, nil
}

// Create stores a bcrypt hash of password.
func (u *Users) Create(_ context.Context, user models.User, password string) (int32, error) {
	if password == "" {
		password = uuid.NewString()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.s.hashCost)
	if err != nil {
		return 0, err
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, existing := range u.s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return 0, apperrors.Conflict("Duplicate entry")
		}
	}
	user.ID = u.s.nextID()
	user.PasswordHash = string(hash)
	user.CreatedAt, user.UpdatedAt = u.s.stamp(), u.s.stamp()
	if user.UserType == "" {
		user.UserType = models.UserTypeCustomer
	}
	u.s.users[user.ID] = user
	return user.ID, nil
}

func (u *Users) Update(_ context.Context, user models.User) (bool, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	current, ok := u.s.users[user.ID]
	if !ok {
		return false, nil
	}
	user.PasswordHash = current.PasswordHash
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = u.s.stamp()
	u.s.users[user.ID] = user
	return true, nil
}

func (u *Users) Delete(_ context.Context, id int32) (bool, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	_, ok := u.s.users[id]
	delete(u.s.users, id)
	return ok, nil
}

func (u *Users) Authenticate(ctx context.Context, username, password string) (models.User, bool, error) {
	user, ok, _ := u.FindByUsername(ctx, username)
	if !ok || !user.IsActive || !user.CheckPassword(password) {
		return models.User{}, false, nil
	}
	return user, true, nil
}

// Categories is the category table.
type Categories struct{ s *Store }

func (c *Categories) FindByID(_ context.Context, id int32) (models.Category, bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cat, ok := c.s.categories[id]
	return cat, ok, nil
}

func (c *Categories) list(match func(models.Category) bool) []models.Category {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	list := []models.Category{}
	for _, cat := range c.s.categories {
		if match(cat) {
			list = append(list, cat)
		}
	}
	slices.SortFunc(list, func(a, b models.Category) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return list
}

func (c *Categories) FindAll(_ context.Context) ([]models.Category, error) {
	return c.list(func(models.Category) bool { return true }), nil
}

func (c *Categories) FindByName(_ context.Context, name string) ([]models.Category, error) {
	needle := strings.ToLower(name)
	return c.list(func(cat models.Category) bool { return strings.Contains(strings.ToLower(cat.Name), needle) }), nil
}

func (c *Categories) ParentOf(_ context.Context, id int32) (*int32, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.categories[id].ParentCategoryID, nil
}

func (c *Categories) Create(_ context.Context, cat models.Category) (int32, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cat.ID = c.s.nextID()
	cat.CreatedAt, cat.UpdatedAt = c.s.stamp(), c.s.stamp()
	c.s.categories[cat.ID] = cat
	return cat.ID, nil
}

func (c *Categories) Update(_ context.Context, cat models.Category) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	current, ok := c.s.categories[cat.ID]
	if !ok {
		return false, nil
	}
	cat.CreatedAt = current.CreatedAt
	cat.UpdatedAt = c.s.stamp()
	c.s.categories[cat.ID] = cat
	return true, nil
}

// Delete detaches children and product links like the schema's foreign keys.
func (c *Categories) Delete(_ context.Context, id int32) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.categories[id]; !ok {
		return false, nil
	}
	delete(c.s.categories, id)
	for childID, child := range c.s.categories {
		if child.ParentCategoryID != nil && *child.ParentCategoryID == id {
			child.ParentCategoryID = nil
			c.s.categories[childID] = child
		}
	}
	for productID, ids := range c.s.links {
		c.s.links[productID] = slices.DeleteFunc(ids, func(v int32) bool { return v == id })
	}
	return true, nil
}

// Products is the product table with its category links.
type Products struct{ s *Store }

// load resolves categories and stock; the caller holds the lock.
func (p *Products) load(product models.Product) models.Product {
	product.Categories = []models.Category{}
	for _, id := range p.s.links[product.ID] {
		if cat, ok := p.s.categories[id]; ok {
			product.Categories = append(product.Categories, cat)
		}
	}
	product.AvailableForSale = p.s.inventory[product.ID].AvailableForSale()
	return product
}

func (p *Products) FindByID(_ context.Context, id int32) (models.Product, bool, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	product, ok := p.s.products[id]
	if !ok {
		return models.Product{}, false, nil
	}
	return p.load(product), true, nil
}

func (p *Products) list(match func(models.Product) bool, order func(a, b models.Product) int) []models.Product {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	list := []models.Product{}
	for _, product := range p.s.products {
		if product.IsActive && match(product) {
			list = append(list, p.load(product))
		}
	}
	slices.SortFunc(list, func(a, b models.Product) int {
		return cmp.Or(order(a, b), cmp.Compare(a.ID, b.ID))
	})
	return list
}

func byName(a, b models.Product) int { return strings.Compare(a.Name, b.Name) }

func (p *Products) FindAllActive(_ context.Context) ([]models.Product, error) {
	return p.list(func(models.Product) bool { return true }, func(a, b models.Product) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt.Time), cmp.Compare(b.ID, a.ID))
	}), nil
}

func (p *Products) FindByName(_ context.Context, name string) ([]models.Product, error) {
	needle := strings.ToLower(name)
	return p.list(func(product models.Product) bool {
		return strings.Contains(strings.ToLower(product.Name), needle)
	}, byName), nil
}

func (p *Products) FindByCategory(_ context.Context, categoryID int32) ([]models.Product, error) {
	return p.list(func(product models.Product) bool {
		return slices.Contains(p.s.links[product.ID], categoryID)
	}, byName), nil
}

func (p *Products) FindByPriceRange(_ context.Context, low, high decimal.Decimal) ([]models.Product, error) {
	return p.list(func(product models.Product) bool {
		return product.Price.GreaterThanOrEqual(low) && product.Price.LessThanOrEqual(high)
	}, func(a, b models.Product) int { return a.Price.Cmp(b.Price) }), nil
}

// Create stores the product with an empty inventory row.
func (p *Products) Create(_ context.Context, product models.Product) (int32, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if err := p.checkCategories(product.CategoryIDs()); err != nil {
		return 0, err
	}
	product.ID = p.s.nextID()
	product.CreatedAt, product.UpdatedAt = p.s.stamp(), p.s.stamp()
	p.s.links[product.ID] = uniqueIDs(product.CategoryIDs())
	product.Categories = nil
	p.s.products[product.ID] = product
	p.s.inventory[product.ID] = models.NewInventory(p.s.nextID(), product.ID, 0, 0, models.DefaultReorderLevel, p.s.stamp())
	return product.ID, nil
}

func (p *Products) Update(_ context.Context, product models.Product) (bool, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	current, ok := p.s.products[product.ID]
	if !ok {
		return false, nil
	}
	if product.Categories != nil {
		if err := p.checkCategories(product.CategoryIDs()); err != nil {
			return false, err
		}
		p.s.links[product.ID] = uniqueIDs(product.CategoryIDs())
	}
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = p.s.stamp()
	product.Categories = nil
	p.s.products[product.ID] = product
	return true, nil
}

func (p *Products) Delete(_ context.Context, id int32) (bool, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if _, ok := p.s.products[id]; !ok {
		return false, nil
	}
	for _, o := range p.s.orders {
		for _, item := range o.Items {
			if item.ProductID == id {
				return false, apperrors.Conflict("Record is still referenced")
			}
		}
	}
	delete(p.s.products, id)
	delete(p.s.links, id)
	delete(p.s.inventory, id)
	return true, nil
}

func (p *Products) checkCategories(ids []int32) error {
	for _, id := range ids {
		if _, ok := p.s.categories[id]; !ok {
			return apperrors.Validation("Referenced record does not exist")
		}
	}
	return nil
}

func uniqueIDs(ids []int32) []int32 {
	out := []int32{}
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// Inventory is the stock table keyed by product.
type Inventory struct{ s *Store }

func (i *Inventory) FindByProductID(_ context.Context, productID int32) (models.Inventory, bool, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	inv, ok := i.s.inventory[productID]
	return inv, ok, nil
}

func (i *Inventory) FindBelowReorder(_ context.Context) ([]models.Inventory, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	list := []models.Inventory{}
	for _, inv := range i.s.inventory {
		if inv.BelowReorder() {
			list = append(list, inv)
		}
	}
	slices.SortFunc(list, func(a, b models.Inventory) int { return cmp.Compare(a.ProductID, b.ProductID) })
	return list, nil
}

func (i *Inventory) Increase(_ context.Context, productID int32, n int) (bool, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	inv, ok := i.s.inventory[productID]
	if !ok {
		return false, nil
	}
	if err := inv.Increase(n); err != nil {
		return false, err
	}
	inv.LastUpdated = i.s.stamp()
	i.s.inventory[productID] = inv
	return true, nil
}

// Orders is the order table. Stock moves with the order status.
type Orders struct{ s *Store }

// Create reserves stock for every item or, when one is short, nothing.
func (o *Orders) Create(_ context.Context, order models.Order) (int32, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	staged := map[int32]models.Inventory{}
	for _, item := range order.Items {
		inv, ok := staged[item.ProductID]
		if !ok {
			inv = o.s.inventory[item.ProductID]
		}
		reserved, err := inv.Reserve(item.Quantity)
		if err != nil {
			return 0, err
		}
		if !reserved {
			return 0, apperrors.Invariantf("Insufficient stock for product %d", item.ProductID)
		}
		staged[item.ProductID] = inv
	}
	for productID, inv := range staged {
		inv.LastUpdated = o.s.stamp()
		o.s.inventory[productID] = inv
	}

	order.ID = o.s.nextID()
	items := make([]models.OrderItem, len(order.Items))
	for n, item := range order.Items {
		item.ID = o.s.nextID()
		item.OrderID = order.ID
		items[n] = item
	}
	order.Items = items
	o.s.orders[order.ID] = order
	return order.ID, nil
}

func (o *Orders) FindByID(_ context.Context, id int32) (models.Order, bool, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	order, ok := o.s.orders[id]
	return order, ok, nil
}

func (o *Orders) FindByUser(_ context.Context, userID int32) ([]models.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	list := []models.Order{}
	for _, order := range o.s.orders {
		if order.UserID == userID {
			list = append(list, order)
		}
	}
	slices.SortFunc(list, func(a, b models.Order) int {
		return cmp.Or(b.OrderDate.Compare(a.OrderDate.Time), cmp.Compare(b.ID, a.ID))
	})
	return list, nil
}

func (o *Orders) UpdateStatus(_ context.Context, prev, next models.Order) error {
	if !prev.Status.CanTransitionTo(next.Status) {
		return apperrors.Invariantf("Cannot transition from %s to %s", prev.Status, next.Status)
	}
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	current, ok := o.s.orders[next.ID]
	if !ok || current.Status != prev.Status {
		return apperrors.Conflict("Order was modified concurrently")
	}
	if prev.Status != next.Status {
		for _, item := range next.Items {
			inv := o.s.inventory[item.ProductID]
			switch next.Status {
			case models.OrderStatusCancelled:
				inv.ReservedQuantity = max(0, inv.ReservedQuantity-item.Quantity)
			case models.OrderStatusDelivered:
				inv.QuantityAvailable -= item.Quantity
				inv.ReservedQuantity -= item.Quantity
			}
			o.s.inventory[item.ProductID] = inv
		}
	}
	current.Status = next.Status
	current.ShippedDate = next.ShippedDate
	current.DeliveredDate = next.DeliveredDate
	o.s.orders[next.ID] = current
	return nil
}

// Reviews is the review table.
type Reviews struct{ s *Store }

func (r *Reviews) Create(_ context.Context, review models.Review) (int32, error) {
	if err := models.ValidateRating(review.Rating); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	review.ID = r.s.nextID()
	review.CreatedAt = r.s.stamp()
	r.s.reviews = append(r.s.reviews, review)
	return review.ID, nil
}

func (r *Reviews) FindByProduct(_ context.Context, productID int32) ([]models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []models.Review{}
	for _, review := range r.s.reviews {
		if review.ProductID == productID {
			list = append(list, review)
		}
	}
	slices.SortFunc(list, func(a, b models.Review) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt.Time), cmp.Compare(b.ID, a.ID))
	})
	return list, nil
}

func (r *Reviews) HasPurchased(_ context.Context, userID, productID int32) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, order := range r.s.orders {
		if order.UserID != userID || order.Status == models.OrderStatusCancelled {
			continue
		}
		for _, item := range order.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *Reviews) AverageRating(_ context.Context, productID int32) (models.RatingSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	summary := models.RatingSummary{ProductID: productID}
	total := 0
	for _, review := range r.s.reviews {
		if review.ProductID == productID {
			total += review.Rating
			summary.Count++
		}
	}
	if summary.Count > 0 {
		summary.Average = decimal.NewFromInt(int64(total)).DivRound(decimal.NewFromInt(int64(summary.Count)), 2)
	}
	return summary, nil
}
