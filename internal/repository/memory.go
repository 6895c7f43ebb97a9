package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

// MemoryStore is a storage backend that keeps every entity in id-keyed maps
// behind one lock. It honors the same contract as the postgres repositories,
// including the ownership edges the schema encodes: deleting a user takes its
// addresses along, orders keep their user and products alive, and deleting an
// address clears the shipping reference on orders that pointed at it.
//
// It backs tests and local development; nothing in it survives a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]domain.User
	addresses map[uuid.UUID]domain.Address
	products  map[uuid.UUID]domain.Product
	orders    map[uuid.UUID]domain.Order
	items     map[uuid.UUID]domain.OrderItem
}

// NewMemoryStore creates an empty in-memory backend.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[uuid.UUID]domain.User),
		addresses: make(map[uuid.UUID]domain.Address),
		products:  make(map[uuid.UUID]domain.Product),
		orders:    make(map[uuid.UUID]domain.Order),
		items:     make(map[uuid.UUID]domain.OrderItem),
	}
}

// Users returns the store's UserRepository view.
func (s *MemoryStore) Users() UserRepository { return &memoryUsers{s} }

// Addresses returns the store's AddressRepository view.
func (s *MemoryStore) Addresses() AddressRepository { return &memoryAddresses{s} }

// Products returns the store's ProductRepository view.
func (s *MemoryStore) Products() ProductRepository { return &memoryProducts{s} }

// Orders returns the store's OrderRepository view.
func (s *MemoryStore) Orders() OrderRepository { return &memoryOrders{s} }

// pageSlice cuts one pagination window out of an already sorted result set.
func pageSlice[T any](items []T, page Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// emailTaken reports whether any account, soft-deleted ones included, already
// holds the address. The unique index in postgres spans every row, so the
// memory backend must too.
func (s *MemoryStore) emailTaken(email string, exceptID uuid.UUID) bool {
	lowered := strings.ToLower(email)
	for id, u := range s.users {
		if id != exceptID && strings.ToLower(u.Email) == lowered {
			return true
		}
	}
	return false
}

func (s *MemoryStore) slugTaken(slug string, exceptID uuid.UUID) bool {
	for id, p := range s.products {
		if id != exceptID && p.Slug == slug {
			return true
		}
	}
	return false
}

// demoteDefaults clears the default flag on every address the user owns.
// Callers hold the write lock.
func (s *MemoryStore) demoteDefaults(userID uuid.UUID, now time.Time) {
	for id, a := range s.addresses {
		if a.UserID == userID && a.IsDefault {
			a.IsDefault = false
			a.UpdatedAt = now
			s.addresses[id] = a
		}
	}
}

// orderItems collects an order's items sorted by creation time.
// Callers hold at least the read lock.
func (s *MemoryStore) orderItems(orderID uuid.UUID) []domain.OrderItem {
	items := []domain.OrderItem{}
	for _, item := range s.items {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
	return items
}

type memoryUsers struct {
	s *MemoryStore
}

func (m *memoryUsers) Create(_ context.Context, user *domain.User) error {
	if err := domain.NewValidationError(user.Validate()); err != nil {
		return err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if m.s.emailTaken(user.Email, user.ID) {
		return ErrEmailTaken
	}

	m.s.users[user.ID] = *user
	return nil
}

func (m *memoryUsers) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	user, ok := m.s.users[id]
	if !ok || user.Deleted() {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	lowered := strings.ToLower(email)
	for _, user := range m.s.users {
		if !user.Deleted() && strings.ToLower(user.Email) == lowered {
			u := user
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memoryUsers) List(_ context.Context, page Page, filter UserFilter) ([]*domain.User, int, error) {
	page = page.Normalize()

	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	matched := []domain.User{}
	for _, user := range m.s.users {
		if user.Deleted() {
			continue
		}
		if filter.IsActive != nil && user.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, user)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	users := []*domain.User{}
	for _, user := range pageSlice(matched, page) {
		u := user
		users = append(users, &u)
	}
	return users, len(matched), nil
}

func (m *memoryUsers) Update(_ context.Context, id uuid.UUID, patch UserPatch) (*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	user, ok := m.s.users[id]
	if !ok || user.Deleted() {
		return nil, ErrUserNotFound
	}

	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Email != nil {
		user.Email = domain.NormalizeEmail(*patch.Email)
	}
	user.UpdatedAt = time.Now().UTC()

	if err := domain.NewValidationError(user.Validate()); err != nil {
		return nil, err
	}
	if m.s.emailTaken(user.Email, user.ID) {
		return nil, ErrEmailTaken
	}

	m.s.users[id] = user
	return &user, nil
}

func (m *memoryUsers) SoftDelete(_ context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	user, ok := m.s.users[id]
	if !ok || user.Deleted() {
		return ErrUserNotFound
	}

	now := time.Now().UTC()
	user.IsActive = false
	user.DeletedAt = &now
	user.UpdatedAt = now
	m.s.users[id] = user
	return nil
}

func (m *memoryUsers) Delete(_ context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.users[id]; !ok {
		return ErrUserNotFound
	}

	// Orders restrict the delete, exactly like the foreign key does.
	for _, order := range m.s.orders {
		if order.UserID == id {
			return ErrForeignKeyRestricted
		}
	}

	// Addresses are owned: cascade, clearing shipping references first.
	for addrID, address := range m.s.addresses {
		if address.UserID != id {
			continue
		}
		for orderID, order := range m.s.orders {
			if order.ShippingAddressID != nil && *order.ShippingAddressID == addrID {
				order.ShippingAddressID = nil
				m.s.orders[orderID] = order
			}
		}
		delete(m.s.addresses, addrID)
	}

	delete(m.s.users, id)
	return nil
}

type memoryAddresses struct {
	s *MemoryStore
}

func (m *memoryAddresses) Create(_ context.Context, address *domain.Address) error {
	if err := domain.NewValidationError(address.Validate()); err != nil {
		return err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.users[address.UserID]; !ok {
		return ErrUserNotFound
	}

	if address.IsDefault {
		m.s.demoteDefaults(address.UserID, address.UpdatedAt)
	}

	m.s.addresses[address.ID] = *address
	return nil
}

func (m *memoryAddresses) FindByID(_ context.Context, id uuid.UUID) (*domain.Address, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	address, ok := m.s.addresses[id]
	if !ok {
		return nil, ErrAddressNotFound
	}
	return &address, nil
}

func (m *memoryAddresses) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	matched := []domain.Address{}
	for _, address := range m.s.addresses {
		if address.UserID == userID {
			matched = append(matched, address)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].IsDefault != matched[j].IsDefault {
			return matched[i].IsDefault
		}
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	addresses := []*domain.Address{}
	for _, address := range matched {
		a := address
		addresses = append(addresses, &a)
	}
	return addresses, nil
}

func (m *memoryAddresses) Update(_ context.Context, id uuid.UUID, patch AddressPatch) (*domain.Address, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	address, ok := m.s.addresses[id]
	if !ok {
		return nil, ErrAddressNotFound
	}

	if patch.Label != nil {
		address.Label = *patch.Label
	}
	if patch.Street != nil {
		address.Street = *patch.Street
	}
	if patch.City != nil {
		address.City = *patch.City
	}
	if patch.State != nil {
		address.State = *patch.State
	}
	if patch.PostalCode != nil {
		address.PostalCode = *patch.PostalCode
	}
	if patch.Country != nil {
		address.Country = *patch.Country
	}
	promote := false
	if patch.IsDefault != nil {
		promote = *patch.IsDefault && !address.IsDefault
		address.IsDefault = *patch.IsDefault
	}
	address.UpdatedAt = time.Now().UTC()

	if err := domain.NewValidationError(address.Validate()); err != nil {
		return nil, err
	}

	if promote {
		m.s.demoteDefaults(address.UserID, address.UpdatedAt)
	}

	m.s.addresses[id] = address
	return &address, nil
}

func (m *memoryAddresses) SetDefault(_ context.Context, userID, addressID uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	address, ok := m.s.addresses[addressID]
	if !ok || address.UserID != userID {
		return ErrAddressNotFound
	}

	now := time.Now().UTC()
	m.s.demoteDefaults(userID, now)

	address.IsDefault = true
	address.UpdatedAt = now
	m.s.addresses[addressID] = address
	return nil
}

func (m *memoryAddresses) Delete(_ context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.addresses[id]; !ok {
		return ErrAddressNotFound
	}

	// Orders that shipped here lose the reference, not the row.
	for orderID, order := range m.s.orders {
		if order.ShippingAddressID != nil && *order.ShippingAddressID == id {
			order.ShippingAddressID = nil
			m.s.orders[orderID] = order
		}
	}

	delete(m.s.addresses, id)
	return nil
}

type memoryProducts struct {
	s *MemoryStore
}

func (m *memoryProducts) Create(_ context.Context, product *domain.Product) error {
	if err := domain.NewValidationError(product.Validate()); err != nil {
		return err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if m.s.slugTaken(product.Slug, product.ID) {
		return ErrSlugTaken
	}

	m.s.products[product.ID] = *product
	return nil
}

func (m *memoryProducts) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	product, ok := m.s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

func (m *memoryProducts) FindBySlug(_ context.Context, slug string) (*domain.Product, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	for _, product := range m.s.products {
		if product.Slug == slug {
			p := product
			return &p, nil
		}
	}
	return nil, ErrProductNotFound
}

func (m *memoryProducts) List(_ context.Context, page Page, filter ProductFilter) ([]*domain.Product, int, error) {
	page = page.Normalize()

	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	matched := []domain.Product{}
	for _, product := range m.s.products {
		if filter.IsActive != nil && product.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, product)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	products := []*domain.Product{}
	for _, product := range pageSlice(matched, page) {
		p := product
		products = append(products, &p)
	}
	return products, len(matched), nil
}

func (m *memoryProducts) Update(_ context.Context, id uuid.UUID, patch ProductPatch) (*domain.Product, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	product, ok := m.s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}

	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.Slug != nil {
		product.Slug = *patch.Slug
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.StockQuantity != nil {
		product.StockQuantity = *patch.StockQuantity
	}
	if patch.IsActive != nil {
		product.IsActive = *patch.IsActive
	}
	product.UpdatedAt = time.Now().UTC()

	if err := domain.NewValidationError(product.Validate()); err != nil {
		return nil, err
	}
	if m.s.slugTaken(product.Slug, product.ID) {
		return nil, ErrSlugTaken
	}

	m.s.products[id] = product
	return &product, nil
}

func (m *memoryProducts) Delete(_ context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.products[id]; !ok {
		return ErrProductNotFound
	}

	for _, item := range m.s.items {
		if item.ProductID == id {
			return ErrForeignKeyRestricted
		}
	}

	delete(m.s.products, id)
	return nil
}

type memoryOrders struct {
	s *MemoryStore
}

func (m *memoryOrders) Create(_ context.Context, order *domain.Order) error {
	if err := domain.NewValidationError(order.Validate()); err != nil {
		return err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.users[order.UserID]; !ok {
		return ErrUserNotFound
	}
	if order.ShippingAddressID != nil {
		if _, ok := m.s.addresses[*order.ShippingAddressID]; !ok {
			return ErrAddressNotFound
		}
	}
	for i := range order.Items {
		if _, ok := m.s.products[order.Items[i].ProductID]; !ok {
			return ErrProductNotFound
		}
	}

	stored := *order
	stored.Items = nil
	m.s.orders[order.ID] = stored
	for _, item := range order.Items {
		m.s.items[item.ID] = item
	}
	return nil
}

func (m *memoryOrders) FindByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	order, ok := m.s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	order.Items = m.s.orderItems(id)
	return &order, nil
}

func (m *memoryOrders) ListByUser(_ context.Context, userID uuid.UUID, page Page) ([]*domain.Order, int, error) {
	page = page.Normalize()

	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	matched := []domain.Order{}
	for _, order := range m.s.orders {
		if order.UserID == userID {
			matched = append(matched, order)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	orders := []*domain.Order{}
	for _, order := range pageSlice(matched, page) {
		o := order
		o.Items = m.s.orderItems(o.ID)
		orders = append(orders, &o)
	}
	return orders, len(matched), nil
}

func (m *memoryOrders) UpdateStatus(_ context.Context, id uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	order, ok := m.s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}

	if err := order.TransitionStatus(next); err != nil {
		return nil, err
	}
	order.UpdatedAt = time.Now().UTC()
	m.s.orders[id] = order

	order.Items = m.s.orderItems(id)
	return &order, nil
}

func (m *memoryOrders) Delete(_ context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.orders[id]; !ok {
		return ErrOrderNotFound
	}

	// Items are owned: cascade.
	for itemID, item := range m.s.items {
		if item.OrderID == id {
			delete(m.s.items, itemID)
		}
	}

	delete(m.s.orders, id)
	return nil
}
