package order

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Manager provides high-level limit order management
type Manager struct {
	storage *Storage
}

// NewManager creates a new order manager backed by the given storage path
func NewManager(storagePath string) (*Manager, error) {
	storage, err := NewStorage(storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return &Manager{storage: storage}, nil
}

// Storage returns the underlying storage
func (m *Manager) Storage() *Storage {
	return m.storage
}

// Reload re-reads orders from disk
func (m *Manager) Reload() error {
	return m.storage.Reload()
}

// CreateOrder validates and persists a new limit order. New orders start
// paused until armed with StartOrder.
func (m *Manager) CreateOrder(o *LimitOrder) (*LimitOrder, error) {
	if o.Name == "" {
		return nil, fmt.Errorf("order name is required")
	}
	if m.storage.Exists(o.Name) {
		return nil, fmt.Errorf("order '%s' already exists", o.Name)
	}

	now := time.Now()
	o.ID = uuid.New().String()
	o.Created = now
	o.LastUpdated = now
	if o.Status == "" {
		o.Status = StatusPaused
	}

	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("invalid order: %w", err)
	}

	if err := m.storage.Create(o); err != nil {
		return nil, err
	}

	return o, nil
}

// GetOrder retrieves an order by name
func (m *Manager) GetOrder(name string) (*LimitOrder, error) {
	return m.storage.Get(name)
}

// ListOrders returns all orders sorted by creation time
func (m *Manager) ListOrders() []*LimitOrder {
	orders := m.storage.List()
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].Created.Before(orders[j].Created)
	})
	return orders
}

// ListByStatus returns all orders with the given status
func (m *Manager) ListByStatus(status OrderStatus) []*LimitOrder {
	return m.storage.ListByStatus(status)
}

// StartOrder arms a paused or failed order for execution
func (m *Manager) StartOrder(name string) error {
	o, err := m.storage.Get(name)
	if err != nil {
		return err
	}

	switch o.Status {
	case StatusActive:
		return fmt.Errorf("order '%s' is already active", name)
	case StatusFilled, StatusCancelled:
		return fmt.Errorf("order '%s' is %s and cannot be started", name, o.Status)
	}

	o.Status = StatusActive
	o.LastError = ""
	o.LastUpdated = time.Now()
	return m.storage.Update(o)
}

// PauseOrder suspends an active order
func (m *Manager) PauseOrder(name string) error {
	o, err := m.storage.Get(name)
	if err != nil {
		return err
	}

	if o.Status != StatusActive {
		return fmt.Errorf("order '%s' is not active", name)
	}

	o.Status = StatusPaused
	o.LastUpdated = time.Now()
	return m.storage.Update(o)
}

// CancelOrder cancels an order that has not filled yet
func (m *Manager) CancelOrder(name string) error {
	o, err := m.storage.Get(name)
	if err != nil {
		return err
	}

	if o.Status == StatusFilled {
		return fmt.Errorf("order '%s' has already filled", name)
	}
	if o.Status == StatusCancelled {
		return fmt.Errorf("order '%s' is already cancelled", name)
	}

	o.Status = StatusCancelled
	o.LastUpdated = time.Now()
	return m.storage.Update(o)
}

// DeleteOrder removes an order. Active orders must be paused or cancelled
// first.
func (m *Manager) DeleteOrder(name string) error {
	o, err := m.storage.Get(name)
	if err != nil {
		return err
	}

	if o.Status == StatusActive {
		return fmt.Errorf("order '%s' is active, pause or cancel it first", name)
	}

	return m.storage.Delete(name)
}

// RecordFill marks an order as filled with its execution details
func (m *Manager) RecordFill(name string, fill Fill) error {
	o, err := m.storage.Get(name)
	if err != nil {
		return err
	}

	o.Status = StatusFilled
	o.Fill = &fill
	o.LastError = ""
	o.LastUpdated = time.Now()
	return m.storage.Update(o)
}

// RecordFailure marks an order as failed so it is no longer watched.
// A failed order can be re-armed with StartOrder.
func (m *Manager) RecordFailure(name string, reason string) error {
	o, err := m.storage.Get(name)
	if err != nil {
		return err
	}

	o.Status = StatusFailed
	o.LastError = reason
	o.LastUpdated = time.Now()
	return m.storage.Update(o)
}
