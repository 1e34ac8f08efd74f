package order

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultStorageFileName is the order file created in the user's home
// directory when no explicit path is configured
const DefaultStorageFileName = ".invariant-swap-orders.json"

// Storage persists limit orders to a JSON file
type Storage struct {
	filePath string
	mu       sync.RWMutex
	orders   map[string]*LimitOrder
}

type orderFile struct {
	Orders map[string]*LimitOrder `json:"orders"`
}

// NewStorage creates a new order storage instance. An empty filePath
// defaults to DefaultStorageFileName in the user's home directory.
func NewStorage(filePath string) (*Storage, error) {
	if filePath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(homeDir, DefaultStorageFileName)
	}

	s := &Storage{
		filePath: filePath,
		orders:   make(map[string]*LimitOrder),
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	return s, nil
}

// FilePath returns the path of the backing file
func (s *Storage) FilePath() string {
	return s.filePath
}

// Reload re-reads orders from disk, picking up changes made by other
// processes
func (s *Storage) Reload() error {
	return s.load()
}

// load reads orders from the storage file
func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// No file yet, start with an empty set
			return nil
		}
		return fmt.Errorf("failed to read storage file: %w", err)
	}

	var file orderFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse storage file: %w", err)
	}

	if file.Orders != nil {
		s.orders = file.Orders
	}

	return nil
}

// persist writes the current orders to disk. Callers must hold s.mu.
func (s *Storage) persist() error {
	data, err := json.MarshalIndent(orderFile{Orders: s.orders}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal orders: %w", err)
	}

	// Write to a temporary file first, then rename for an atomic replace
	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}

	return nil
}

// Create stores a new order. The order name must be unique.
func (s *Storage) Create(o *LimitOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.Name]; exists {
		return fmt.Errorf("order '%s' already exists", o.Name)
	}

	s.orders[o.Name] = o
	return s.persist()
}

// Get retrieves an order by name
func (s *Storage) Get(name string) (*LimitOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.orders[name]
	if !exists {
		return nil, fmt.Errorf("order '%s' not found", name)
	}

	return o, nil
}

// Update replaces an existing order
func (s *Storage) Update(o *LimitOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.Name]; !exists {
		return fmt.Errorf("order '%s' not found", o.Name)
	}

	s.orders[o.Name] = o
	return s.persist()
}

// Delete removes an order by name
func (s *Storage) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[name]; !exists {
		return fmt.Errorf("order '%s' not found", name)
	}

	delete(s.orders, name)
	return s.persist()
}

// List returns all stored orders
func (s *Storage) List() []*LimitOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]*LimitOrder, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, o)
	}

	return orders
}

// ListByStatus returns all orders with the given status
func (s *Storage) ListByStatus(status OrderStatus) []*LimitOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []*LimitOrder
	for _, o := range s.orders {
		if o.Status == status {
			orders = append(orders, o)
		}
	}

	return orders
}

// Exists reports whether an order with the given name is stored
func (s *Storage) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.orders[name]
	return exists
}

// Count returns the number of stored orders
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.orders)
}
