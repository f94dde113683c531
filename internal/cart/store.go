// Package cart holds per-customer cart snapshots fetched from the storefront
// backend and applies quantity edits and removals against both the snapshot
// and the backend.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vhoangnguyen/checkoutflow/internal/domain"
)

var (
	// ErrNotLoaded means no snapshot exists for the customer yet.
	ErrNotLoaded = errors.New("cart not loaded")
	// ErrLineNotFound means the item or combo is not in the snapshot.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrConfirmationRequired blocks a removal until the caller confirms it.
	ErrConfirmationRequired = errors.New("removal requires confirmation")
	// ErrQuantityConflict reports a quantity edit that was rolled back because
	// the confirming backend call failed.
	ErrQuantityConflict = errors.New("quantity change failed, previous value restored")
)

// Backend is the slice of the storefront API the store needs.
type Backend interface {
	CartByCustomer(ctx context.Context, customerID string) (*domain.Cart, error)
	IncrementQuantity(ctx context.Context, itemID string) error
	DecrementQuantity(ctx context.Context, itemID string) error
	RemoveItem(ctx context.Context, itemID string) error
	RemoveCombo(ctx context.Context, comboID string) error
}

type Store struct {
	backend Backend
	logger  *slog.Logger

	mu    sync.Mutex
	carts map[string]*domain.Cart
	locks map[string]*sync.Mutex
}

func NewStore(backend Backend, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger,
		carts:   make(map[string]*domain.Cart),
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockCustomer returns the lock serializing all access to one customer's
// snapshot. Edits hold it across the confirming backend call so the rollback
// stays atomic without stalling other customers; s.mu only guards the maps.
func (s *Store) lockCustomer(customerID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[customerID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[customerID] = lock
	}
	return lock
}

// cartFor must be called with the customer's lock held.
func (s *Store) cartFor(customerID string) (*domain.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[customerID]
	return cart, ok
}

// Load fetches the authoritative cart and replaces the customer's snapshot.
// Image payloads that are not already data URIs get the media-type header
// prefixed.
func (s *Store) Load(ctx context.Context, customerID string) (*domain.Cart, error) {
	lock := s.lockCustomer(customerID)
	lock.Lock()
	defer lock.Unlock()

	cart, err := s.backend.CartByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	for i := range cart.Items {
		cart.Items[i].Image = normalizeImage(cart.Items[i].Image)
	}
	for i := range cart.Combos {
		cart.Combos[i].Image = normalizeImage(cart.Combos[i].Image)
		for j := range cart.Combos[i].Products {
			cart.Combos[i].Products[j].Image = normalizeImage(cart.Combos[i].Products[j].Image)
		}
	}

	s.mu.Lock()
	s.carts[customerID] = cart
	s.mu.Unlock()

	s.logger.Info("cart loaded", "customer_id", customerID, "cart_id", cart.ID, "lines", cart.Lines())
	return copyCart(cart), nil
}

// ChangeQuantity applies a single-step quantity edit. Only the sign of delta
// matters: the backend exposes increment and decrement, so one edit moves the
// quantity by exactly one. The snapshot is updated optimistically and restored
// if the confirming backend call fails. Quantity never drops below 1; an edit
// already at the floor is a no-op.
func (s *Store) ChangeQuantity(ctx context.Context, customerID, itemID string, delta int) (int, error) {
	lock := s.lockCustomer(customerID)
	lock.Lock()
	defer lock.Unlock()

	cart, ok := s.cartFor(customerID)
	if !ok {
		return 0, ErrNotLoaded
	}

	item := findItem(cart, itemID)
	if item == nil {
		return 0, ErrLineNotFound
	}

	step := 0
	switch {
	case delta > 0:
		step = 1
	case delta < 0:
		step = -1
	}

	previous := item.Quantity
	next := previous + step
	if next < 1 {
		next = 1
	}
	if next == previous {
		return previous, nil
	}

	item.Quantity = next

	var err error
	if step > 0 {
		err = s.backend.IncrementQuantity(ctx, itemID)
	} else {
		err = s.backend.DecrementQuantity(ctx, itemID)
	}
	if err != nil {
		item.Quantity = previous
		s.logger.Error("quantity change rolled back", "customer_id", customerID, "item_id", itemID, "error", err)
		return previous, fmt.Errorf("%w: %v", ErrQuantityConflict, err)
	}

	return next, nil
}

// RemoveItem deletes a line after explicit confirmation. Without confirmation
// no backend call is made and the snapshot is untouched.
func (s *Store) RemoveItem(ctx context.Context, customerID, itemID string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	lock := s.lockCustomer(customerID)
	lock.Lock()
	defer lock.Unlock()

	cart, ok := s.cartFor(customerID)
	if !ok {
		return ErrNotLoaded
	}
	if findItem(cart, itemID) == nil {
		return ErrLineNotFound
	}

	if err := s.backend.RemoveItem(ctx, itemID); err != nil {
		return err
	}

	for i, item := range cart.Items {
		if item.ItemID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			break
		}
	}
	s.logger.Info("cart item removed", "customer_id", customerID, "item_id", itemID)
	return nil
}

func (s *Store) RemoveCombo(ctx context.Context, customerID, comboID string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	lock := s.lockCustomer(customerID)
	lock.Lock()
	defer lock.Unlock()

	cart, ok := s.cartFor(customerID)
	if !ok {
		return ErrNotLoaded
	}

	found := false
	for _, combo := range cart.Combos {
		if combo.ComboID == comboID {
			found = true
			break
		}
	}
	if !found {
		return ErrLineNotFound
	}

	if err := s.backend.RemoveCombo(ctx, comboID); err != nil {
		return err
	}

	for i, combo := range cart.Combos {
		if combo.ComboID == comboID {
			cart.Combos = append(cart.Combos[:i], cart.Combos[i+1:]...)
			break
		}
	}
	s.logger.Info("cart combo removed", "customer_id", customerID, "combo_id", comboID)
	return nil
}

// Snapshot returns a copy of the customer's current cart, if one is loaded.
func (s *Store) Snapshot(customerID string) (*domain.Cart, bool) {
	lock := s.lockCustomer(customerID)
	lock.Lock()
	defer lock.Unlock()

	cart, ok := s.cartFor(customerID)
	if !ok {
		return nil, false
	}
	return copyCart(cart), true
}

// Subtotal recomputes the snapshot subtotal. Zero when no cart is loaded.
func (s *Store) Subtotal(customerID string) int64 {
	lock := s.lockCustomer(customerID)
	lock.Lock()
	defer lock.Unlock()

	cart, ok := s.cartFor(customerID)
	if !ok {
		return 0
	}
	return cart.Subtotal()
}

// CartID returns the identifier of the loaded snapshot.
func (s *Store) CartID(customerID string) (string, bool) {
	lock := s.lockCustomer(customerID)
	lock.Lock()
	defer lock.Unlock()

	cart, ok := s.cartFor(customerID)
	if !ok {
		return "", false
	}
	return cart.ID, true
}

// Clear drops the snapshot, used after a successful checkout. The customer's
// lock entry is kept so a concurrent edit cannot race a fresh lock.
func (s *Store) Clear(customerID string) {
	lock := s.lockCustomer(customerID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	delete(s.carts, customerID)
	s.mu.Unlock()
}

func findItem(cart *domain.Cart, itemID string) *domain.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ItemID == itemID {
			return &cart.Items[i]
		}
	}
	return nil
}

func normalizeImage(payload string) string {
	if payload == "" || strings.HasPrefix(payload, "data:") {
		return payload
	}
	return "data:image/jpeg;base64," + payload
}

func copyCart(cart *domain.Cart) *domain.Cart {
	out := &domain.Cart{
		ID:     cart.ID,
		Items:  make([]domain.CartItem, len(cart.Items)),
		Combos: make([]domain.ComboItem, len(cart.Combos)),
	}
	copy(out.Items, cart.Items)
	for i, combo := range cart.Combos {
		out.Combos[i] = combo
		out.Combos[i].Products = make([]domain.ComboProduct, len(combo.Products))
		copy(out.Combos[i].Products, combo.Products)
	}
	return out
}
