// Package cartstore owns per-session cart state: line items, the locked
// restaurant, and past orders. A non-empty cart is always locked to exactly
// one restaurant; adds and reorders against a different restaurant never
// mutate state and instead hand back a conflict the caller resolves
// explicitly.
package cartstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hungerapp/hunger/internal/kv"
	"github.com/hungerapp/hunger/internal/models"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
	ErrEmptyCart  = errors.New("empty cart")
)

// conflictTTL bounds how long a pending conflicted action stays resolvable.
const conflictTTL = 10 * time.Minute

const OrderStatusDelivered = "delivered"

// Conflict reports a cross-restaurant collision. Token is accepted by
// Resolve exactly once.
type Conflict struct {
	Token     string               `json:"token"`
	Current   models.RestaurantRef `json:"current"`
	Attempted models.RestaurantRef `json:"attempted"`
}

// CartView is a read snapshot handed to callers; mutating it does not
// touch store state.
type CartView struct {
	Items      []models.CartLine     `json:"items"`
	Restaurant *models.RestaurantRef `json:"restaurant,omitempty"`
	TotalItems int                   `json:"totalItems"`
	TotalPrice float64               `json:"totalPrice"`
}

type sessionState struct {
	Items      []models.CartLine
	Restaurant *models.RestaurantRef
	PastOrders []models.PastOrder
}

type pendingAction struct {
	sessionID string
	attempted models.RestaurantRef
	apply     func(st *sessionState)
	createdAt time.Time
}

// Store keeps every session's cart. All operations are synchronous and
// atomic under one mutex; each mutation is written through to the KV
// store before the call returns.
type Store struct {
	mu       sync.Mutex
	kv       kv.Store
	log      *slog.Logger
	sessions map[string]*sessionState
	pending  map[string]pendingAction
	now      func() time.Time
}

func New(store kv.Store, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		kv:       store,
		log:      log,
		sessions: make(map[string]*sessionState),
		pending:  make(map[string]pendingAction),
		now:      time.Now,
	}
}

func itemsKey(sid string) string      { return "cart:" + sid + ":items" }
func restaurantKey(sid string) string { return "cart:" + sid + ":restaurant" }
func ordersKey(sid string) string     { return "orders:" + sid }

// session rehydrates a session from the KV store on first touch. Missing
// or corrupt snapshots mean empty state, never an error.
func (s *Store) session(sid string) *sessionState {
	if st, ok := s.sessions[sid]; ok {
		return st
	}
	st := &sessionState{}
	s.load(itemsKey(sid), &st.Items)
	s.load(restaurantKey(sid), &st.Restaurant)
	s.load(ordersKey(sid), &st.PastOrders)
	if st.Restaurant != nil && len(st.Items) == 0 {
		st.Restaurant = nil
	}
	s.sessions[sid] = st
	return st
}

func (s *Store) load(key string, out any) {
	raw, found, err := s.kv.Get(key)
	if err != nil {
		s.log.Warn("cart state read failed", "key", key, "error", err)
		return
	}
	if !found {
		return
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.log.Warn("cart state corrupt, starting empty", "key", key, "error", err)
	}
}

// persist writes the session snapshot. Failures are logged and swallowed:
// losing the most recent mutation on crash is acceptable here.
func (s *Store) persist(sid string, st *sessionState) {
	s.write(itemsKey(sid), st.Items)
	s.write(restaurantKey(sid), st.Restaurant)
	s.write(ordersKey(sid), st.PastOrders)
}

func (s *Store) write(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Error("cart state encode failed", "key", key, "error", err)
		return
	}
	if err := s.kv.Set(key, raw); err != nil {
		s.log.Error("cart state write failed", "key", key, "error", err)
	}
}

// Cart returns the current cart with derived totals.
func (s *Store) Cart(sid string) CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view(s.session(sid))
}

func view(st *sessionState) CartView {
	v := CartView{
		Items:      append(make([]models.CartLine, 0, len(st.Items)), st.Items...),
		TotalItems: totalItems(st),
		TotalPrice: totalPrice(st),
	}
	if st.Restaurant != nil {
		ref := *st.Restaurant
		v.Restaurant = &ref
	}
	return v
}

func totalItems(st *sessionState) int {
	total := 0
	for _, line := range st.Items {
		total += line.Quantity
	}
	return total
}

func totalPrice(st *sessionState) float64 {
	total := 0.0
	for _, line := range st.Items {
		total += line.Price * float64(line.Quantity)
	}
	return total
}

// AddItem puts one unit of the line's menu item into the session cart.
// The first add to an empty cart locks the cart to the line's restaurant;
// an add from any other restaurant returns a Conflict and changes nothing.
func (s *Store) AddItem(sid string, line models.CartLine) (*Conflict, error) {
	if line.ID == "" || line.RestaurantID == "" {
		return nil, fmt.Errorf("item and restaurant ids required: %w", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.session(sid)
	attempted := models.RestaurantRef{ID: line.RestaurantID, Name: line.RestaurantName}
	if st.Restaurant != nil && st.Restaurant.ID != line.RestaurantID {
		return s.conflict(sid, *st.Restaurant, attempted, func(st *sessionState) {
			addLine(st, line)
		}), nil
	}

	addLine(st, line)
	s.persist(sid, st)
	return nil, nil
}

func addLine(st *sessionState, line models.CartLine) {
	for i := range st.Items {
		if st.Items[i].ID == line.ID {
			st.Items[i].Quantity++
			return
		}
	}
	line.Quantity = 1
	st.Items = append(st.Items, line)
	if st.Restaurant == nil {
		st.Restaurant = &models.RestaurantRef{ID: line.RestaurantID, Name: line.RestaurantName}
	}
}

// RemoveItem drops the line unconditionally. The lock clears with the
// last line.
func (s *Store) RemoveItem(sid, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.session(sid)
	removeLine(st, itemID)
	s.persist(sid, st)
}

func removeLine(st *sessionState, itemID string) {
	kept := st.Items[:0]
	for _, line := range st.Items {
		if line.ID != itemID {
			kept = append(kept, line)
		}
	}
	st.Items = kept
	if len(st.Items) == 0 {
		st.Items = nil
		st.Restaurant = nil
	}
}

// SetQuantity sets a line's quantity directly; zero or below behaves as
// RemoveItem. No upper bound is enforced.
func (s *Store) SetQuantity(sid, itemID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.session(sid)
	if quantity <= 0 {
		removeLine(st, itemID)
		s.persist(sid, st)
		return nil
	}
	for i := range st.Items {
		if st.Items[i].ID == itemID {
			st.Items[i].Quantity = quantity
			s.persist(sid, st)
			return nil
		}
	}
	return fmt.Errorf("cart line %q: %w", itemID, ErrNotFound)
}

// Clear empties the cart and drops the lock. Past orders are untouched.
func (s *Store) Clear(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.session(sid)
	st.Items = nil
	st.Restaurant = nil
	s.persist(sid, st)
}

// CompleteOrder snapshots the cart into a new past order (most recent
// first) and clears the cart. An empty or unlocked cart is a no-op and
// reports ErrEmptyCart so callers can tell the user.
func (s *Store) CompleteOrder(sid string) (*models.PastOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.session(sid)
	if len(st.Items) == 0 || st.Restaurant == nil {
		return nil, ErrEmptyCart
	}

	// UTC strips the monotonic reading so the timestamp round-trips through JSON.
	now := s.now().UTC()
	order := models.PastOrder{
		ID:             fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		Items:          append([]models.CartLine(nil), st.Items...),
		RestaurantID:   st.Restaurant.ID,
		RestaurantName: st.Restaurant.Name,
		Total:          totalPrice(st),
		Date:           now,
		Status:         OrderStatusDelivered,
	}
	st.PastOrders = append([]models.PastOrder{order}, st.PastOrders...)
	st.Items = nil
	st.Restaurant = nil
	s.persist(sid, st)
	return &order, nil
}

// PastOrders returns the session's order history, most recent first.
func (s *Store) PastOrders(sid string) []models.PastOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.session(sid)
	return append([]models.PastOrder(nil), st.PastOrders...)
}

// Reorder replaces the cart with a fresh copy of a past order's items and
// re-locks to its restaurant. A cart locked to a different restaurant
// yields a Conflict instead.
func (s *Store) Reorder(sid, orderID string) (*Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.session(sid)
	var order *models.PastOrder
	for i := range st.PastOrders {
		if st.PastOrders[i].ID == orderID {
			order = &st.PastOrders[i]
			break
		}
	}
	if order == nil {
		return nil, fmt.Errorf("order %q: %w", orderID, ErrNotFound)
	}

	attempted := models.RestaurantRef{ID: order.RestaurantID, Name: order.RestaurantName}
	snapshot := append([]models.CartLine(nil), order.Items...)
	if st.Restaurant != nil && st.Restaurant.ID != order.RestaurantID {
		return s.conflict(sid, *st.Restaurant, attempted, func(st *sessionState) {
			st.Items = snapshot
			st.Restaurant = &models.RestaurantRef{ID: attempted.ID, Name: attempted.Name}
		}), nil
	}

	st.Items = snapshot
	st.Restaurant = &models.RestaurantRef{ID: attempted.ID, Name: attempted.Name}
	s.persist(sid, st)
	return nil, nil
}

// conflict parks the attempted mutation behind a one-shot token. Only the
// latest conflict per session stays resolvable.
func (s *Store) conflict(sid string, current, attempted models.RestaurantRef, apply func(*sessionState)) *Conflict {
	for token, p := range s.pending {
		if p.sessionID == sid || s.now().Sub(p.createdAt) > conflictTTL {
			delete(s.pending, token)
		}
	}
	token := uuid.NewString()
	s.pending[token] = pendingAction{
		sessionID: sid,
		attempted: attempted,
		apply:     apply,
		createdAt: s.now(),
	}
	return &Conflict{Token: token, Current: current, Attempted: attempted}
}

// Resolve settles a parked conflict: replace clears the cart and applies
// the pending action, otherwise the action is discarded. Either way the
// token is spent.
func (s *Store) Resolve(sid, token string, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[token]
	if !ok || p.sessionID != sid || s.now().Sub(p.createdAt) > conflictTTL {
		return fmt.Errorf("resolution token: %w", ErrNotFound)
	}
	delete(s.pending, token)

	if !replace {
		return nil
	}

	st := s.session(sid)
	st.Items = nil
	st.Restaurant = nil
	p.apply(st)
	s.persist(sid, st)
	return nil
}
