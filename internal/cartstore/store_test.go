package cartstore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hungerapp/hunger/internal/kv"
	"github.com/hungerapp/hunger/internal/models"
)

const sid = "session-1"

func line(id, restID, restName string, price float64) models.CartLine {
	return models.CartLine{
		ID:             id,
		Name:           "dish " + id,
		Price:          price,
		RestaurantID:   restID,
		RestaurantName: restName,
	}
}

func TestAddItemTotals(t *testing.T) {
	s := New(kv.NewMemoryStore(), nil)

	conflict, err := s.AddItem(sid, line("i1", "r1", "Bella Vista", 10.00))
	require.NoError(t, err)
	require.Nil(t, conflict)

	conflict, err = s.AddItem(sid, line("i1", "r1", "Bella Vista", 10.00))
	require.NoError(t, err)
	require.Nil(t, conflict)

	conflict, err = s.AddItem(sid, line("i2", "r1", "Bella Vista", 5.50))
	require.NoError(t, err)
	require.Nil(t, conflict)

	cart := s.Cart(sid)
	require.Len(t, cart.Items, 2)
	require.Equal(t, 2, cart.Items[0].Quantity)
	require.Equal(t, 3, cart.TotalItems)
	require.InDelta(t, 25.50, cart.TotalPrice, 1e-9)
	require.NotNil(t, cart.Restaurant)
	require.Equal(t, "r1", cart.Restaurant.ID)
}

func TestAddItemCrossRestaurantConflict(t *testing.T) {
	s := New(kv.NewMemoryStore(), nil)

	_, err := s.AddItem(sid, line("i1", "r1", "Bella Vista", 10.00))
	require.NoError(t, err)

	before := s.Cart(sid)
	conflict, err := s.AddItem(sid, line("x1", "r2", "Sakura House", 7.00))
	require.NoError(t, err)
	require.NotNil(t, conflict)
	require.Equal(t, "r1", conflict.Current.ID)
	require.Equal(t, "r2", conflict.Attempted.ID)

	require.Equal(t, before, s.Cart(sid))
}

func TestRemoveLastItemClearsLock(t *testing.T) {
	s := New(kv.NewMemoryStore(), nil)

	_, err := s.AddItem(sid, line("i1", "r1", "Bella Vista", 10.00))
	require.NoError(t, err)

	s.RemoveItem(sid, "i1")

	cart := s.Cart(sid)
	require.Empty(t, cart.Items)
	require.Nil(t, cart.Restaurant)

	// And a different restaurant is addable again.
	conflict, err := s.AddItem(sid, line("x1", "r2", "Sakura House", 7.00))
	require.NoError(t, err)
	require.Nil(t, conflict)
}

func TestSetQuantity(t *testing.T) {
	s := New(kv.NewMemoryStore(), nil)

	_, err := s.AddItem(sid, line("i1", "r1", "Bella Vista", 10.00))
	require.NoError(t, err)

	require.NoError(t, s.SetQuantity(sid, "i1", 7))
	require.Equal(t, 7, s.Cart(sid).TotalItems)

	require.ErrorIs(t, s.SetQuantity(sid, "missing", 2), ErrNotFound)

	// Zero and below behaves as removal.
	require.NoError(t, s.SetQuantity(sid, "i1", 0))
	cart := s.Cart(sid)
	require.Empty(t, cart.Items)
	require.Nil(t, cart.Restaurant)
}

func TestCompleteOrder(t *testing.T) {
	s := New(kv.NewMemoryStore(), nil)

	_, err := s.AddItem(sid, line("i1", "r1", "Bella Vista", 10.00))
	require.NoError(t, err)
	_, err = s.AddItem(sid, line("i1", "r1", "Bella Vista", 10.00))
	require.NoError(t, err)

	order, err := s.CompleteOrder(sid)
	require.NoError(t, err)
	require.NotEmpty(t, order.ID)
	require.Equal(t, "r1", order.RestaurantID)
	require.InDelta(t, 20.00, order.Total, 1e-9)
	require.Equal(t, OrderStatusDelivered, order.Status)
	require.Len(t, order.Items, 1)
	require.Equal(t, 2, order.Items[0].Quantity)

	cart := s.Cart(sid)
	require.Empty(t, cart.Items)
	require.Nil(t, cart.Restaurant)
	require.Len(t, s.PastOrders(sid), 1)
}

func TestCompleteOrderEmptyCartNoOp(t *testing.T) {
	s := New(kv.NewMemoryStore(), nil)

	order, err := s.CompleteOrder(sid)
	require.ErrorIs(t, err, ErrEmptyCart)
	require.Nil(t, order)
	require.Empty(t, s.PastOrders(sid))
}

func TestOrdersMostRecentFirst(t *testing.T) {
	s := New(kv.NewMemoryStore(), nil)

	_, err := s.AddItem(sid, line("i1", "r1", "Bella Vista", 10.00))
	require.NoError(t, err)
	first, err := s.CompleteOrder(sid)
	require.NoError(t, err)

	_, err = s.AddItem(sid, line("x1", "r2", "Sakura House", 7.00))
	require.NoError(t, err)
	second, err := s.CompleteOrder(sid)
	require.NoError(t, err)

	orders := s.PastOrders(sid)
	require.Len(t, orders, 2)
	require.Equal(t, second.ID, orders[0].ID)
	require.Equal(t, first.ID, orders[1].ID)
}

func TestReorderUnknownID(t *testing.T) {
	s := New(kv.NewMemoryStore(), nil)

	_, err := s.AddItem(sid, line("i1", "r1", "Bella Vista", 10.00))
	require.NoError(t, err)

	before := s.Cart(sid)
	conflict, err := s.Reorder(sid, "nope")
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, conflict)
	require.Equal(t, before, s.Cart(sid))
}

func TestReorderReplacesCart(t *testing.T) {
	s := New(kv.NewMemoryStore(), nil)

	_, err := s.AddItem(sid, line("i1", "r1", "Bella Vista", 10.00))
	require.NoError(t, err)
	order, err := s.CompleteOrder(sid)
	require.NoError(t, err)

	conflict, err := s.Reorder(sid, order.ID)
	require.NoError(t, err)
	require.Nil(t, conflict)

	cart := s.Cart(sid)
	require.Len(t, cart.Items, 1)
	require.Equal(t, "i1", cart.Items[0].ID)
	require.Equal(t, "r1", cart.Restaurant.ID)

	// The cart holds a fresh copy, not the snapshot itself.
	require.NoError(t, s.SetQuantity(sid, "i1", 9))
	require.Equal(t, 1, s.PastOrders(sid)[0].Items[0].Quantity)
}

func TestReorderConflictAndResolve(t *testing.T) {
	s := New(kv.NewMemoryStore(), nil)

	_, err := s.AddItem(sid, line("i1", "r1", "Bella Vista", 10.00))
	require.NoError(t, err)
	order, err := s.CompleteOrder(sid)
	require.NoError(t, err)

	_, err = s.AddItem(sid, line("x1", "r2", "Sakura House", 7.00))
	require.NoError(t, err)

	conflict, err := s.Reorder(sid, order.ID)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	require.Equal(t, "r2", conflict.Current.ID)
	require.Equal(t, "r1", conflict.Attempted.ID)

	// Declining keeps the current cart.
	require.NoError(t, s.Resolve(sid, conflict.Token, false))
	require.Equal(t, "r2", s.Cart(sid).Restaurant.ID)

	// The token is spent.
	require.ErrorIs(t, s.Resolve(sid, conflict.Token, true), ErrNotFound)

	// A second attempt resolved with replace swaps the cart over.
	conflict, err = s.Reorder(sid, order.ID)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	require.NoError(t, s.Resolve(sid, conflict.Token, true))

	cart := s.Cart(sid)
	require.Equal(t, "r1", cart.Restaurant.ID)
	require.Len(t, cart.Items, 1)
	require.Equal(t, "i1", cart.Items[0].ID)
}

func TestResolveAppliesPendingAdd(t *testing.T) {
	s := New(kv.NewMemoryStore(), nil)

	_, err := s.AddItem(sid, line("i1", "r1", "Bella Vista", 10.00))
	require.NoError(t, err)

	conflict, err := s.AddItem(sid, line("x1", "r2", "Sakura House", 7.00))
	require.NoError(t, err)
	require.NotNil(t, conflict)

	require.NoError(t, s.Resolve(sid, conflict.Token, true))

	cart := s.Cart(sid)
	require.Equal(t, "r2", cart.Restaurant.ID)
	require.Len(t, cart.Items, 1)
	require.Equal(t, "x1", cart.Items[0].ID)
	require.Equal(t, 1, cart.Items[0].Quantity)
}

func TestScenarioEndToEnd(t *testing.T) {
	s := New(kv.NewMemoryStore(), nil)

	// Add the same item twice from r1.
	for i := 0; i < 2; i++ {
		conflict, err := s.AddItem(sid, line("i1", "r1", "Bella Vista", 10.00))
		require.NoError(t, err)
		require.Nil(t, conflict)
	}
	cart := s.Cart(sid)
	require.Len(t, cart.Items, 1)
	require.Equal(t, 2, cart.Items[0].Quantity)
	require.InDelta(t, 20.00, cart.TotalPrice, 1e-9)

	// Cross-restaurant add is refused and changes nothing.
	conflict, err := s.AddItem(sid, line("x1", "r2", "Sakura House", 7.00))
	require.NoError(t, err)
	require.NotNil(t, conflict)
	require.Equal(t, cart, s.Cart(sid))

	// Removing the only line empties and unlocks.
	s.RemoveItem(sid, "i1")
	cart = s.Cart(sid)
	require.Empty(t, cart.Items)
	require.Nil(t, cart.Restaurant)

	// Completing the now-empty cart is a no-op.
	_, err = s.CompleteOrder(sid)
	require.ErrorIs(t, err, ErrEmptyCart)
	require.Empty(t, s.PastOrders(sid))
}

func TestPersistenceRoundTrip(t *testing.T) {
	store := kv.NewMemoryStore()

	s := New(store, nil)
	_, err := s.AddItem(sid, line("i1", "r1", "Bella Vista", 10.00))
	require.NoError(t, err)
	_, err = s.AddItem(sid, line("i2", "r1", "Bella Vista", 4.25))
	require.NoError(t, err)
	_, err = s.CompleteOrder(sid)
	require.NoError(t, err)
	_, err = s.AddItem(sid, line("x1", "r2", "Sakura House", 7.00))
	require.NoError(t, err)
	before := s.Cart(sid)
	orders := s.PastOrders(sid)

	// A fresh store over the same KV rehydrates identical state.
	rehydrated := New(store, nil)
	require.Equal(t, before, rehydrated.Cart(sid))
	require.Equal(t, orders, rehydrated.PastOrders(sid))
}

func TestCorruptStateRehydratesEmpty(t *testing.T) {
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set("cart:"+sid+":items", []byte("{not json")))
	require.NoError(t, store.Set("orders:"+sid, []byte("also broken")))

	s := New(store, nil)
	cart := s.Cart(sid)
	require.Empty(t, cart.Items)
	require.Nil(t, cart.Restaurant)
	require.Empty(t, s.PastOrders(sid))
}

func TestStaleRestaurantLockDropsOnRehydrate(t *testing.T) {
	store := kv.NewMemoryStore()
	ref, err := json.Marshal(models.RestaurantRef{ID: "r1", Name: "Bella Vista"})
	require.NoError(t, err)
	require.NoError(t, store.Set("cart:"+sid+":restaurant", ref))

	// A lock without items is inconsistent; rehydration clears it.
	s := New(store, nil)
	require.Nil(t, s.Cart(sid).Restaurant)
}
