package recommend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hungerapp/hunger/internal/models"
)

type fakeCatalog struct {
	restaurants []models.Restaurant
}

func (f *fakeCatalog) Restaurants(context.Context) ([]models.Restaurant, error) {
	return append([]models.Restaurant(nil), f.restaurants...), nil
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{restaurants: []models.Restaurant{
		{
			ID: "bella-vista", Name: "Bella Vista", Rating: 4.8, Cuisine: []string{"Italian"},
			Menu: []models.MenuItem{
				{ID: "bv-1", Name: "Margherita Pizza", Description: "tomato, mozzarella, basil", Price: 14.5},
				{ID: "bv-2", Name: "Truffle Tagliatelle", Description: "black truffle cream", Price: 19},
			},
		},
		{
			ID: "sakura-house", Name: "Sakura House", Rating: 4.9, Cuisine: []string{"Japanese", "Sushi"},
			Menu: []models.MenuItem{
				{ID: "sh-1", Name: "Tonkotsu Ramen", Description: "pork broth, chashu", Price: 15.5},
			},
		},
		{
			ID: "spice-route", Name: "Spice Route", Rating: 4.7, Cuisine: []string{"Indian"},
			Menu: []models.MenuItem{
				{ID: "sr-1", Name: "Butter Chicken", Description: "tomato-fenugreek gravy", Price: 16},
			},
		},
		{
			ID: "casa-fiesta", Name: "Casa Fiesta", Rating: 4.5, Cuisine: []string{"Mexican"},
			Menu: []models.MenuItem{
				{ID: "cf-1", Name: "Al Pastor Tacos", Description: "pork, pineapple", Price: 12.5},
			},
		},
	}}
}

func TestRecommendEmptyQuery(t *testing.T) {
	g := New(testCatalog(), nil, nil)

	_, err := g.Recommend(context.Background(), "", nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = g.Recommend(context.Background(), "   ", nil)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecommendTopRatedLocalOnly(t *testing.T) {
	// A client pointed at an unreachable host proves no network happens.
	client := NewCompletionClient("key", "http://127.0.0.1:1", "")
	g := New(testCatalog(), client, nil)

	lines, err := g.Recommend(context.Background(), "What are the top rated restaurants?", nil)
	require.NoError(t, err)
	require.Len(t, lines, 4)
	require.Equal(t, "Here are the top rated restaurants on Hunger:", lines[0])
	require.Equal(t, "Sakura House (Japanese, Sushi) - 4.9★", lines[1])
	require.Equal(t, "Bella Vista (Italian) - 4.8★", lines[2])
	require.Equal(t, "Spice Route (Indian) - 4.7★", lines[3])
}

func TestRecommendCuisineKeywordFallback(t *testing.T) {
	var served string
	g := New(testCatalog(), nil, func(s string) { served = s })

	lines, err := g.Recommend(context.Background(), "I'm craving something italian tonight", nil)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "Italian options")
	require.Contains(t, lines[0], "Margherita Pizza")
	require.Contains(t, lines[0], "Bella Vista")
	require.Equal(t, "cuisine_keyword", served)
}

func TestRecommendGenericSampleFallback(t *testing.T) {
	var served string
	g := New(testCatalog(), nil, func(s string) { served = s })

	lines, err := g.Recommend(context.Background(), "surprise me", nil)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "Live recommendations are unavailable")
	require.Contains(t, lines[0], "Margherita Pizza")
	require.Equal(t, "sample", served)
}

func TestRecommendCompletionSuccess(t *testing.T) {
	var captured struct {
		Model    string               `json:"model"`
		Messages []models.ChatMessage `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Try the ramen at Sakura House!\n\nIt is excellent."}},
			},
		})
	}))
	defer srv.Close()

	client := NewCompletionClient("test-key", srv.URL, "")
	g := New(testCatalog(), client, nil)

	history := []models.ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
	}
	lines, err := g.Recommend(context.Background(), "something warm please", history)
	require.NoError(t, err)

	// The whole reply stays one consolidated unit.
	require.Equal(t, []string{"Try the ramen at Sakura House!\n\nIt is excellent."}, lines)

	// system + bounded history window + current user turn.
	require.Equal(t, "gpt-3.5-turbo", captured.Model)
	require.Len(t, captured.Messages, 6)
	require.Equal(t, "system", captured.Messages[0].Role)
	require.Contains(t, captured.Messages[0].Content, "Margherita Pizza from Bella Vista")
	require.Equal(t, "hello", captured.Messages[1].Content)
	require.Equal(t, "something warm please", captured.Messages[5].Content)
}

func TestRecommendCompletionUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := New(testCatalog(), NewCompletionClient("test-key", srv.URL, ""), nil)

	_, err := g.Recommend(context.Background(), "something warm please", nil)
	require.ErrorIs(t, err, ErrUpstream)
}

func TestRecommendCompletionTransportError(t *testing.T) {
	g := New(testCatalog(), NewCompletionClient("test-key", "http://127.0.0.1:1", ""), nil)

	_, err := g.Recommend(context.Background(), "something warm please", nil)
	require.ErrorIs(t, err, ErrUpstream)
}

func TestRecommendCompletionBlankContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "   "}},
			},
		})
	}))
	defer srv.Close()

	g := New(testCatalog(), NewCompletionClient("test-key", srv.URL, ""), nil)

	lines, err := g.Recommend(context.Background(), "something warm please", nil)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "Please try again")
}
