// Package recommend is the concierge gateway: it classifies a query and
// answers from local catalog data when it can, otherwise forwards a
// bounded context window to the external completion service. Fallbacks
// are an explicit ordered strategy list, evaluated until one takes the
// query; the first strategy that takes it owns the outcome.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hungerapp/hunger/internal/models"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUpstream     = errors.New("upstream failure")
)

const (
	// menuContextLimit bounds the catalog excerpt sent upstream.
	menuContextLimit = 30
	// historyWindow keeps the last two exchanges of a conversation.
	historyWindow = 4
	// fallbackItemLimit caps local keyword/sample suggestions.
	fallbackItemLimit = 5

	topRatedIntro = "Here are the top rated restaurants on Hunger:"
	retryLine     = "I apologize, but I encountered an issue generating recommendations. Please try again or browse our restaurants directly!"

	systemInstruction = `You are a helpful assistant for the Hunger food delivery app.

IMPORTANT:
- Only recommend food when the user specifically asks for food recommendations or mentions being hungry/wanting to eat
- You CANNOT place orders or add items to cart - you can only provide recommendations and information

For greetings like "hello", "hi", "hey": Respond with a friendly greeting and ask what they're looking for.

For food requests:
- Limit initial recommendations to 5 items maximum
- Show DIVERSE options from DIFFERENT restaurants and cuisines
- Include dish name, restaurant name, and price
- After showing 5 options, ask "Would you like to see more options?"

When users want to order:
- Explain that they need to visit the restaurant page to add items to their cart
- DO NOT offer to place orders or say you will help place orders

Use this menu data: `
)

var topRatedPhrases = []string{
	"top rated",
	"best restaurants",
	"top restaurants",
	"highest rated",
	"popular restaurants",
}

// Catalog is the read surface the gateway needs.
type Catalog interface {
	Restaurants(ctx context.Context) ([]models.Restaurant, error)
}

// Served reports which strategy answered, for metrics.
type Served func(strategy string)

type Gateway struct {
	catalog Catalog
	client  *CompletionClient
	served  Served
}

// New builds a gateway. client may be nil, in which case the local
// fallback strategies answer instead of the network.
func New(catalog Catalog, client *CompletionClient, served Served) *Gateway {
	if served == nil {
		served = func(string) {}
	}
	return &Gateway{catalog: catalog, client: client, served: served}
}

// strategy takes a query or passes. took=false with a nil error means the
// next strategy in order is consulted.
type strategy struct {
	name string
	run  func(ctx context.Context, query string, history []models.ChatMessage) (lines []string, took bool, err error)
}

// Recommend turns a natural-language query into a finite sequence of
// response lines. Blank queries are InvalidInput before any strategy runs.
func (g *Gateway) Recommend(ctx context.Context, query string, history []models.ChatMessage) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query required: %w", ErrInvalidInput)
	}

	strategies := []strategy{
		{name: "top_rated", run: g.topRated},
		{name: "completion", run: g.completion},
		{name: "cuisine_keyword", run: g.cuisineKeyword},
		{name: "sample", run: g.sample},
	}

	for _, s := range strategies {
		lines, took, err := s.run(ctx, query, history)
		if err != nil {
			return nil, err
		}
		if took {
			g.served(s.name)
			return lines, nil
		}
	}
	// The sample strategy always takes the query.
	return nil, fmt.Errorf("no strategy took the query: %w", ErrUpstream)
}

// topRated answers fixed "best restaurants" phrasings from local data,
// with no network involved.
func (g *Gateway) topRated(ctx context.Context, query string, _ []models.ChatMessage) ([]string, bool, error) {
	lowered := strings.ToLower(query)
	match := false
	for _, phrase := range topRatedPhrases {
		if strings.Contains(lowered, phrase) {
			match = true
			break
		}
	}
	if !match {
		return nil, false, nil
	}

	restaurants, err := g.catalog.Restaurants(ctx)
	if err != nil {
		return nil, false, err
	}
	sort.SliceStable(restaurants, func(i, j int) bool {
		return restaurants[i].Rating > restaurants[j].Rating
	})
	if len(restaurants) > 3 {
		restaurants = restaurants[:3]
	}

	lines := []string{topRatedIntro}
	for _, r := range restaurants {
		lines = append(lines, fmt.Sprintf("%s (%s) - %.1f★", r.Name, strings.Join(r.Cuisine, ", "), r.Rating))
	}
	return lines, true, nil
}

// completion forwards the query to the external service with a bounded
// context window. It only applies when a credential is configured; its
// failure is final, never silently downgraded to a local fallback.
func (g *Gateway) completion(ctx context.Context, query string, history []models.ChatMessage) ([]string, bool, error) {
	if g.client == nil {
		return nil, false, nil
	}

	items, err := g.menuExcerpt(ctx, menuContextLimit)
	if err != nil {
		return nil, false, err
	}
	menuLines := make([]string, len(items))
	for i, it := range items {
		menuLines[i] = fmt.Sprintf("%s from %s (%s) - $%.2f", it.name, it.restaurant, it.cuisine, it.price)
	}

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	messages := make([]models.ChatMessage, 0, len(history)+2)
	messages = append(messages, models.ChatMessage{
		Role:    "system",
		Content: systemInstruction + strings.Join(menuLines, "\n"),
	})
	messages = append(messages, history...)
	messages = append(messages, models.ChatMessage{Role: "user", Content: query})

	content, err := g.client.Complete(ctx, messages)
	if err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(content) == "" {
		return []string{retryLine}, true, nil
	}
	// One consolidated unit so upstream paragraph formatting survives.
	return []string{strings.TrimSpace(content)}, true, nil
}

// cuisineKeyword serves up to five dishes whose cuisine tag appears in
// the query. Only reached when no credential is configured.
func (g *Gateway) cuisineKeyword(ctx context.Context, query string, _ []models.ChatMessage) ([]string, bool, error) {
	lowered := strings.ToLower(query)
	items, err := g.menuExcerpt(ctx, 0)
	if err != nil {
		return nil, false, err
	}

	var matched []menuEntry
	var cuisine string
	for _, it := range items {
		for _, tag := range strings.Split(it.cuisine, ", ") {
			if tag != "" && strings.Contains(lowered, strings.ToLower(tag)) {
				matched = append(matched, it)
				cuisine = tag
				break
			}
		}
		if len(matched) == fallbackItemLimit {
			break
		}
	}
	if len(matched) == 0 {
		return nil, false, nil
	}

	recommendations := make([]string, len(matched))
	for i, it := range matched {
		recommendations[i] = fmt.Sprintf("• %s from %s - $%.2f\n  %s", it.name, it.restaurant, it.price, it.description)
	}
	intro := fmt.Sprintf("Here are some delicious %s options for you:", cuisine)
	return []string{intro + "\n\n" + strings.Join(recommendations, "\n\n")}, true, nil
}

// sample is the terminal fallback: a generic catalog sample with a note
// that live recommendations are unavailable.
func (g *Gateway) sample(ctx context.Context, _ string, _ []models.ChatMessage) ([]string, bool, error) {
	items, err := g.menuExcerpt(ctx, fallbackItemLimit)
	if err != nil {
		return nil, false, err
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("• %s from %s - $%.2f", it.name, it.restaurant, it.price)
	}
	note := "Live recommendations are unavailable right now, but here are some popular dishes from our restaurants:"
	return []string{note + "\n\n" + strings.Join(lines, "\n")}, true, nil
}

type menuEntry struct {
	name        string
	description string
	price       float64
	restaurant  string
	cuisine     string
}

// menuExcerpt flattens the catalog into dish entries, truncated to limit
// when limit > 0.
func (g *Gateway) menuExcerpt(ctx context.Context, limit int) ([]menuEntry, error) {
	restaurants, err := g.catalog.Restaurants(ctx)
	if err != nil {
		return nil, err
	}
	var items []menuEntry
	for _, r := range restaurants {
		for _, m := range r.Menu {
			items = append(items, menuEntry{
				name:        m.Name,
				description: m.Description,
				price:       m.Price,
				restaurant:  r.Name,
				cuisine:     strings.Join(r.Cuisine, ", "),
			})
			if limit > 0 && len(items) == limit {
				return items, nil
			}
		}
	}
	return items, nil
}
