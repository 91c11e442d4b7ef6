// Package search finds dishes by name or description. With elasticsearch
// configured it uses a fuzzy multi_match over an index built at startup;
// otherwise it degrades to a catalog LIKE query so search still works in
// the zero-dependency setup.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"gorm.io/gorm"

	"github.com/hungerapp/hunger/internal/models"
)

const Index = "dishes"

type Service struct {
	ES *elasticsearch.Client
	DB *gorm.DB
}

type Dish struct {
	models.MenuItem
	Restaurant string `json:"restaurant"`
}

func (s *Service) Search(ctx context.Context, query string, from, size int) (int64, []Dish, error) {
	if s.ES == nil {
		return s.searchDB(ctx, query, from, size)
	}
	return s.searchES(ctx, query, from, size)
}

func (s *Service) searchES(ctx context.Context, query string, from, size int) (int64, []Dish, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search encode: %w", err)
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(Index),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		detail, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("search: %s: %s", res.Status(), detail)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Dish `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	dishes := make([]Dish, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		dishes[i] = hit.Source
	}
	return r.Hits.Total.Value, dishes, nil
}

func (s *Service) searchDB(ctx context.Context, query string, from, size int) (int64, []Dish, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	where := "LOWER(name) LIKE ? OR LOWER(description) LIKE ?"

	var total int64
	err := s.DB.WithContext(ctx).Model(&models.MenuItem{}).
		Where(where, pattern, pattern).
		Count(&total).Error
	if err != nil {
		return 0, nil, err
	}

	var items []models.MenuItem
	err = s.DB.WithContext(ctx).Model(&models.MenuItem{}).
		Where(where, pattern, pattern).
		Order("id ASC").Offset(from).Limit(size).
		Find(&items).Error
	if err != nil {
		return 0, nil, err
	}

	dishes := make([]Dish, len(items))
	for i, item := range items {
		var r models.Restaurant
		if err := s.DB.WithContext(ctx).Select("name").First(&r, "id = ?", item.RestaurantID).Error; err == nil {
			dishes[i].Restaurant = r.Name
		}
		dishes[i].MenuItem = item
	}
	return total, dishes, nil
}

// IndexCatalog writes every dish into the search index, one document per
// menu itemid. Called once at startup after seeding.
func (s *Service) IndexCatalog(ctx context.Context, restaurants []models.Restaurant) error {
	if s.ES == nil {
		return nil
	}
	for _, r := range restaurants {
		for _, item := range r.Menu {
			doc, err := json.Marshal(Dish{MenuItem: item, Restaurant: r.Name})
			if err != nil {
				return fmt.Errorf("index encode: %w", err)
			}
			res, err := s.ES.Index(
				Index,
				bytes.NewReader(doc),
				s.ES.Index.WithContext(ctx),
				s.ES.Index.WithDocumentID(item.ID),
			)
			if err != nil {
				return fmt.Errorf("index %s: %w", item.ID, err)
			}
			res.Body.Close()
			if res.IsError() {
				return fmt.Errorf("index %s: %s", item.ID, res.Status())
			}
		}
	}
	return nil
}
