package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hungerapp/hunger/internal/models"
)

var ErrNotFound = errors.New("not found")

//go:embed seed.json
var seedData []byte

type Service struct {
	DB *gorm.DB
}

// Seed loads the embedded restaurant fixture into an empty catalog.
// A non-empty catalog is left alone, so restarts are idempotent.
func (s *Service) Seed(ctx context.Context) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Restaurant{}).Count(&count).Error; err != nil {
		return fmt.Errorf("catalog count: %w", err)
	}
	if count > 0 {
		return nil
	}

	var restaurants []models.Restaurant
	if err := json.Unmarshal(seedData, &restaurants); err != nil {
		return fmt.Errorf("catalog seed decode: %w", err)
	}
	for i := range restaurants {
		for j := range restaurants[i].Menu {
			restaurants[i].Menu[j].RestaurantID = restaurants[i].ID
		}
	}
	if err := s.DB.WithContext(ctx).Create(&restaurants).Error; err != nil {
		return fmt.Errorf("catalog seed insert: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, offset, limit int) (int64, []models.Restaurant, error) {
	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.Restaurant{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Restaurant
	err := s.DB.WithContext(ctx).
		Order("rating DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Restaurant, error) {
	var r models.Restaurant
	err := s.DB.WithContext(ctx).Preload("Menu").First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("restaurant %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Restaurants returns the whole catalog with menus, for the gateway's
// local strategies and ES indexing. The catalog is seed-sized, so no
// paging here.
func (s *Service) Restaurants(ctx context.Context) ([]models.Restaurant, error) {
	var items []models.Restaurant
	if err := s.DB.WithContext(ctx).Preload("Menu").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Line resolves a menu item id into a cart line, copying item and
// restaurant fields into the snapshot the cart keeps.
func (s *Service) Line(ctx context.Context, itemID string) (*models.CartLine, error) {
	var item models.MenuItem
	err := s.DB.WithContext(ctx).First(&item, "id = ?", itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("menu item %q: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var r models.Restaurant
	if err := s.DB.WithContext(ctx).First(&r, "id = ?", item.RestaurantID).Error; err != nil {
		return nil, err
	}

	return &models.CartLine{
		ID:             item.ID,
		Name:           item.Name,
		Description:    item.Description,
		Price:          item.Price,
		RestaurantID:   r.ID,
		RestaurantName: r.Name,
	}, nil
}
