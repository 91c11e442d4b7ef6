package search

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hungerapp/hunger/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Restaurant{}, &models.MenuItem{}))

	require.NoError(t, db.Create(&models.Restaurant{
		ID: "bella-vista", Name: "Bella Vista", Rating: 4.8, Cuisine: []string{"Italian"},
		Menu: []models.MenuItem{
			{ID: "bv-1", RestaurantID: "bella-vista", Name: "Margherita Pizza", Description: "tomato, mozzarella, basil", Price: 14.5},
			{ID: "bv-2", RestaurantID: "bella-vista", Name: "Truffle Tagliatelle", Description: "black truffle cream", Price: 19},
		},
	}).Error)
	return db
}

func TestSearchCatalogFallback(t *testing.T) {
	s := &Service{DB: newTestDB(t)}

	total, dishes, err := s.Search(t.Context(), "pizza", 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, dishes, 1)
	require.Equal(t, "Margherita Pizza", dishes[0].Name)
	require.Equal(t, "Bella Vista", dishes[0].Restaurant)

	// Description matches count too.
	total, dishes, err = s.Search(t.Context(), "TRUFFLE", 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "bv-2", dishes[0].ID)

	total, dishes, err = s.Search(t.Context(), "sushi", 0, 10)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, dishes)
}
