package models

import (
	"time"
)

type Restaurant struct {
	ID           string     `gorm:"primaryKey"                json:"id"`
	Name         string     `gorm:"not null"                  json:"name"`
	Image        string     `json:"image"`
	Rating       float64    `gorm:"not null"                  json:"rating"`
	Cuisine      []string   `gorm:"serializer:json"           json:"cuisine"`
	DeliveryTime string     `json:"deliveryTime"`
	Menu         []MenuItem `gorm:"foreignKey:RestaurantID"   json:"menu,omitempty"`
}

type MenuItem struct {
	ID           string  `gorm:"primaryKey"                json:"id"`
	RestaurantID string  `gorm:"index;not null"            json:"-"`
	Name         string  `gorm:"not null"                  json:"name"`
	Description  string  `gorm:"not null"                  json:"description"`
	Price        float64 `gorm:"not null"                  json:"price"`
	Category     string  `json:"category,omitempty"`
}

// RestaurantRef is the restaurant a non-empty cart is locked to.
type RestaurantRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CartLine is one distinct menu item in a cart with its own quantity.
// It carries a copy of the menu item fields so past orders stay readable
// even if the catalog changes.
type CartLine struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Price          float64 `json:"price"`
	Quantity       int     `json:"quantity"`
	RestaurantID   string  `json:"restaurantId"`
	RestaurantName string  `json:"restaurantName"`
}

type PastOrder struct {
	ID             string     `json:"id"`
	Items          []CartLine `json:"items"`
	RestaurantID   string     `json:"restaurantId"`
	RestaurantName string     `json:"restaurantName"`
	Total          float64    `json:"total"`
	Date           time.Time  `json:"date"`
	Status         string     `json:"status"`
}

// ChatMessage is one turn of a concierge conversation, in the same role
// vocabulary the completion service uses.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
