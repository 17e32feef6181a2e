package models

import "time"

type Dimensions struct {
	Length  float64 `json:"length"`
	Breadth float64 `json:"breadth"`
	Height  float64 `json:"height"`
}

// Product is a catalog record. Price is per unit-weight-unit: the line total
// for a cart line is price × quantity × weight.
type Product struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Price        float64    `json:"price"`
	Weight       float64    `json:"weight"`
	Dimensions   Dimensions `json:"dimensions"`
	Availability bool       `json:"availability"`
	Image        string     `json:"image"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
