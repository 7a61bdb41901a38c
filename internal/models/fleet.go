package models

import "time"

type Vehicle struct {
	ID        int64     `db:"id" json:"id"`
	Number    string    `db:"number" json:"number"`
	Model     string    `db:"model" json:"model"`
	Capacity  float64   `db:"capacity" json:"capacity"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Route struct {
	ID          int64     `db:"id" json:"id"`
	Number      string    `db:"number" json:"number"`
	Name        string    `db:"name" json:"name"`
	Price       float64   `db:"price" json:"price"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// EntityKind — сущность, на которую ссылаются рейсы.
type EntityKind string

const (
	EntityUser    EntityKind = "user"
	EntityVehicle EntityKind = "vehicle"
	EntityRoute   EntityKind = "route"
)
