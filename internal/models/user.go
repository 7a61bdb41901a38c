package models

import (
	"strings"
	"time"
)

type Role string

const (
	Driver Role = "driver"
	Admin  Role = "admin"
)

func (r Role) Valid() bool { return r == Driver || r == Admin }

type User struct {
	ID             int64     `db:"id" json:"id"`
	Surname        string    `db:"surname" json:"surname"`
	FirstName      string    `db:"first_name" json:"first_name"`
	MiddleName     string    `db:"middle_name" json:"middle_name,omitempty"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	Role           Role      `db:"role" json:"role"`
	ExternalChatID *int64    `db:"external_chat_id" json:"external_chat_id,omitempty"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// FullName — «Фамилия Имя Отчество», отчество опускается, если не задано.
func (u User) FullName() string {
	return FullName(u.Surname, u.FirstName, u.MiddleName)
}

func FullName(surname, firstName, middleName string) string {
	name := strings.TrimSpace(surname + " " + firstName)
	if m := strings.TrimSpace(middleName); m != "" {
		name += " " + m
	}
	return name
}

// NewUser — данные для создания пользователя. Пустой Password означает «сгенерировать».
type NewUser struct {
	Surname    string
	FirstName  string
	MiddleName string
	Role       Role
	Password   string
}

// UserInfo — карточка пользователя со сводкой по рейсам.
type UserInfo struct {
	ID             int64      `json:"id"`
	FullName       string     `json:"full_name"`
	Surname        string     `json:"surname"`
	FirstName      string     `json:"first_name"`
	MiddleName     string     `json:"middle_name"`
	Role           Role       `json:"role"`
	ExternalChatID *int64     `json:"external_chat_id,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	TotalTrips     int        `json:"total_trips"`
	CompletedTrips int        `json:"completed_trips"`
	StartedTrips   int        `json:"active_trips"`
	CancelledTrips int        `json:"cancelled_trips"`
	LastTripDate   *time.Time `json:"last_trip_date,omitempty"`
	HasChat        bool       `json:"has_telegram"`
}
