package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name         string    `gorm:"size:100;not null"         json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null"                  json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false"    json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Token is an opaque cookie credential. It is deliberately not tied to a User.
type Token struct {
	ID        uint      `gorm:"primaryKey"                json:"id"`
	Value     string    `gorm:"size:64;uniqueIndex;not null" json:"value"`
	CreatedAt time.Time `gorm:"not null"                  json:"createdAt"`
	ExpiresAt time.Time `gorm:"index;not null"            json:"expiresAt"`
	Valid     bool      `gorm:"not null"                  json:"valid"`
}

func (t *Token) Usable(now time.Time) bool {
	return t.Valid && now.Before(t.ExpiresAt)
}

type Book struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"size:255;uniqueIndex;not null" json:"title"`
	Author      string    `gorm:"size:255;not null"        json:"author"`
	Description string    `gorm:"size:2000;not null"       json:"description"`
	ISBN        string    `gorm:"size:32"                  json:"isbn,omitempty"`
	CoverID     int64     `json:"coverId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func All() []any {
	return []any{&User{}, &Token{}, &Book{}}
}
