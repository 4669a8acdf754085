package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is an operator account. Operators enter manual cash payments
// and read reconciliation reports; gateways never authenticate here.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"column:email;not null;uniqueIndex"`
	Name         string    `json:"name" gorm:"column:name"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	IsActive     bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenGenerator creates and validates session tokens.
type TokenGenerator interface {
	Generate(user *User) (token string, expiresAt time.Time, err error)
	Validate(tokenString string) (*Claims, error)
}

type UserRepository interface {
	GetByEmail(email string) (*User, error)
	GetByID(userID int64) (*User, error)
}
