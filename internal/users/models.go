package users

import (
	"time"

	"github.com/ariefcatur/go-farm-market/internal/auth"
)

type User struct {
	ID            string         `json:"id"`
	Role          auth.Role      `json:"role"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone"`
	City          string         `json:"city"`
	PasswordHash  string         `json:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	FarmerProfile *FarmerProfile `json:"farmerProfile,omitempty"`
}

type FarmerProfile struct {
	PropertyName string `json:"propertyName"`
	Address      string `json:"address"`
}

type RegisterInput struct {
	Role         auth.Role `json:"role" validate:"required,oneof=FARMER CONSUMER"`
	Name         string    `json:"name" validate:"required,min=2"`
	Email        string    `json:"email" validate:"required,email"`
	Password     string    `json:"password" validate:"required,min=6"`
	City         string    `json:"city" validate:"required,min=2"`
	Phone        string    `json:"phone" validate:"required,min=8"`
	PropertyName *string   `json:"propertyName" validate:"omitempty,min=2"`
	Address      *string   `json:"address" validate:"omitempty,min=2"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateInput is a partial profile update; nil fields are left alone.
type UpdateInput struct {
	Name         *string `json:"name" validate:"omitempty,min=2"`
	Phone        *string `json:"phone" validate:"omitempty,min=8"`
	City         *string `json:"city" validate:"omitempty,min=2"`
	PropertyName *string `json:"propertyName" validate:"omitempty,min=2"`
	Address      *string `json:"address" validate:"omitempty,min=2"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// Session is what register and login hand back to the client.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
