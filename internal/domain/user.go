package domain

import (
	"context"
	"time"
)

type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type Profile struct {
	UserID      int        `json:"user_id"`
	Phone       string     `json:"phone"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Account struct {
	User    *User    `json:"user"`
	Profile *Profile `json:"profile,omitempty"`
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByID(ctx context.Context, id int) (*User, error)
	// CreateProfile inserts an empty profile; it is a no-op when one exists.
	CreateProfile(ctx context.Context, userID int) (*Profile, error)
	GetProfile(ctx context.Context, userID int) (*Profile, error)
	UpdateProfile(ctx context.Context, profile *Profile) (*Profile, error)
}

type AccountUseCase interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (*User, error)
	// Provision is the post-registration step: it creates the profile and
	// the cart of a freshly registered user. Safe to call more than once.
	Provision(ctx context.Context, userID int) (*Account, error)
	GetAccount(ctx context.Context, userID int) (*Account, error)
	UpdateProfile(ctx context.Context, userID int, phone *string, dateOfBirth *time.Time) (*Profile, error)
}
