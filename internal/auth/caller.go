package auth

import "fmt"

type Role string

const (
	RoleFarmer   Role = "FARMER"
	RoleConsumer Role = "CONSUMER"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleFarmer, RoleConsumer:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Caller is an authenticated party. The concrete type is either Farmer or
// Consumer; operations that only one role may perform take that type
// directly instead of inspecting Role at runtime.
type Caller interface {
	ID() string
	Role() Role
}

type Farmer struct{ id string }

func NewFarmer(id string) Farmer { return Farmer{id: id} }

func (f Farmer) ID() string { return f.id }
func (Farmer) Role() Role    { return RoleFarmer }

type Consumer struct{ id string }

func NewConsumer(id string) Consumer { return Consumer{id: id} }

func (c Consumer) ID() string { return c.id }
func (Consumer) Role() Role    { return RoleConsumer }

// NewCaller resolves the variant for role once, at the service boundary.
func NewCaller(id string, role Role) (Caller, error) {
	switch role {
	case RoleFarmer:
		return NewFarmer(id), nil
	case RoleConsumer:
		return NewConsumer(id), nil
	}
	return nil, fmt.Errorf("unknown role %q", role)
}
