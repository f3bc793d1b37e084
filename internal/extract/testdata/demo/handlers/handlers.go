package handlers

import (
	"context"
	"time"
)

type User struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     *string        `json:"email,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Tags      []string       `json:"tags"`
	Extra     map[string]int `json:"extra,omitempty"`
	Manager   *User          `json:"manager,omitempty"`
}

type GetUserRequest struct {
	ID string `json:"id"`
}

type ListUsersRequest struct {
	Limit  int  `json:"limit,omitempty"`
	Active bool `json:"active,omitempty"`
}

type CreateUserRequest struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
}

type Health struct {
	Status string `json:"status"`
}

// GetUser returns one user by id.
//
//api:route GET /users/{id}
func GetUser(ctx context.Context, req GetUserRequest) (User, error) {
	return User{ID: req.ID}, nil
}

//api:route GET /users
func ListUsers(ctx context.Context, req ListUsersRequest) ([]User, error) {
	return nil, nil
}

//api:route POST /users
func CreateUser(ctx context.Context, req CreateUserRequest) (User, error) {
	return User{Name: req.Name}, nil
}

//api:route DELETE /users/{id}
func DeleteUser(ctx context.Context, req GetUserRequest) error {
	return nil
}

//api:route GET /healthz
func Healthz(ctx context.Context) (Health, error) {
	return Health{Status: "ok"}, nil
}

// notARoute has no directive and must be ignored.
func notARoute() {}
