package api

import "context"

type ItemRequest struct {
	ID string `json:"id"`
}

//api:route GET /items/{id}
func GetItem(ctx context.Context, req ItemRequest) (string, error) {
	return req.ID, nil
}

//api:route GET /status
func Status(ctx context.Context) (string, error) {
	return "ok", nil
}

//api:route POST /ghost
func Ghost(ctx context.Context, req MissingRequest) (string, error) {
	return "", nil
}
