package items

import "context"

type ItemRequest struct {
	ID string `json:"id"`
}

type Item struct {
	ID string `json:"id"`
}

//api:route GET /items/{id}
func GetItem(ctx context.Context, req ItemRequest) (Item, error) {
	return Item{ID: req.ID}, nil
}

//api:route GET /items/{id}
func FetchItem(ctx context.Context, req ItemRequest) (Item, error) {
	return Item{ID: req.ID}, nil
}
