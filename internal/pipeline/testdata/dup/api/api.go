package api

import "context"

//api:route GET /ping
func Ping(ctx context.Context) (string, error) {
	return "pong", nil
}

//api:route GET /ping
func PingAgain(ctx context.Context) (string, error) {
	return "pong", nil
}
