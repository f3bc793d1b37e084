package routes

import "context"

type PingRequest struct {
	Echo string `json:"echo"`
}

//api:route POST /ping
func Ping(ctx context.Context, req PingRequest) (string, error) {
	return req.Echo, nil
}

//api:route GET /broken
func Broken(ctx context.Context, req MissingType) (string, error) {
	return "", nil
}

//api:route TELEPORT /nowhere
func BadVerb(ctx context.Context) (string, error) {
	return "", nil
}

//api:route GET /badsig
func BadSignature(a int, b int) string {
	return ""
}
