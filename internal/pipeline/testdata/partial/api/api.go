package api

import "context"

type EchoRequest struct {
	Msg string `json:"msg"`
}

//api:route POST /echo
func Echo(ctx context.Context, req EchoRequest) (string, error) {
	return req.Msg, nil
}

//api:route GET /status
func Status(ctx context.Context) (string, error) {
	return "ok", nil
}

//api:route FETCH /wrong
func WrongVerb(ctx context.Context) (string, error) {
	return "", nil
}
