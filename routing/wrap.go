package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// Wrap adapts a typed handler to http.Handler. The request value is decoded
// from the JSON body, then path and query parameters are overlaid onto the
// matching fields. The response value is written as JSON with status 200.
//
// Validation has already accepted the request by the time a wrapped handler
// runs, so decode failures here indicate a schema/handler type mismatch and
// map to 500.
func Wrap[Req, Resp any](fn func(context.Context, Req) (Resp, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRequest[Req](r)
		if err != nil {
			http.Error(w, "request decode failed", http.StatusInternalServerError)
			return
		}
		resp, err := fn(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

// WrapNoRequest adapts a handler that takes no request value.
func WrapNoRequest[Resp any](fn func(context.Context) (Resp, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := fn(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

func decodeRequest[Req any](r *http.Request) (Req, error) {
	var zero Req

	merged := map[string]any{}
	if r.Body != nil && r.ContentLength != 0 {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return zero, err
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))
		var body any
		if err := json.Unmarshal(raw, &body); err != nil {
			return zero, err
		}
		if obj, ok := body.(map[string]any); ok {
			merged = obj
		} else {
			var req Req
			err := json.Unmarshal(raw, &req)
			return req, err
		}
	}
	for name, vals := range r.URL.Query() {
		if len(vals) > 0 {
			merged[name] = scalar(vals[0])
		}
	}
	for name, val := range Params(r.Context()) {
		merged[name] = scalar(val)
	}

	enc, err := json.Marshal(merged)
	if err != nil {
		return zero, err
	}
	var req Req
	if err := json.Unmarshal(enc, &req); err != nil {
		return zero, err
	}
	return req, nil
}

// scalar interprets a textual parameter as a JSON literal when it parses as
// one, keeping numeric and boolean fields decodable.
func scalar(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		switch v.(type) {
		case float64, bool:
			return v
		}
	}
	return raw
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
