package validate

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/routeforge/routeforge/routing"
)

// Middleware validates the logical request object before next runs. The
// object is composed from the JSON body (when present), query values, and
// router-supplied path parameters; textual path and query values are decoded
// according to their declared schema types. On mismatch the request is
// rejected with a 400 and a structured error body; the handler never runs.
// On success the handler receives the original request with its body intact.
func Middleware(v *RequestValidator, next http.Handler) http.Handler {
	return middleware(v, nil, "", next)
}

func middleware(v *RequestValidator, m *Metrics, route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v == nil {
			next.ServeHTTP(w, r)
			return
		}

		payload := map[string]any{}

		if r.Body != nil && r.ContentLength != 0 {
			raw, err := io.ReadAll(r.Body)
			if err != nil {
				reject(w, m, route, &Error{Reason: "cannot read request body"})
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))
			var body any
			if err := json.Unmarshal(raw, &body); err != nil {
				reject(w, m, route, &Error{Reason: "request body is not valid JSON"})
				return
			}
			if obj, ok := body.(map[string]any); ok {
				payload = obj
			} else {
				// Non-object bodies validate as-is; parameters cannot
				// be merged into them.
				if err := v.Validate(body); err != nil {
					reject(w, m, route, err)
					return
				}
				observe(m, route, true)
				next.ServeHTTP(w, r)
				return
			}
		}

		for name, vals := range r.URL.Query() {
			if len(vals) > 0 {
				payload[name] = v.decodeScalar(name, vals[0])
			}
		}
		for name, val := range routing.Params(r.Context()) {
			payload[name] = v.decodeScalar(name, val)
		}

		if err := v.Validate(payload); err != nil {
			reject(w, m, route, err)
			return
		}
		observe(m, route, true)
		next.ServeHTTP(w, r)
	})
}

// decodeScalar parses a textual parameter value according to the declared
// type of the named property. This is format decoding of the transport
// representation, not coercion: the body payload is never touched.
func (v *RequestValidator) decodeScalar(name, raw string) any {
	s := v.root.Value
	if s == nil || s.Properties == nil {
		return raw
	}
	prop, ok := s.Properties[name]
	if !ok || prop.Value == nil {
		return raw
	}
	switch prop.Value.Type {
	case "integer", "number", "boolean":
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			return parsed
		}
	}
	return raw
}

func reject(w http.ResponseWriter, m *Metrics, route string, err error) {
	observe(m, route, false)
	verr, ok := err.(*Error)
	if !ok {
		verr = &Error{Reason: err.Error()}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": verr})
}
