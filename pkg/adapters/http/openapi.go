package http

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

//go:embed openapi.yaml
var rawSpec []byte

var (
	specOnce sync.Once
	spec     *openapi3.T
	specErr  error
)

// GetSpec returns the parsed OpenAPI document describing this API.
func GetSpec() (*openapi3.T, error) {
	specOnce.Do(func() {
		loader := openapi3.NewLoader()
		spec, specErr = loader.LoadFromData(rawSpec)
		if specErr != nil {
			specErr = fmt.Errorf("failed to load openapi document: %w", specErr)
			return
		}
		if err := spec.Validate(context.Background()); err != nil {
			specErr = fmt.Errorf("invalid openapi document: %w", err)
		}
	})
	return spec, specErr
}

func (s *Server) serveSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(rawSpec)
}

// validate checks the request against the operation the route is documented
// as. It must wrap the endpoint itself (chi's With) so the full route
// pattern is known.
func (s *Server) validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		pattern := rctx.RoutePattern()
		if len(pattern) > 1 {
			pattern = strings.TrimSuffix(pattern, "/")
		}

		item := s.spec.Paths.Find(pattern)
		if item == nil || item.GetOperation(r.Method) == nil {
			s.fail(w, r, http.StatusInternalServerError, "internal error",
				fmt.Errorf("route %s %s is not documented", r.Method, pattern))
			return
		}

		params := make(map[string]string, len(rctx.URLParams.Keys))
		for i, key := range rctx.URLParams.Keys {
			params[key] = rctx.URLParams.Values[i]
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route: &routers.Route{
				Spec:      s.spec,
				Path:      pattern,
				PathItem:  item,
				Method:    r.Method,
				Operation: item.GetOperation(r.Method),
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			s.fail(w, r, http.StatusBadRequest, "invalid request", err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionID binds the {id} path parameter, unescaping it.
func sessionID(r *http.Request) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return "", fmt.Errorf("invalid format for parameter id: %w", err)
	}
	return id, nil
}
