// Package openapi serves the API description in YAML and JSON form.
package openapi

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/wongsakornss/music-discovery-go/internal/api"
	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
)

//go:embed music-discovery.v1.yaml
var specYAML []byte

var (
	jsonOnce sync.Once
	specJSON []byte
	jsonErr  error
)

// renderJSON converts the YAML document to JSON once and caches it.
func renderJSON() ([]byte, error) {
	jsonOnce.Do(func() {
		var doc map[string]any
		if err := yaml.Unmarshal(specYAML, &doc); err != nil {
			jsonErr = err
			return
		}
		specJSON, jsonErr = json.Marshal(doc)
	})
	return specJSON, jsonErr
}

// RegisterRoutes mounts the machine-readable API description.
func RegisterRoutes(router chi.Router) {
	router.Method("GET", "/openapi.yaml", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, err := w.Write(specYAML)
		return err
	}))

	router.Method("GET", "/openapi.json", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		body, err := renderJSON()
		if err != nil {
			return apperrors.NewInternalError("OpenAPI document malformed")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, err = w.Write(body)
		return err
	}))
}
