package api

import (
	"net/http"

	"catering-allocation-service/internal/api/handlers"
	"catering-allocation-service/internal/ports"
	"catering-allocation-service/internal/services"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(fleet ports.FleetRepository, allocator *services.Allocator, store ports.AttemptStore, defaultMaxAttempts int) http.Handler {
	mux := http.NewServeMux()

	allocHandler := &handlers.AllocationHandler{
		Fleet:              fleet,
		Allocator:          allocator,
		DefaultMaxAttempts: defaultMaxAttempts,
	}
	attemptHandler := &handlers.AttemptHandler{Store: store}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/allocate", allocHandler.Allocate)
	mux.HandleFunc("/attempts", attemptHandler.List)

	return loggingMiddleware(mux)
}
