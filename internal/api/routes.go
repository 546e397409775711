package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler, corsOrigins []string) *mux.Router {
	r := mux.NewRouter()

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(loggingMiddleware(handler.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{headerQuotesStale},
		MaxAge:         300,
	}))

	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// mux only runs middleware on matched routes, so preflight needs one
	r.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	api := r.PathPrefix("/api/v1").Subrouter()

	// Catalog
	api.HandleFunc("/assets", handler.SearchAssets).Methods("GET")
	api.HandleFunc("/assets/{id}", handler.GetAsset).Methods("GET")

	// Holdings
	api.HandleFunc("/holdings", handler.GetHoldings).Methods("GET")
	api.HandleFunc("/holdings", handler.CreateHolding).Methods("POST")
	api.HandleFunc("/holdings/{id}", handler.UpdateHolding).Methods("PUT")
	api.HandleFunc("/holdings/{id}", handler.DeleteHolding).Methods("DELETE")

	// Portfolio
	api.HandleFunc("/portfolio", handler.GetPortfolio).Methods("GET")
	api.HandleFunc("/portfolio/summary", handler.GetSummary).Methods("GET")
	api.HandleFunc("/portfolio/reset", handler.ResetPortfolio).Methods("POST")

	// Quotes
	api.HandleFunc("/prices", handler.GetPrices).Methods("GET")
	api.HandleFunc("/prices/refresh", handler.RefreshPrices).Methods("POST")

	return r
}

func loggingMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration_ms", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("HTTP request")
		})
	}
}
