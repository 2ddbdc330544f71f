package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fenghou-lab/hotpick/internal/api/handlers"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(reportHandler *handlers.ReportHandler, ruleHandler *handlers.RuleHandler,
	stockHandler *handlers.StockHandler, hub *Hub, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Pipeline progress stream
	r.HandleFunc("/ws", hub.HandleWS)

	api := r.PathPrefix("/api").Subrouter()

	// Reports
	api.HandleFunc("/reports", reportHandler.Create).Methods("POST")
	api.HandleFunc("/reports", reportHandler.List).Methods("GET")
	api.HandleFunc("/reports/today", reportHandler.Today).Methods("GET")
	api.HandleFunc("/reports/{id:[0-9]+}", reportHandler.Get).Methods("GET")
	api.HandleFunc("/reports/{id:[0-9]+}", reportHandler.Delete).Methods("DELETE")
	api.HandleFunc("/reports/{id:[0-9]+}/nodes", reportHandler.Nodes).Methods("GET")
	api.HandleFunc("/reports/{id:[0-9]+}/articles", reportHandler.AddArticles).Methods("POST")
	api.HandleFunc("/reports/{id:[0-9]+}/rerun", reportHandler.Rerun).Methods("POST")
	api.HandleFunc("/reports/{id:[0-9]+}/steps/{step:[0-9]+}", reportHandler.RunStep).Methods("POST")

	// Full pipeline trigger
	api.HandleFunc("/pipeline/run", reportHandler.RunFull).Methods("POST")

	// Rule configuration
	api.HandleFunc("/rules", ruleHandler.List).Methods("GET")
	api.HandleFunc("/rules/{key}", ruleHandler.Update).Methods("PUT")

	// Quotes
	api.HandleFunc("/stocks/{code:[0-9]+}/quote", stockHandler.GetQuote).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "hotpick-api",
	})
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
