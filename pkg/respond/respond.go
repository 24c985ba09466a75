package respond

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// JSON writes data as a JSON body. Responses are marked no-store.
func JSON(w http.ResponseWriter, r *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// Error writes {"error": message}, plus request_id when the RequestID
// middleware ran.
func Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	body := map[string]string{"error": message}
	if id := middleware.GetReqID(r.Context()); id != "" {
		body["request_id"] = id
	}
	JSON(w, r, code, body)
}
