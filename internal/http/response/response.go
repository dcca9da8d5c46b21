package response

import (
	"encoding/json"
	"net/http"
)

// Bodies are deliberately flat: the frontend consumes {"accessToken": ...}
// and {"error": ...} shapes directly.

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
