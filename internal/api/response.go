package api

import (
	"encoding/json"
	"net/http"
)

// JSON writes data as-is with the given status. The chat protocol uses flat
// payloads the mobile client decodes directly, so there is no envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func JSONMessage(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"message": message})
}
