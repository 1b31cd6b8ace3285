package rest

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// Envelope is the success shape of every API response:
// {"success":true,"count":N,"data":...}. Count is only present on list
// responses.
type Envelope struct {
	Success bool `json:"success"`
	Count   *int `json:"count,omitempty"`
	Data    any  `json:"data"`
}

// ErrorBody is the error shape: {"success":false,"message":...,"errors":[...]}.
// Errors carries the full list of violated fields on validation failures.
type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Errors  any    `json:"errors,omitempty"`
}

// WriteData writes a success envelope with the given status and payload.
func WriteData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteList writes a success envelope for a collection, including its count.
func WriteList(w http.ResponseWriter, status int, count int, data any) {
	writeJSON(w, status, Envelope{Success: true, Count: &count, Data: data})
}

// WriteError writes an error envelope with a human-readable message.
func WriteError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorBody{Success: false, Message: message})
}

// WriteValidationError writes a 400 with the complete list of violated
// fields, not just the first.
func WriteValidationError(w http.ResponseWriter, message string, fieldErrors any) {
	writeJSON(w, http.StatusBadRequest, ErrorBody{Success: false, Message: message, Errors: fieldErrors})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}
