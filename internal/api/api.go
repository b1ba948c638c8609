// Package api defines shared wire helpers and constants for the gateway.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Component type reported by the /status endpoint.
const TypeGateway = "gateway"

// Interface names identify component capabilities.
const (
	InterfaceStatusable = "statusable"
	InterfaceTaskable   = "taskable"
	InterfaceObservable = "observable"
)

// Error codes used in error response bodies.
const (
	ErrorValidation = "validation_error"
	ErrorNotFound   = "not_found"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error response with the given code and message.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

// ParseIntParam parses an integer query parameter with bounds validation.
// Returns defaultVal if value is empty.
// Returns error if value is invalid or out of bounds [min, max].
func ParseIntParam(value string, min, max, defaultVal int) (int, error) {
	if value == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("must be a valid integer")
	}
	if v < min || v > max {
		return 0, fmt.Errorf("must be between %d and %d", min, max)
	}
	return v, nil
}
