package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// Error codes surfaced in the response envelope
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeNonTradingDay    = "NON_TRADING_DAY"
	CodeServerError      = "SERVER_ERROR"
	CodeCollectionFailed = "COLLECTION_FAILED"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope is the uniform response shape for every endpoint
type envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *apiError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{
		Success:   false,
		Error:     &apiError{Code: code, Message: message},
		Timestamp: time.Now().UTC(),
	})
}
