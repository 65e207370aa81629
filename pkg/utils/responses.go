package utils

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, code int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func ResponseSuccess(w http.ResponseWriter, message string, data any) {
	writeEnvelope(w, http.StatusOK, Response{Status: true, Message: message, Data: data})
}

func ResponseCreated(w http.ResponseWriter, message string, data any) {
	writeEnvelope(w, http.StatusCreated, Response{Status: true, Message: message, Data: data})
}

// ResponseError writes a failed envelope. errors carries per-field detail
// and may be nil.
func ResponseError(w http.ResponseWriter, code int, message string, errors any) {
	if message == "" {
		message = http.StatusText(code)
	}
	writeEnvelope(w, code, Response{Status: false, Message: message, Errors: errors})
}

func ResponseBadRequest(w http.ResponseWriter, message string, errors any) {
	ResponseError(w, http.StatusBadRequest, message, errors)
}

func ResponseUnauthorized(w http.ResponseWriter, message string) {
	ResponseError(w, http.StatusUnauthorized, message, nil)
}

func ResponseForbidden(w http.ResponseWriter, message string) {
	ResponseError(w, http.StatusForbidden, message, nil)
}

func ResponseNotFound(w http.ResponseWriter, message string) {
	ResponseError(w, http.StatusNotFound, message, nil)
}

func ResponseConflict(w http.ResponseWriter, message string) {
	ResponseError(w, http.StatusConflict, message, nil)
}

func ResponseInternalError(w http.ResponseWriter, message string) {
	ResponseError(w, http.StatusInternalServerError, message, nil)
}
