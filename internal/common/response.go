package common

import (
	"encoding/json"
	"log"
	"net/http"
	"reflect"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type SuccessResponse struct {
	Success bool        `json:"success"`
	Count   *int        `json:"count,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Success: false, Message: message})
}

// RespondWithServiceError answers with the status and message derived from err.
// Unexpected errors are logged together with the request id.
func RespondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := HTTPStatusFromError(err)
	if code == http.StatusInternalServerError {
		log.Printf("ERROR: [%s] %s %s: %v", chiMiddleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
	}
	RespondWithError(w, code, PublicMessage(err))
}

// RespondWithData wraps payload in the success envelope.
func RespondWithData(w http.ResponseWriter, code int, payload interface{}) {
	RespondWithJSON(w, code, SuccessResponse{Success: true, Data: payload})
}

// RespondWithList wraps a slice in the success envelope and adds its length as count.
func RespondWithList(w http.ResponseWriter, code int, payload interface{}) {
	count := 0
	if v := reflect.ValueOf(payload); v.Kind() == reflect.Slice {
		count = v.Len()
	}
	RespondWithJSON(w, code, SuccessResponse{Success: true, Count: &count, Data: payload})
}

func RespondWithMessage(w http.ResponseWriter, code int, message string, payload interface{}) {
	RespondWithJSON(w, code, SuccessResponse{Success: true, Message: message, Data: payload})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "message": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
