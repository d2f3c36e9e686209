package httpext

import (
	"net/http"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// JsonError writes a JSON error response with the specified status code
func JsonError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, code, ErrorResponse{Error: message})
}

// JsonErrorWithDetails writes an error with a human readable description,
// typically the reason a request failed validation.
func JsonErrorWithDetails(w http.ResponseWriter, code int, err ErrorResponse) {
	WriteJSON(w, code, err)
}
