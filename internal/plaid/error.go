package plaid

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from Plaid. Body holds the response bytes as
// received so the HTTP layer can relay the nested error object verbatim;
// ErrorCode/ErrorMessage are the parsed fields when the body was a Plaid error
// object.
type APIError struct {
	Operation    string
	StatusCode   int
	ErrorCode    string
	ErrorMessage string
	Body         json.RawMessage
}

func newAPIError(operation string, statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Operation:  operation,
		StatusCode: statusCode,
		Body:       json.RawMessage(body),
	}
	var parsed struct {
		ErrorCode    string `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.ErrorCode = parsed.ErrorCode
		apiErr.ErrorMessage = parsed.ErrorMessage
	}
	return apiErr
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("plaid %s failed: %s: %s", e.Operation, e.ErrorCode, e.ErrorMessage)
	}
	return fmt.Sprintf("plaid %s failed: status %d: %s", e.Operation, e.StatusCode, strings.TrimSpace(string(e.Body)))
}
