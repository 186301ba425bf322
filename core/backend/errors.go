package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// newAPIError reads the FastAPI style {"detail": ...} body. Validation
// errors carry a list there, which is kept as raw JSON.
func newAPIError(statusCode int, body []byte) *APIError {
	err := &APIError{StatusCode: statusCode}

	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && len(parsed.Detail) > 0 {
		var detail string
		if json.Unmarshal(parsed.Detail, &detail) == nil {
			err.Detail = detail
		} else {
			err.Detail = string(parsed.Detail)
		}
	}
	if err.Detail == "" {
		err.Detail = http.StatusText(statusCode)
	}
	return err
}
