package ghost

import (
	"fmt"
	"net/http"

	"github.com/imroc/req/v3"

	"github.com/hpungsan/ghostmcp/internal/errors"
)

// apiErrorBody is Ghost's error envelope: {"errors":[{"type":..., "message":..., "context":...}]}.
type apiErrorBody struct {
	Errors []apiError `json:"errors"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Context string `json:"context"`
}

// Ghost error types that change how a failure is classified.
const (
	typeNotFound        = "NotFoundError"
	typeUpdateCollision = "UpdateCollisionError"
	typeValidation      = "ValidationError"
	typeUnauthorized    = "UnauthorizedError"
	typeNoPermission    = "NoPermissionError"
)

// handleAPIError converts a req result into a GhostError, or nil on success.
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if resp != nil && resp.Response != nil && resp.IsErrorState() {
		return classify(resp.StatusCode, firstAPIError(resp), operation)
	}
	if requestErr != nil {
		return errors.NewUpstream(fmt.Sprintf("%s: %v", operation, requestErr))
	}
	return nil
}

func firstAPIError(resp *req.Response) apiError {
	if body, ok := resp.ErrorResult().(*apiErrorBody); ok && body != nil && len(body.Errors) > 0 {
		return body.Errors[0]
	}
	return apiError{Message: resp.Status}
}

func classify(status int, e apiError, operation string) *errors.GhostError {
	msg := e.Message
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	msg = operation + ": " + msg

	switch {
	case status == http.StatusNotFound || e.Type == typeNotFound:
		gErr := errors.NewNotFound(operation)
		gErr.Message = msg
		return gErr
	case status == http.StatusConflict || e.Type == typeUpdateCollision:
		return errors.NewConflict(msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden ||
		e.Type == typeUnauthorized || e.Type == typeNoPermission:
		return errors.NewUnauthorized(msg)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || e.Type == typeValidation:
		return errors.NewInvalidRequest(msg)
	default:
		gErr := errors.NewUpstream(msg)
		gErr.Details = map[string]any{"status": status}
		return gErr
	}
}
