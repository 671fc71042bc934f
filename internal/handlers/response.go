package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ciangeneway-dot/Khumalo/internal/store"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondStoreError maps the store's error taxonomy onto HTTP statuses;
// anything unrecognized is a 500.
func RespondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, store.ErrMRNConflict):
		RespondError(c, http.StatusConflict, "mrn_conflict", err)
	case errors.Is(err, store.ErrForbidden):
		RespondError(c, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, store.ErrUnsupported):
		RespondError(c, http.StatusMethodNotAllowed, "unsupported", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
