package platform

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/prieelo/prieelo/engagement"
	"github.com/prieelo/prieelo/moderation"
	"github.com/prieelo/prieelo/phases"
)

// ErrorResponse is the wire shape of every error: a stable machine-readable
// code plus a human-readable message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var ErrAuthRequired = errors.New("authentication required")

// mapError translates domain errors into HTTP status plus stable code.
// Anything unmatched is a 500 with no detail leaked.
func mapError(err error) (int, ErrorResponse) {
	var missing *phases.MissingPrerequisiteError
	var verrs validator.ValidationErrors

	switch {
	case errors.Is(err, ErrAuthRequired):
		return http.StatusUnauthorized, ErrorResponse{Error: "AuthRequired", Message: "please sign in to continue"}
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorResponse{Error: "InvalidCredentials", Message: "invalid username or password"}
	case errors.Is(err, moderation.ErrAccountPending):
		return http.StatusForbidden, ErrorResponse{Error: "AccountPending", Message: "your account is pending approval"}
	case errors.Is(err, moderation.ErrAccountRejected):
		return http.StatusForbidden, ErrorResponse{Error: "AccountRejected", Message: "your account application was rejected"}
	case errors.Is(err, moderation.ErrAccountSuspended):
		return http.StatusForbidden, ErrorResponse{Error: "AccountSuspended", Message: "your account is suspended"}
	case errors.Is(err, moderation.ErrNotApproved):
		return http.StatusForbidden, ErrorResponse{Error: "NotApproved", Message: "your account is not approved for this action"}
	case errors.Is(err, moderation.ErrNotAdmin):
		return http.StatusForbidden, ErrorResponse{Error: "NotAdmin", Message: "admin access required"}
	case errors.Is(err, ErrNotOwner):
		return http.StatusForbidden, ErrorResponse{Error: "NotOwner", Message: "you do not own this content"}
	case errors.Is(err, engagement.ErrNotVisible):
		return http.StatusForbidden, ErrorResponse{Error: "Forbidden", Message: "this content is not available to you"}
	case errors.Is(err, moderation.ErrAccountNotFound),
		errors.Is(err, engagement.ErrTargetNotFound),
		errors.Is(err, ErrProjectNotFound),
		errors.Is(err, ErrPostNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "NotFound", Message: "not found"}
	case errors.As(err, &missing):
		return http.StatusBadRequest, ErrorResponse{Error: "MissingPrerequisite", Message: missing.Error()}
	case errors.Is(err, ErrInvalidResetToken):
		return http.StatusBadRequest, ErrorResponse{Error: "InvalidResetToken", Message: "invalid or expired reset token"}
	case errors.Is(err, phases.ErrInvalidPhaseType),
		errors.Is(err, engagement.ErrEmptyComment),
		errors.Is(err, engagement.ErrUnknownKind),
		errors.Is(err, moderation.ErrInvalidStatus),
		errors.As(err, &verrs):
		return http.StatusBadRequest, ErrorResponse{Error: "ValidationError", Message: err.Error()}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict, ErrorResponse{Error: "Conflict", Message: "resource already exists"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "InternalError", Message: "internal server error"}
	}
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		c.JSON(he.Code, ErrorResponse{Error: http.StatusText(he.Code), Message: he.Error()})
		return
	}

	status, body := mapError(err)
	if status == http.StatusInternalServerError {
		s.log.Error("handler error", "path", c.Path(), "err", err)
	}
	c.JSON(status, body)
}
