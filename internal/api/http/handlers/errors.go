package handlers

import (
	"errors"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/auth"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/service"
	apperrors "github.com/mateusdiasyt/oquefazeremfoz-sub002/pkg/util/errorutil"
)

// mapError turns service errors into HTTP-facing domain errors. Store errors
// fall through to errorutil.ToDomainError in the error middleware.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrStoreUnavailable):
		return apperrors.NewServiceUnavailable(err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperrors.NewUnauthorized(auth.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMalformedToken),
		errors.Is(err, auth.ErrInvalidSignature),
		errors.Is(err, auth.ErrTokenExpired):
		return apperrors.NewUnauthorized("authentication required")
	case errors.Is(err, auth.ErrForbidden):
		return apperrors.NewForbidden("insufficient role")
	case errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidResetToken),
		errors.Is(err, domain.ErrUnknownRole):
		return apperrors.NewValidationError(err.Error(), nil)
	case errors.Is(err, service.ErrEmailTaken):
		return apperrors.NewConflict(err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		return apperrors.NewNotFound("resource", nil)
	default:
		return err
	}
}
