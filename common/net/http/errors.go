package http

import (
	"errors"

	"github.com/dogma-project/dogma/common"
	"github.com/gofiber/fiber/v2"
)

// ValidationKnownFieldsError records an error that occurred during validation of known fields.
type ValidationKnownFieldsError = common.ValidationKnownFieldsError

// ValidationUnknownFieldsError records an error that occurred during validation of unknown fields.
type ValidationUnknownFieldsError = common.ValidationUnknownFieldsError

// FieldValidations is a map of known fields and their validation errors.
type FieldValidations = common.FieldValidations

// UnknownFields is a map of unknown fields and their error messages.
type UnknownFields = common.UnknownFields

// ResponseError is a struct used to return errors to the client.
type ResponseError = common.ResponseError

// WithError translates a domain error into the matching HTTP response. It is
// the single seam between the typed error taxonomy (common package) and the
// wire envelope {code, title, message}.
func WithError(c *fiber.Ctx, err error) error {
	switch e := err.(type) {
	case common.NotFoundError:
		return NotFound(c, e.Code, e.Kind, e.Error())
	case common.ConflictError:
		return Conflict(c, e.Code, e.Kind, e.Error())
	case common.ValidationError:
		return BadRequest(c, common.ValidationKnownFieldsError{
			EntityType: e.EntityType,
			Code:       e.Code,
			Title:      e.Title,
			Message:    e.Message,
		})
	case common.ReadOnlyError:
		return ServiceUnavailable(c, "READ_ONLY", "Read Only", e.Error())
	case common.QuotaExceededError:
		return TooManyRequests(c, "QUOTA_EXCEEDED", "Quota Exceeded", e.Error())
	case common.UnauthorizedError:
		return Unauthorized(c, e.Code, "Unauthenticated", e.Error())
	case common.ForbiddenError:
		return Forbidden(c, e.Code, "Permission Denied", e.Error())
	case common.StorageError:
		return InternalServerError(c, "STORAGE", "Storage Error", e.Error())
	case common.ReplicationUnavailableError:
		return ServiceUnavailable(c, "REPLICATION_UNAVAILABLE", "Replication Unavailable", e.Error())
	case common.ValidationKnownFieldsError, *common.ValidationKnownFieldsError:
		return BadRequest(c, e)
	case common.ResponseError:
		var rErr common.ResponseError
		_ = errors.As(err, &rErr)

		return JSONResponseError(c, rErr)
	default:
		var iErr common.InternalServerError
		_ = errors.As(common.ValidateInternalError(err, ""), &iErr)

		return InternalServerError(c, iErr.Code, "Internal Server Error", iErr.Error())
	}
}
