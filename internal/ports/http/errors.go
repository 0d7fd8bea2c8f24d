package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dogma-project/dogma/common"
)

// errorEnvelope is the wire shape of §6: {exception, message}. It
// intentionally diverges from commonhttp's {code, title, message} shape
// used by the rest of the dogma-project service family, since this surface
// is specified independently.
type errorEnvelope struct {
	Exception string `json:"exception"`
	Message   string `json:"message"`
}

// writeError maps a domain error to its HTTP status and {exception,
// message} body, reusing the same typed-error taxonomy the rest of the
// ambient stack switches on.
func writeError(c *fiber.Ctx, err error) error {
	status, kind := statusAndKind(err)

	return c.Status(status).JSON(errorEnvelope{Exception: kind, Message: err.Error()})
}

func statusAndKind(err error) (int, string) {
	switch e := err.(type) {
	case common.NotFoundError:
		return fiber.StatusNotFound, e.Kind
	case common.ConflictError:
		return fiber.StatusConflict, e.Kind
	case common.ValidationError:
		return fiber.StatusBadRequest, e.Kind
	case common.ValidationKnownFieldsError:
		return fiber.StatusBadRequest, "ValidationError"
	case common.ValidationUnknownFieldsError:
		return fiber.StatusBadRequest, "ValidationError"
	case common.ReadOnlyError:
		return fiber.StatusServiceUnavailable, "ReadOnly"
	case common.QuotaExceededError:
		return fiber.StatusTooManyRequests, "QuotaExceeded"
	case common.UnauthorizedError:
		return fiber.StatusUnauthorized, "Unauthenticated"
	case common.ForbiddenError:
		return fiber.StatusForbidden, "PermissionDenied"
	case common.StorageError:
		return fiber.StatusInternalServerError, "StorageError"
	case common.ReplicationUnavailableError:
		return fiber.StatusServiceUnavailable, "ReplicationUnavailable"
	case common.InternalServerError:
		return fiber.StatusInternalServerError, "InternalError"
	default:
		return fiber.StatusInternalServerError, "InternalError"
	}
}
