package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"loanhub/internal/core/domain"
	"loanhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ActorKey is the fiber local holding the authenticated *domain.Actor
const ActorKey = "actor"

// Error kinds reported to clients
const (
	kindValidation  = "validation"
	kindUnauth      = "unauthorized"
	kindForbidden   = "forbidden"
	kindNotFound    = "not_found"
	kindConflict    = "conflicting_reference"
	kindLtv         = "ltv_exceeded"
	kindSchedule    = "schedule_not_allowed"
	kindPastDate    = "past_date"
	kindInternal    = "internal"
	internalMessage = "요청을 처리하는 중 오류가 발생했습니다"
)

// actorFrom returns the actor set by the auth middleware, or nil
func actorFrom(c *fiber.Ctx) *domain.Actor {
	actor, _ := c.Locals(ActorKey).(*domain.Actor)
	return actor
}

// respondError maps a service error to a status code and error kind.
// Anything without a known kind is logged and hidden behind a generic message.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status, kind := classify(err)
	if status == fiber.StatusInternalServerError {
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		}
		if actor := actorFrom(c); actor != nil {
			fields = append(fields, zap.Uint("actor_id", actor.ID))
		}
		if id := c.Params("id"); id != "" {
			fields = append(fields, zap.String("id", id))
		}
		log.Error("request failed", fields...)
		return response.Fail(c, status, kind, internalMessage, nil)
	}

	message := err.Error()
	var fieldErrs map[string]string
	var derr *domain.Error
	if errors.As(err, &derr) {
		message = derr.Message
		fieldErrs = derr.Fields
	}
	return response.Fail(c, status, kind, message, fieldErrs)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, kindValidation
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, kindUnauth
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, kindForbidden
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, kindNotFound
	case errors.Is(err, domain.ErrConflictingReference):
		return fiber.StatusConflict, kindConflict
	case errors.Is(err, domain.ErrLtvExceeded):
		return fiber.StatusUnprocessableEntity, kindLtv
	case errors.Is(err, domain.ErrScheduleNotAllowed):
		return fiber.StatusUnprocessableEntity, kindSchedule
	case errors.Is(err, domain.ErrPastDate):
		return fiber.StatusUnprocessableEntity, kindPastDate
	}
	return fiber.StatusInternalServerError, kindInternal
}

// badBody reports an unparsable request body
func badBody(c *fiber.Ctx) error {
	return response.Fail(c, fiber.StatusBadRequest, kindValidation, "요청 본문이 올바르지 않습니다", nil)
}

// paramID parses a positive numeric path parameter
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, domain.Invalid("잘못된 ID입니다", map[string]string{name: c.Params(name)})
	}
	return uint(id), nil
}

// queryUint parses an optional numeric query parameter
func queryUint(c *fiber.Ctx, name string) (*uint, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, domain.Invalid("잘못된 값입니다", map[string]string{name: raw})
	}
	id := uint(v)
	return &id, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter in loc
func queryDate(c *fiber.Ctx, name string, loc *time.Location) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, domain.Invalid("날짜 형식이 올바르지 않습니다 (YYYY-MM-DD)", map[string]string{name: raw})
	}
	return t, nil
}
