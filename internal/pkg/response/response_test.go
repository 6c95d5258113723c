package response

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, handler fiber.Handler) (int, Response) {
	t.Helper()
	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out Response
	require.NoError(t, json.Unmarshal(body, &out))
	return resp.StatusCode, out
}

func TestSuccess(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error {
		return Success(c, "조회 성공", fiber.Map{"id": 1})
	})
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, body.Success)
	assert.Equal(t, "조회 성공", body.Message)
	assert.Equal(t, map[string]interface{}{"id": float64(1)}, body.Data)
}

func TestCreated(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error {
		return Created(c, "등록 완료", nil)
	})
	assert.Equal(t, fiber.StatusCreated, status)
	assert.True(t, body.Success)
}

func TestFail(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error {
		return Fail(c, fiber.StatusBadRequest, "validation", "입력값이 올바르지 않습니다", map[string]string{"phone": "형식 오류"})
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, body.Success)
	assert.Equal(t, "validation", body.Kind)
	assert.Equal(t, "형식 오류", body.Fields["phone"])
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name    string
		handler func(*fiber.Ctx, string) error
		status  int
	}{
		{"bad request", BadRequest, fiber.StatusBadRequest},
		{"unauthorized", Unauthorized, fiber.StatusUnauthorized},
		{"forbidden", Forbidden, fiber.StatusForbidden},
		{"not found", NotFound, fiber.StatusNotFound},
		{"conflict", Conflict, fiber.StatusConflict},
		{"internal", InternalServerError, fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, func(c *fiber.Ctx) error {
				return tt.handler(c, "실패")
			})
			assert.Equal(t, tt.status, status)
			assert.False(t, body.Success)
			assert.Equal(t, "실패", body.Error)
			assert.Empty(t, body.Kind)
		})
	}
}
