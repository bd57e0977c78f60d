package middleware

import (
	"net/http/httptest"
	"testing"

	"chirp/internal/models"
	"chirp/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracingMiddleware_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() { observability.Tracer = prev })

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/posts/:id", func(c *fiber.Ctx) error {
		c.Locals(LocalUser, &models.User{ID: 4})
		c.Locals(LocalUserID, uint(4))
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/posts/1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /posts/:id", span.Name())
	assert.Contains(t, span.Attributes(), attribute.String("http.path", "/posts/1"))
	assert.Contains(t, span.Attributes(), attribute.String("http.route", "/posts/:id"))
	assert.Equal(t, span.SpanContext().TraceID().String(), resp.Header.Get("X-Trace-ID"))
	assert.Contains(t, span.Attributes(), attribute.Int("http.status_code", fiber.StatusNoContent))
	assert.Contains(t, span.Attributes(), attribute.String("user.id", "4"))
}
