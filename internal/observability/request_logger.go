package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request and feeds the request counters.
// Handler errors are rendered here through the app error handler so the
// logged status is the one the client receives.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		chainErr := c.Next()
		if chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		latency := time.Since(start)
		route := c.Route().Path

		fields := []zap.Field{
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", c.IP()),
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error("request failed", append(fields, zap.Error(chainErr))...)
		case status >= fiber.StatusBadRequest:
			logger.Info("request rejected", fields...)
		default:
			logger.Info("request", fields...)
		}

		metrics.RecordRequest(route, c.Method(), status, latency)
		return nil
	}
}
