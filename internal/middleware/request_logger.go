package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestLogger writes one line per request. Handler errors are passed to
// echo's error handler first so the logged status is the one sent.
// The logger is also attached to the request context (zerolog.Ctx).
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			c.SetRequest(c.Request().WithContext(log.WithContext(c.Request().Context())))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			ev := log.Info()
			if res.Status >= 500 {
				ev = log.Error()
			}

			ev = ev.
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Str("method", req.Method).
				Str("path", c.Path()).
				Str("url", req.URL.String()).
				Int("status", res.Status).
				Dur("latency", time.Since(start))

			if uid, ok := c.Get(CtxUserIDKey).(int64); ok {
				ev = ev.Int64("user_id", uid)
			}
			if err != nil {
				ev = ev.Err(err)
			}
			ev.Msg("request completed")

			return nil
		}
	}
}
