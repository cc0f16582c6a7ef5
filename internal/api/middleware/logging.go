package middleware

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// RequestLogger emits one zerolog entry per request. Query strings are not
// logged because signin carries credentials there.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			switch {
			case v.Status >= 500:
				ev = log.Error().Err(v.Error)
			case v.Status >= 400:
				ev = log.Warn()
			}
			if subject, ok := c.Get(ContextKeySubject).(string); ok {
				ev = ev.Str("subject", subject)
			}
			ev.Str("method", v.Method).
				Str("path", v.URIPath).
				Str("route", v.RoutePath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
