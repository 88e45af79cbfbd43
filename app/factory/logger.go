package factory

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// NewModuleLogger returns a logger tagged with the module name so log lines
// can be traced back to the component that wrote them.
func NewModuleLogger(module string) logrus.FieldLogger {
	return logrus.StandardLogger().WithField("module", module)
}

// LoggerWithContext enriches a logger with the request id when the inbound
// request carries one.
func LoggerWithContext(logger logrus.FieldLogger, ctx echo.Context) logrus.FieldLogger {
	requestID := ctx.Request().Header.Get(echo.HeaderXRequestID)
	if requestID == "" {
		requestID = ctx.Response().Header().Get(echo.HeaderXRequestID)
	}
	if requestID == "" {
		return logger
	}
	return logger.WithField("request_id", requestID)
}
