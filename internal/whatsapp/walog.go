package whatsapp

import (
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/puntodigital/cursosbot/internal/logger"
)

// logAdapter bridges whatsmeow's logger interface onto the
// application's structured logger.
type logAdapter struct {
	log *logger.Logger
}

func newLogAdapter(log *logger.Logger, module string) waLog.Logger {
	return &logAdapter{log: log.WithModule(module)}
}

func (a *logAdapter) Errorf(msg string, args ...interface{}) { a.log.Errorf(msg, args...) }
func (a *logAdapter) Warnf(msg string, args ...interface{})  { a.log.Warnf(msg, args...) }
func (a *logAdapter) Infof(msg string, args ...interface{})  { a.log.Infof(msg, args...) }
func (a *logAdapter) Debugf(msg string, args ...interface{}) { a.log.Debugf(msg, args...) }

func (a *logAdapter) Sub(module string) waLog.Logger {
	return &logAdapter{log: a.log.WithField("submodule", module)}
}
