package logger

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// CronLogger adapts a Logger to cron.Logger. Routine scheduler chatter
// (schedule, wake, run) is logged at debug level.
type CronLogger struct {
	l *Logger
}

var _ cron.Logger = CronLogger{}

// NewCronLogger returns a cron.Logger writing through l, or through the
// default logger when l is nil.
func NewCronLogger(l *Logger) CronLogger {
	return CronLogger{l: l}
}

func (c CronLogger) logger() *Logger {
	if c.l != nil {
		return c.l
	}
	return Default()
}

// Info implements cron.Logger.
func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger().Debug("cron: "+msg, kvFields(keysAndValues))
}

// Error implements cron.Logger.
func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger().Error("cron: "+msg, kvFields(keysAndValues), err)
}

// kvFields turns cron's alternating key/value list into Fields
func kvFields(keysAndValues []interface{}) Fields {
	fields := make(Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
