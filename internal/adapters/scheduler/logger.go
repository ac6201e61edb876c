package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/okian/hotitems/pkg/logger"
)

// asynqLogger routes asynq's internal logging through our logger.
type asynqLogger struct {
	l logger.Logger
}

// NewAsynqLogger adapts l to asynq.Logger.
func NewAsynqLogger(l logger.Logger) asynq.Logger {
	return asynqLogger{l: l}
}

func (a asynqLogger) Debug(args ...interface{}) {
	a.l.Debug(context.Background(), fmt.Sprint(args...))
}

func (a asynqLogger) Info(args ...interface{}) {
	a.l.Info(context.Background(), fmt.Sprint(args...))
}

func (a asynqLogger) Warn(args ...interface{}) {
	a.l.Warn(context.Background(), fmt.Sprint(args...))
}

func (a asynqLogger) Error(args ...interface{}) {
	a.l.Error(context.Background(), fmt.Sprint(args...))
}

func (a asynqLogger) Fatal(args ...interface{}) {
	a.l.Fatal(context.Background(), fmt.Sprint(args...))
}
