package server

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WebSocketLogger narrows the logging surface used by the websocket layer.
type WebSocketLogger interface {
	Info(msg string, userID uuid.UUID)
	Error(msg string, userID uuid.UUID, err error)
}

type zapWebSocketLogger struct {
	logger *zap.Logger
}

func NewWebSocketLogger(logger *zap.Logger) WebSocketLogger {
	return &zapWebSocketLogger{logger: logger.With(zap.String("component", "websocket"))}
}

func (l *zapWebSocketLogger) Info(msg string, userID uuid.UUID) {
	l.logger.Info(msg, zap.String("user_id", userID.String()))
}

func (l *zapWebSocketLogger) Error(msg string, userID uuid.UUID, err error) {
	l.logger.Error(msg, zap.String("user_id", userID.String()), zap.Error(err))
}
