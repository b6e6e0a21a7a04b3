// Package logging builds the process-wide logger: console plus a
// persistent run log file for post-mortem diagnosis.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to stderr and logFile.
func New(logFile string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.OutputPaths = []string{"stderr", logFile}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
