package utils

import "go.uber.org/zap"

// NewLogger returns a zap logger named "zkrag" that writes to stderr, so
// command output on stdout stays machine readable. When debug is true it uses
// the development config (console encoding, debug level); otherwise the
// production config (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named("zkrag"), nil
}
