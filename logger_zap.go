package talespin

import (
	"go.uber.org/zap"
)

// zapLogger adapts a zap.SugaredLogger to Logger. Fields are attached with
// SugaredLogger.With so they show up as structured keys.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps l. A nil logger yields NopLogger.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		return NopLogger()
	}
	return &zapLogger{sugar: l.Sugar()}
}

func (z *zapLogger) WithField(key string, value any) Logger {
	return &zapLogger{sugar: z.sugar.With(key, value)}
}

func (z *zapLogger) Debug(args ...any)                 { z.sugar.Debug(args...) }
func (z *zapLogger) Debugf(format string, args ...any) { z.sugar.Debugf(format, args...) }
func (z *zapLogger) Debugln(args ...any)               { z.sugar.Debugln(args...) }
func (z *zapLogger) Info(args ...any)                  { z.sugar.Info(args...) }
func (z *zapLogger) Infof(format string, args ...any)  { z.sugar.Infof(format, args...) }
func (z *zapLogger) Infoln(args ...any)                { z.sugar.Infoln(args...) }
func (z *zapLogger) Warn(args ...any)                  { z.sugar.Warn(args...) }
func (z *zapLogger) Warnf(format string, args ...any)  { z.sugar.Warnf(format, args...) }
func (z *zapLogger) Warnln(args ...any)                { z.sugar.Warnln(args...) }
func (z *zapLogger) Error(args ...any)                 { z.sugar.Error(args...) }
func (z *zapLogger) Errorf(format string, args ...any) { z.sugar.Errorf(format, args...) }
func (z *zapLogger) Errorln(args ...any)               { z.sugar.Errorln(args...) }
