package logger

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/BullionBear/sequex/pkg/log"
)

// zerologFacade implements log.Logger over a zerolog.Logger, so every
// component built against the log.Logger interface runs on the same
// zerolog sink the rest of sequex uses, instead of pkg/log's stdlib
// fallback implementation.
type zerologFacade struct {
	zl zerolog.Logger
}

// NewFacade wraps zl behind the log.Logger interface.
func NewFacade(zl zerolog.Logger) log.Logger {
	return &zerologFacade{zl: zl}
}

func withFields(e *zerolog.Event, fields []log.Field) *zerolog.Event {
	for _, f := range fields {
		e = e.Interface(f.Key, f.Value)
	}
	return e
}

func (f *zerologFacade) Debug(msg string, fields ...log.Field) {
	withFields(f.zl.Debug(), fields).Msg(msg)
}

func (f *zerologFacade) Info(msg string, fields ...log.Field) {
	withFields(f.zl.Info(), fields).Msg(msg)
}

func (f *zerologFacade) Warn(msg string, fields ...log.Field) {
	withFields(f.zl.Warn(), fields).Msg(msg)
}

func (f *zerologFacade) Error(msg string, fields ...log.Field) {
	withFields(f.zl.Error(), fields).Msg(msg)
}

func (f *zerologFacade) Fatal(msg string, fields ...log.Field) {
	withFields(f.zl.Fatal(), fields).Msg(msg)
}

func (f *zerologFacade) Debugf(format string, args ...interface{}) {
	f.zl.Debug().Msgf(format, args...)
}

func (f *zerologFacade) Infof(format string, args ...interface{}) {
	f.zl.Info().Msgf(format, args...)
}

func (f *zerologFacade) Warnf(format string, args ...interface{}) {
	f.zl.Warn().Msgf(format, args...)
}

func (f *zerologFacade) Errorf(format string, args ...interface{}) {
	f.zl.Error().Msgf(format, args...)
}

func (f *zerologFacade) Fatalf(format string, args ...interface{}) {
	f.zl.Fatal().Msgf(format, args...)
}

func (f *zerologFacade) With(fields ...log.Field) log.Logger {
	ctx := f.zl.With()
	for _, field := range fields {
		ctx = ctx.Interface(field.Key, field.Value)
	}
	return &zerologFacade{zl: ctx.Logger()}
}

func (f *zerologFacade) SetLevel(level log.Level) {
	f.zl = f.zl.Level(toZerologLevel(level))
}

func (f *zerologFacade) SetOutput(w io.Writer) {
	f.zl = f.zl.Output(w)
}

func toZerologLevel(level log.Level) zerolog.Level {
	switch level {
	case log.LevelDebug:
		return zerolog.DebugLevel
	case log.LevelInfo:
		return zerolog.InfoLevel
	case log.LevelWarn:
		return zerolog.WarnLevel
	case log.LevelError:
		return zerolog.ErrorLevel
	case log.LevelFatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
