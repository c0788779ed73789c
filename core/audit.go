package core

import (
	"context"

	"github.com/sirupsen/logrus"
)

// AuthEvent describes one verification outcome.
type AuthEvent struct {
	Subject   string
	Issuer    string
	Algorithm string
	// Zero on success.
	Kind   Kind
	Reason Reason
	Err    error
}

// Success reports whether the token was accepted.
func (e AuthEvent) Success() bool { return e.Err == nil }

// AuthEventLogger records verification outcomes to an external sink.
// Implementations should be non-blocking and best-effort.
type AuthEventLogger interface {
	LogVerification(ctx context.Context, ev AuthEvent) error
}

// LogrusEventLogger writes verification outcomes to a logrus logger.
// Accepted tokens log at debug, rejections at info, server-side failures at warn.
type LogrusEventLogger struct {
	Log logrus.FieldLogger
}

func NewLogrusEventLogger(l logrus.FieldLogger) *LogrusEventLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &LogrusEventLogger{Log: l}
}

func (l *LogrusEventLogger) LogVerification(_ context.Context, ev AuthEvent) error {
	entry := l.Log.WithFields(logrus.Fields{
		"sub": ev.Subject,
		"iss": ev.Issuer,
		"alg": ev.Algorithm,
	})
	if ev.Success() {
		entry.Debug("token accepted")
		return nil
	}
	entry = entry.WithField("kind", ev.Kind).WithError(ev.Err)
	if ev.Reason != "" {
		entry = entry.WithField("reason", ev.Reason)
	}
	switch ev.Kind {
	case KindConfiguration, KindFetch:
		entry.Warn("token verification failed")
	default:
		entry.Info("token rejected")
	}
	return nil
}

type nopEventLogger struct{}

func (nopEventLogger) LogVerification(context.Context, AuthEvent) error { return nil }
