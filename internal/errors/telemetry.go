// Package errors - telemetry integration (optional)
package errors

import (
	"fmt"
	"regexp"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter receives every built EnhancedError while reporting is active.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

var (
	hasActiveReporting atomic.Bool
	activeReporter     atomic.Pointer[TelemetryReporter]
)

// SetTelemetryReporter installs the reporter. A nil or disabled reporter turns reporting off.
func SetTelemetryReporter(r TelemetryReporter) {
	if r == nil || !r.IsEnabled() {
		hasActiveReporting.Store(false)
		activeReporter.Store(nil)
		return
	}
	activeReporter.Store(&r)
	hasActiveReporting.Store(true)
}

func reportToTelemetry(ee *EnhancedError) {
	if !hasActiveReporting.Load() {
		return
	}
	ptr := activeReporter.Load()
	if ptr == nil {
		return
	}
	(*ptr).ReportError(ee)
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter initializes the Sentry SDK and returns a reporter.
// With an empty DSN the reporter is returned disabled.
func NewSentryReporter(dsn, release string) (*SentryReporter, error) {
	if dsn == "" {
		return &SentryReporter{}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		AttachStacktrace: false,
		SendDefaultPII:   false,
	}); err != nil {
		return nil, fmt.Errorf("sentry init failed: %w", err)
	}
	return &SentryReporter{enabled: true}, nil
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr != nil && sr.enabled
}

// ReportError sends a scrubbed copy of the error to Sentry.
// Validation and playback errors are user-facing noise and are skipped.
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.IsEnabled() || ee.IsReported() {
		return
	}
	if ee.Category == CategoryValidation || ee.Category == CategoryPlayback {
		return
	}

	message := scrubMessageForPrivacy(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.Component)
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))
		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = scrubMessageForPrivacy(s)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}
		scope.SetLevel(levelForCategory(ee.Category))
		scope.SetFingerprint([]string{ee.Component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = message
		event.Level = levelForCategory(ee.Category)
		event.Exception = []sentry.Exception{{
			Type:  fmt.Sprintf("%s %s", ee.Component, ee.Category),
			Value: message,
		}}
		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

func levelForCategory(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryModelUnavailable, CategoryModelLoad, CategoryDatabase:
		return sentry.LevelError
	case CategorySourceUnavailable, CategoryMQTTConnection, CategoryMQTTPublish:
		return sentry.LevelWarning
	default:
		return sentry.LevelInfo
	}
}

var (
	urlCredentialsPattern = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)[^:@/\s]+:[^@/\s]+@`)
	homePathPattern       = regexp.MustCompile(`(/home/|/Users/|C:\\Users\\)[^/\\\s]+`)
)

// scrubMessageForPrivacy removes credentials in URLs and user names in home paths.
func scrubMessageForPrivacy(msg string) string {
	msg = urlCredentialsPattern.ReplaceAllString(msg, "${1}[redacted]@")
	return homePathPattern.ReplaceAllString(msg, "${1}[user]")
}
