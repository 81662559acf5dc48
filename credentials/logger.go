/*
Copyright 2026 The Flux authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package credentials

import (
	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/Wjiuwa/KeyGenOverApi/masktoken"
)

// newErrorLogger returns a retryablehttp.LeveledLogger that only logs
// errors to the given logr.Logger, with the given secrets masked from every
// string and error value.
func newErrorLogger(log logr.Logger, secrets ...string) retryablehttp.LeveledLogger {
	return &errorLogger{log: log, secrets: secrets}
}

// errorLogger is a wrapper around logr.Logger that implements the
// retryablehttp.LeveledLogger interface while only logging errors.
type errorLogger struct {
	log     logr.Logger
	secrets []string
}

func (l *errorLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Info(masktoken.MaskTokens(msg, l.secrets...), l.mask(keysAndValues)...)
}

func (l *errorLogger) Info(msg string, keysAndValues ...interface{}) {
	// Do nothing.
}

func (l *errorLogger) Debug(msg string, keysAndValues ...interface{}) {
	// Do nothing.
}

func (l *errorLogger) Warn(msg string, keysAndValues ...interface{}) {
	// Do nothing.
}

func (l *errorLogger) mask(keysAndValues []interface{}) []interface{} {
	masked := make([]interface{}, len(keysAndValues))
	for i, v := range keysAndValues {
		// keys are never secret
		if i%2 == 0 {
			masked[i] = v
			continue
		}
		switch value := v.(type) {
		case string:
			masked[i] = masktoken.MaskTokens(value, l.secrets...)
		case error:
			masked[i] = masktoken.MaskError(value, l.secrets...)
		case interface{ String() string }:
			masked[i] = masktoken.MaskTokens(value.String(), l.secrets...)
		default:
			masked[i] = v
		}
	}
	return masked
}
