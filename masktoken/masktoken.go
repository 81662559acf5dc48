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

// Package masktoken redacts secrets from strings before they are logged or
// returned to a caller.
package masktoken

import (
	"regexp"
)

// Mask is the replacement written in place of a redacted secret.
const Mask = "*****"

// MaskTokenFromString redacts all matches for the given token from the provided string,
// replacing them with Mask.
// The token is expected to be a valid UTF-8 string.
func MaskTokenFromString(log string, token string) (string, error) {
	if token == "" {
		return log, nil
	}

	re, err := regexp.Compile(regexp.QuoteMeta(token))
	if err != nil {
		return "", err
	}

	return re.ReplaceAllString(log, Mask), nil
}

// MaskTokens redacts every given token from s. Tokens that cannot be
// compiled into a pattern are skipped, and s is returned without them
// being masked. Longer tokens are not treated differently: a token that
// contains another token is masked first only if it is listed first.
func MaskTokens(s string, tokens ...string) string {
	for _, token := range tokens {
		if masked, err := MaskTokenFromString(s, token); err == nil {
			s = masked
		}
	}
	return s
}

// MaskError returns the message of err with every given token redacted.
// It returns an empty string for a nil error.
func MaskError(err error, tokens ...string) string {
	if err == nil {
		return ""
	}
	return MaskTokens(err.Error(), tokens...)
}
