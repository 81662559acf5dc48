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
	"time"
)

// DefaultStalenessWindow is the age after which a token is derived again.
const DefaultStalenessWindow = 1800 * time.Second

// State is the credential state of one endpoint. The zero value means that
// nothing was obtained yet.
type State struct {
	// PublicKey is the last public key fetched from the endpoint.
	PublicKey string
	// AuthorizationKey is the token derived from PublicKey.
	AuthorizationKey string
	// GeneratedAt is the instant AuthorizationKey was derived.
	GeneratedAt time.Time
}

// Stale reports whether the token must be derived again at now: when there
// is no token, or when it is at least window old.
func (s State) Stale(now time.Time, window time.Duration) bool {
	if s.AuthorizationKey == "" || s.GeneratedAt.IsZero() {
		return true
	}
	return now.Sub(s.GeneratedAt) >= window
}

// Identity holds the process wide secrets used to derive every token.
type Identity struct {
	ClientKey  string
	PrivateKey string
}

// Validate returns ErrMissingIdentity if any of the keys is empty.
func (i Identity) Validate() error {
	if i.ClientKey == "" || i.PrivateKey == "" {
		return ErrMissingIdentity
	}
	return nil
}

func (i Identity) secrets() []string {
	return []string{i.ClientKey, i.PrivateKey}
}
