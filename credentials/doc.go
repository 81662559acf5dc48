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

// Package credentials manages the authorization tokens used to call a set of
// remote endpoints.
//
// Every endpoint issues a public key on GET {base}/GetKey/{client_key}/. The
// Manager fetches that key, derives the token as the lowercase hex SHA-256 of
// public key, client key and private key, and caches it per endpoint. A token
// is reused until it is older than the staleness window, after which the next
// caller fetches the key again and derives a new one:
//
//	m, err := credentials.NewManager(registry, identity,
//		credentials.WithLogger(log),
//		credentials.WithNotifier(writer))
//	// Handle any error.
//	...
//
//	body, err := m.CallAuthorized(ctx, "External_AM", "status")
//
// Failures to reach an endpoint never clear what was cached before: the last
// public key and token stay in place until a later attempt succeeds.
//
// The Refresher forces a new key and token for every endpoint on a fixed
// interval, each endpoint independently of the others.
package credentials
