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

// Package cache provides Keyed, a thread-safe in-memory store that keeps one
// object per key and serializes access per key instead of per store. Two
// callers working on different keys never wait for each other, while callers
// working on the same key are run one at a time.
//
// The store is created empty and entries are created lazily, the first time
// a key is updated:
//
//	store, err := NewKeyed[State]()
//	// Handle any error.
//	...
//
//	err = store.Update("endpoint-a", func(s *State) error {
//	  s.Value = "new"
//	  return nil
//	})
//
// Get returns a copy of the last committed object, so the caller can read it
// without holding any lock or waiting for an update in progress:
//
//	s, found, err := store.Get("endpoint-a")
//
// The store is self-instrumenting and exports metrics about its operations if
// it is configured with a metrics registerer.
//
//	store, err := NewKeyed[State](WithMetricsRegisterer(reg))
package cache
