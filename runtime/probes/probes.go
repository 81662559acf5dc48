/*
Copyright 2020 The Flux authors

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

package probes

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-logr/logr"
)

// Checker reports an error when the process is not in the probed state.
type Checker func(req *http.Request) error

// Check is a named Checker.
type Check struct {
	Name    string
	Checker Checker
}

// Ping returns true automatically when checked.
func Ping(_ *http.Request) error {
	return nil
}

// SetupChecks configures the health and ready probes on the given router.
// Both probes include a ping check; the ready probe also runs the given
// checks, in order.
//
// The func can be used in the main.go file of your service, after
// initialisation of the router:
//
//	router := chi.NewRouter()
//	probes.SetupChecks(router, log, probes.Check{Name: "refresh", Checker: ready})
func SetupChecks(router chi.Router, log logr.Logger, ready ...Check) {
	ping := Check{Name: "ping", Checker: Ping}
	router.Get("/healthz", handler(log, ping))
	router.Get("/readyz", handler(log, append([]Check{ping}, ready...)...))
}

func handler(log logr.Logger, checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		for _, c := range checks {
			if err := c.Checker(req); err != nil {
				log.V(1).Info("probe check failed", "path", req.URL.Path, "check", c.Name, "error", err.Error())
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, "[-]%s failed: %v\n", c.Name, err)
				return
			}
		}
		fmt.Fprint(w, "ok")
	}
}
