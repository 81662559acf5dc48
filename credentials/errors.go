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
	"errors"
	"fmt"
)

var (
	// ErrMissingIdentity is returned by NewManager when the client key or
	// the private key is empty.
	ErrMissingIdentity = errors.New("client key and private key must be set")
	// ErrUnknownEndpoint is returned for an identifier that is not part of
	// the registry.
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	// ErrEndpointUnreachable is returned for an endpoint without base URL.
	ErrEndpointUnreachable = errors.New("endpoint has no base URL")
	// ErrCredentialUnavailable is matched by the errors returned when no
	// token could be obtained for an endpoint.
	ErrCredentialUnavailable = errors.New("credential unavailable")
	// ErrRequestFailed is matched by the errors returned when an authorized
	// call was made but did not succeed.
	ErrRequestFailed = errors.New("request failed")
)

// FetchError is returned when the public key of an endpoint could not be
// retrieved.
type FetchError struct {
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch public key for endpoint '%s': %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// UnavailableError is returned by CallAuthorized when no token is available
// for the endpoint. No request is made in that case.
type UnavailableError struct {
	Endpoint string
	Err      error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("credential unavailable for endpoint '%s'", e.Endpoint)
	}
	return fmt.Sprintf("credential unavailable for endpoint '%s': %v", e.Endpoint, e.Err)
}

// Is returns true for ErrCredentialUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrCredentialUnavailable
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// RequestError is returned by CallAuthorized when the request failed, the
// endpoint answered with a status other than 200, or the body was not JSON.
// StatusCode is zero when no response was received.
type RequestError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to endpoint '%s' failed with status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("request to endpoint '%s' failed: %v", e.Endpoint, e.Err)
}

// Is returns true for ErrRequestFailed.
func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
