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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	// HeaderAuthorizationKey carries the token of an authorized call.
	HeaderAuthorizationKey = "Authorization-Key"
	// HeaderClientKey carries the client key of an authorized call.
	HeaderClientKey = "Client-Key"
)

// CallAuthorized makes sure a fresh token is available for endpoint and
// then requests GET {base}/{path} with it. It returns the response body if
// the endpoint answered 200 with a JSON body.
//
// If no token can be obtained the returned error is an *UnavailableError
// and no request is made. Any other failure is a *RequestError. The request
// is not retried.
func (m *Manager) CallAuthorized(ctx context.Context, endpoint, path string) (json.RawMessage, error) {
	token, err := m.ensureFreshToken(ctx, endpoint)
	if err == nil && token == "" {
		err = errors.New("no authorization token")
	}
	if err != nil {
		m.logFetchFailure(endpoint, err)
		m.metrics.recordCall(endpoint, resultUnavailable)
		return nil, &UnavailableError{Endpoint: endpoint, Err: err}
	}

	body, err := m.call(ctx, endpoint, path, token)
	if err != nil {
		m.logError(err, "authorized call failed", "endpoint", endpoint, "path", path)
		m.metrics.recordCall(endpoint, resultFailure)
		return nil, err
	}
	m.metrics.recordCall(endpoint, resultSuccess)
	return body, nil
}

func (m *Manager) call(ctx context.Context, endpoint, path, token string) (json.RawMessage, error) {
	base, err := m.baseURL(endpoint)
	if err != nil {
		return nil, &RequestError{Endpoint: endpoint, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	callURL := fmt.Sprintf("%s/%s", base, strings.TrimPrefix(path, "/"))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, callURL, nil)
	if err != nil {
		return nil, &RequestError{Endpoint: endpoint, Err: fmt.Errorf("failed to create a new request: %w", err)}
	}
	req.Header.Set(HeaderAuthorizationKey, token)
	req.Header.Set(HeaderClientKey, m.identity.ClientKey)
	req.Header.Set("Accept", "application/json")

	resp, err := m.callClient.Do(req)
	if err != nil {
		return nil, &RequestError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, m.maxResponseSize))
		return nil, &RequestError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}

	// Headers can lie, so instead of trusting resp.ContentLength, read one
	// byte past the limit to detect oversized bodies.
	body, err := io.ReadAll(io.LimitReader(resp.Body, m.maxResponseSize+1))
	if err != nil {
		return nil, &RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if int64(len(body)) > m.maxResponseSize {
		return nil, &RequestError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("response is larger than the max size of %d bytes", m.maxResponseSize),
		}
	}
	if !json.Valid(body) {
		return nil, &RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: errors.New("response is not valid JSON")}
	}
	return json.RawMessage(body), nil
}
