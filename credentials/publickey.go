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
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
)

const keyResponseSuccess = "success"

// keyResponse is the body returned by GET {base}/GetKey/{client_key}/.
type keyResponse struct {
	Status string `json:"status"`
	Result []struct {
		Security []struct {
			PublicKey string `json:"PublicKey"`
		} `json:"Security"`
	} `json:"result"`
}

// publicKey returns the first public key of the first result.
func (r *keyResponse) publicKey() (string, error) {
	if r.Status != keyResponseSuccess {
		return "", fmt.Errorf("key response status is '%s'", r.Status)
	}
	if len(r.Result) == 0 {
		return "", errors.New("key response has no result")
	}
	if len(r.Result[0].Security) == 0 {
		return "", errors.New("key response has no security entry")
	}
	key := r.Result[0].Security[0].PublicKey
	if key == "" {
		return "", errors.New("key response has an empty public key")
	}
	return key, nil
}

// fetchPublicKey requests the public key of endpoint without touching the
// cached state. Every error is a *FetchError.
func (m *Manager) fetchPublicKey(ctx context.Context, endpoint string) (string, error) {
	key, err := m.requestPublicKey(ctx, endpoint)
	if err != nil {
		if !errors.Is(err, ErrEndpointUnreachable) {
			m.metrics.recordFetch(endpoint, err)
		}
		return "", &FetchError{Endpoint: endpoint, Err: err}
	}
	m.metrics.recordFetch(endpoint, nil)
	return key, nil
}

func (m *Manager) requestPublicKey(ctx context.Context, endpoint string) (string, error) {
	base, err := m.baseURL(endpoint)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
	defer cancel()

	keyURL := fmt.Sprintf("%s/GetKey/%s/", base, url.PathEscape(m.identity.ClientKey))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, keyURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create a new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.keyClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("key request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, m.maxResponseSize))
		return "", fmt.Errorf("key request failed with status: %s", resp.Status)
	}

	var kr keyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, m.maxResponseSize)).Decode(&kr); err != nil {
		return "", fmt.Errorf("failed to decode key response: %w", err)
	}
	return kr.publicKey()
}
