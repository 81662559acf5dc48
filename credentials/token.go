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
	"crypto/sha256"
	"encoding/hex"
)

// DeriveToken returns the authorization token for the given keys: the
// lowercase hex SHA-256 of their concatenation, in this order.
func DeriveToken(publicKey, clientKey, privateKey string) string {
	sum := sha256.Sum256([]byte(publicKey + clientKey + privateKey))
	return hex.EncodeToString(sum[:])
}
