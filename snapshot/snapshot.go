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

// Package snapshot renders the credential state of every endpoint into a
// flat sectioned TOML file and keeps that file up to date from a single
// background writer.
package snapshot

import (
	"bytes"
	"fmt"

	"github.com/pelletier/go-toml"
)

// Placeholder is written in place of any absent value.
const Placeholder = "N/A"

// Record is the persisted view of one endpoint.
type Record struct {
	ClientKey        string `toml:"client_key"`
	AuthorizationKey string `toml:"authorization_key"`
	PrivateKey       string `toml:"private_key"`
	PublicKey        string `toml:"public_key"`
}

// Document maps endpoint identifiers to their records. Each identifier
// becomes one section of the rendered file.
type Document map[string]Record

// Source provides the Document to render. It must return a consistent copy
// that the writer can keep without further locking.
type Source interface {
	Snapshot() Document
}

// NewRecord returns a Record with every empty value replaced by Placeholder.
func NewRecord(clientKey, authorizationKey, privateKey, publicKey string) Record {
	return Record{
		ClientKey:        orPlaceholder(clientKey),
		AuthorizationKey: orPlaceholder(authorizationKey),
		PrivateKey:       orPlaceholder(privateKey),
		PublicKey:        orPlaceholder(publicKey),
	}
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

// Render encodes doc as TOML with one section per identifier, in sorted
// order, and the record fields in declaration order.
func Render(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf).Order(toml.OrderPreserve).Indentation("")
	if err := enc.Encode(map[string]Record(doc)); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a rendered snapshot. It is used to inspect the file in
// tests and tooling; the running process never reads the file back.
func Parse(data []byte) (Document, error) {
	doc := Document{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return doc, nil
}
