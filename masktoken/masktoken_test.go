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

package masktoken

import (
	"errors"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
)

func Test_MaskTokenFromError(t *testing.T) {
	tests := []struct {
		name           string
		token          string
		expectErr      bool
		originalErrStr string
		expectedErrStr string
	}{
		{
			name:           "no token",
			token:          "8h0387hdyehbwwa45",
			originalErrStr: "Cannot post to github",
			expectedErrStr: "Cannot post to github",
		},
		{
			name:           "empty token",
			token:          "",
			originalErrStr: "Cannot post to github",
			expectedErrStr: "Cannot post to github",
		},
		{
			name:           "exact token",
			token:          "8h0387hdyehbwwa45",
			originalErrStr: "Cannot post to github with token 8h0387hdyehbwwa45",
			expectedErrStr: "Cannot post to github with token *****",
		},
		{
			name:           "non-exact token",
			token:          "8h0387hdyehbwwa45",
			originalErrStr: `Cannot post to github with token 8h0387hdyehbwwa45\\n`,
			expectedErrStr: `Cannot post to github with token *****\\n`,
		},
		{
			name:           "extra text in front token",
			token:          "8h0387hdyehbwwa45",
			originalErrStr: `Cannot post to github with token metoo8h0387hdyehbwwa45\\n`,
			expectedErrStr: `Cannot post to github with token metoo*****\\n`,
		},
		{
			name:           "extra text in front token",
			token:          "8h0387hdyehbwwa45踙",
			originalErrStr: `Cannot post to github with token metoo8h0387hdyehbwwa45踙\\n`,
			expectedErrStr: `Cannot post to github with token metoo*****\\n`,
		},
		{
			name:           "return error on invalid UTF-8 string",
			token:          "\x18\xd0\xfa\xab\xb2\x93\xbb;\xc0l\xf4\xdc",
			originalErrStr: `Cannot post to github with token \x18\xd0\xfa\xab\xb2\x93\xbb;\xc0l\xf4\xdc\\n`,
			expectedErrStr: ``,
			expectErr:      true,
		},
		{
			name:           "unescaped token",
			token:          "8h0387hdyehbwwa45\\",
			originalErrStr: `Cannot post to github with token metoo8h0387hdyehbwwa45\\\n`,
			expectedErrStr: `Cannot post to github with token metoo*****\\n`,
		},
		{
			name:           "token prefix is kept",
			token:          "8h0387hdyehbwwa45",
			originalErrStr: `Cannot post to github with token 8h0387hdyehbwwa4`,
			expectedErrStr: `Cannot post to github with token 8h0387hdyehbwwa4`,
		},
		{
			name:           "invalid chars",
			token:          "8h0387hdyehbwwa45(?!\\/)",
			originalErrStr: `Cannot post to github`,
			expectedErrStr: `Cannot post to github`,
		},
	}

	for _, tt := range tests {
		returnedStr, err := MaskTokenFromString(tt.originalErrStr, tt.token)
		if tt.expectErr && err == nil {
			t.Fatalf("expected error for token: %s", tt.token)
		}

		if !tt.expectErr && err != nil {
			t.Fatalf("returned unexpected error: %s", err)
		}

		if !strings.Contains(returnedStr, tt.expectedErrStr) {
			t.Errorf("expected returned string '%s' to contain '%s'",
				returnedStr, tt.expectedErrStr)
		}
	}

}

func TestMaskTokens(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		tokens   []string
		expected string
	}{
		{
			name:     "no tokens",
			input:    "GET http://svc/GetKey/ck-123/ failed",
			expected: "GET http://svc/GetKey/ck-123/ failed",
		},
		{
			name:     "client key in url",
			input:    "GET http://svc/GetKey/ck-123/ failed",
			tokens:   []string{"ck-123"},
			expected: "GET http://svc/GetKey/*****/ failed",
		},
		{
			name:     "several secrets",
			input:    "client=ck-123 private=pk-456 token=abcdef",
			tokens:   []string{"ck-123", "pk-456", "abcdef"},
			expected: "client=***** private=***** token=*****",
		},
		{
			name:     "short secrets",
			input:    "dial http://svc/GetKey/ck/: connection refused, pk",
			tokens:   []string{"ck", "pk"},
			expected: "dial http://svc/GetKey/*****/: connection refused, *****",
		},
		{
			name:     "repeated secret",
			input:    "ckck ck",
			tokens:   []string{"ck"},
			expected: "********** *****",
		},
		{
			name:     "empty tokens are ignored",
			input:    "client=ck-123",
			tokens:   []string{"", "ck-123", ""},
			expected: "client=*****",
		},
		{
			name:     "invalid UTF-8 tokens are skipped",
			input:    "client=ck-123",
			tokens:   []string{"\x18\xd0\xfa\xab", "ck-123"},
			expected: "client=*****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			g.Expect(MaskTokens(tt.input, tt.tokens...)).To(Equal(tt.expected))
		})
	}
}

func TestMaskError(t *testing.T) {
	g := NewWithT(t)

	g.Expect(MaskError(nil, "secret")).To(BeEmpty())
	g.Expect(MaskError(errors.New("dial http://svc/GetKey/secret/: refused"), "secret")).
		To(Equal("dial http://svc/GetKey/*****/: refused"))
}
