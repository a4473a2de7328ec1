// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

// Package sbert embeds text through a sentence-transformers sidecar
// service exposing a single endpoint: POST {text} -> {embedding}.
package sbert

import (
	"context"
	"fmt"
	"time"

	"github.com/alan-mat/askdoc/internal/api"
	"github.com/alan-mat/askdoc/internal/http"
)

const (
	DefaultURL = "http://localhost:8000/embed"

	defaultTimeout = 60 * time.Second
)

type Config struct {
	// URL is the full endpoint, path included.
	URL string

	// Dimensions is enforced on every embedding; zero disables the check.
	Dimensions uint

	Timeout time.Duration
}

type Provider struct {
	client http.Client
	conf   Config
}

func New(conf Config) *Provider {
	if conf.URL == "" {
		conf.URL = DefaultURL
	}
	if conf.Timeout == 0 {
		conf.Timeout = defaultTimeout
	}

	return &Provider{
		client: http.NewClient(conf.URL, http.WithTimeout(conf.Timeout)),
		conf:   conf,
	}
}

// EmbedQuery makes a single attempt per call; callers own any retry
// policy.
func (p *Provider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	payload := map[string]any{
		"text": q,
	}

	result, err := p.client.Request(ctx, http.MethodPost, "", payload)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	raw, ok := result["embedding"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing 'embedding' field", api.ErrMalformedResponse)
	}

	vec := make([]float32, 0, len(raw))
	for _, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: non-numeric embedding value", api.ErrMalformedResponse)
		}
		vec = append(vec, float32(f))
	}

	if p.conf.Dimensions > 0 && uint(len(vec)) != p.conf.Dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", api.ErrDimensionMismatch, p.conf.Dimensions, len(vec))
	}

	return vec, nil
}
