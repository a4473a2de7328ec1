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

package provider

import (
	"context"
	"errors"
	"time"

	"github.com/alan-mat/askdoc/internal/api"
	"github.com/alan-mat/askdoc/internal/provider/gemini"
	"github.com/alan-mat/askdoc/internal/provider/ollama"
	"github.com/alan-mat/askdoc/internal/provider/openai"
	"github.com/alan-mat/askdoc/internal/provider/sbert"
)

var (
	ErrInvalidEmbedderType  = errors.New("no embedding provider found for given type")
	ErrInvalidGeneratorType = errors.New("no generation provider found for given type")
)

// Embedder converts text into a fixed-dimension vector by calling an
// external embedding service. A failed call yields a typed error, never
// a panic; embedders make a single attempt per request.
type Embedder interface {
	EmbedQuery(ctx context.Context, q string) ([]float32, error)
}

// Generator produces an answer for a grounding prompt.
//
// Generate never fails: backend errors are converted into displayable
// text so a broken generation service degrades to a message instead of
// aborting the request. GenerateStream fails only if the stream cannot
// be opened at all.
type Generator interface {
	Generate(ctx context.Context, prompt string) string
	GenerateStream(ctx context.Context, prompt string) (api.CompletionStream, error)
}

type EmbedderType int
type GeneratorType int

const (
	EmbedderTypeSbert EmbedderType = iota
	EmbedderTypeOllama
	EmbedderTypeOpenAI
	EmbedderTypeGemini
)

const (
	GeneratorTypeOllama GeneratorType = iota
	GeneratorTypeOpenAI
	GeneratorTypeGemini
)

var embedderTypeMap = map[string]EmbedderType{
	"sbert":  EmbedderTypeSbert,
	"ollama": EmbedderTypeOllama,
	"openai": EmbedderTypeOpenAI,
	"gemini": EmbedderTypeGemini,
}

var generatorTypeMap = map[string]GeneratorType{
	"ollama": GeneratorTypeOllama,
	"openai": GeneratorTypeOpenAI,
	"gemini": GeneratorTypeGemini,
}

// EmbedderConfig carries everything an embedding provider needs. It is
// built once at process start and passed in explicitly; providers never
// read the environment themselves.
type EmbedderConfig struct {
	// URL is the full embedding endpoint for the sbert provider and the
	// service base URL for the others.
	URL        string
	Model      string
	Dimensions uint
	Timeout    time.Duration
	APIKey     string
}

type GeneratorConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	APIKey  string
}

func NewEmbedder(name string, conf EmbedderConfig) (Embedder, error) {
	t, ok := embedderTypeMap[name]
	if !ok {
		return nil, ErrInvalidEmbedderType
	}

	switch t {
	case EmbedderTypeSbert:
		return sbert.New(sbert.Config{
			URL:        conf.URL,
			Dimensions: conf.Dimensions,
			Timeout:    conf.Timeout,
		}), nil
	case EmbedderTypeOllama:
		return ollama.New(ollama.Config{
			Endpoint:     conf.URL,
			EmbedModel:   conf.Model,
			Dimensions:   conf.Dimensions,
			EmbedTimeout: conf.Timeout,
		}), nil
	case EmbedderTypeOpenAI:
		return openai.New(openai.Config{
			APIKey:     conf.APIKey,
			BaseURL:    conf.URL,
			EmbedModel: conf.Model,
			Dimensions: conf.Dimensions,
		}), nil
	case EmbedderTypeGemini:
		return gemini.New(gemini.Config{
			APIKey:     conf.APIKey,
			EmbedModel: conf.Model,
			Dimensions: conf.Dimensions,
		})
	default:
		return nil, ErrInvalidEmbedderType
	}
}

func NewGenerator(name string, conf GeneratorConfig) (Generator, error) {
	t, ok := generatorTypeMap[name]
	if !ok {
		return nil, ErrInvalidGeneratorType
	}

	switch t {
	case GeneratorTypeOllama:
		return ollama.New(ollama.Config{
			Endpoint:        conf.BaseURL,
			GenerateModel:   conf.Model,
			GenerateTimeout: conf.Timeout,
		}), nil
	case GeneratorTypeOpenAI:
		return openai.New(openai.Config{
			APIKey:  conf.APIKey,
			BaseURL: conf.BaseURL,
			Model:   conf.Model,
		}), nil
	case GeneratorTypeGemini:
		return gemini.New(gemini.Config{
			APIKey: conf.APIKey,
			Model:  conf.Model,
		})
	default:
		return nil, ErrInvalidGeneratorType
	}
}
