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

package main

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
)

type embeddingConfig struct {
	Provider       string `yaml:"provider"`
	URL            string `yaml:"url"`
	Model          string `yaml:"model"`
	Dimensions     uint   `yaml:"dimensions"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	APIKey         string `yaml:"api_key"`
}

type generationConfig struct {
	Provider       string `yaml:"provider"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	APIKey         string `yaml:"api_key"`
}

type vectorStoreConfig struct {
	Type       string `yaml:"type"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	DSN        string `yaml:"dsn"`
	Collection string `yaml:"collection"`
}

type redisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type serverConfig struct {
	ListenHost string `yaml:"listen_host"`
	ListenPort int    `yaml:"listen_port"`
}

type workerConfig struct {
	Workers int `yaml:"workers"`
}

type config struct {
	Server serverConfig `yaml:"server"`
	Worker workerConfig `yaml:"worker"`

	Embedding   embeddingConfig   `yaml:"embedding"`
	Generation  generationConfig  `yaml:"generation"`
	VectorStore vectorStoreConfig `yaml:"vector_store"`
	Transport   redisConfig       `yaml:"transport"`
}

// ReadConfig loads the yaml config at path and applies environment
// overrides. A missing file is not an error, the defaults describe a
// full local stack (sbert embedder, ollama generator, pgvector store).
func ReadConfig(path string) (*config, error) {
	conf := defaultConfig()

	file, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(file, conf); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(conf)
	applyDefaults(conf)
	return conf, nil
}

func defaultConfig() *config {
	return &config{
		Server: serverConfig{
			ListenPort: 8080,
		},
		Worker: workerConfig{
			Workers: 10,
		},
		Embedding: embeddingConfig{
			Provider:       "sbert",
			URL:            "http://localhost:8000/embed",
			Dimensions:     768,
			TimeoutSeconds: 60,
		},
		Generation: generationConfig{
			Provider:       "ollama",
			BaseURL:        "http://localhost:11434",
			TimeoutSeconds: 120,
		},
		VectorStore: vectorStoreConfig{
			Type:       "pgvector",
			Collection: "documents",
		},
		Transport: redisConfig{
			Addr: "localhost:6379",
		},
	}
}

func applyEnvOverrides(conf *config) {
	if v := os.Getenv("EMBED_API_URL"); v != "" {
		conf.Embedding.URL = v
	}
	if v := os.Getenv("EMBED_MODEL"); v != "" {
		conf.Embedding.Model = v
	}
	if v := os.Getenv("VECTOR_DIM"); v != "" {
		if dim, err := strconv.ParseUint(v, 10, 32); err == nil {
			conf.Embedding.Dimensions = uint(dim)
		}
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		conf.Generation.BaseURL = v
	}
	if v := os.Getenv("OLLAMA_GEN_MODEL"); v != "" {
		conf.Generation.Model = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		conf.Transport.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		conf.VectorStore.DSN = v
	}

	switch conf.Embedding.Provider {
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" && conf.Embedding.APIKey == "" {
			conf.Embedding.APIKey = v
		}
	case "gemini":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" && conf.Embedding.APIKey == "" {
			conf.Embedding.APIKey = v
		}
	}
	switch conf.Generation.Provider {
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" && conf.Generation.APIKey == "" {
			conf.Generation.APIKey = v
		}
	case "gemini":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" && conf.Generation.APIKey == "" {
			conf.Generation.APIKey = v
		}
	}
}

func applyDefaults(conf *config) {
	if conf.Server.ListenPort == 0 {
		conf.Server.ListenPort = 8080
	}
	if conf.Worker.Workers == 0 {
		conf.Worker.Workers = 10
	}
	if conf.Transport.Addr == "" {
		conf.Transport.Addr = "localhost:6379"
	}
	if conf.VectorStore.Collection == "" {
		conf.VectorStore.Collection = "documents"
	}
	if conf.Embedding.Dimensions == 0 {
		conf.Embedding.Dimensions = 768
	}
	if conf.Embedding.TimeoutSeconds == 0 {
		conf.Embedding.TimeoutSeconds = 60
	}
	if conf.Generation.TimeoutSeconds == 0 {
		conf.Generation.TimeoutSeconds = 120
	}
}
