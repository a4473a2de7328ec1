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

// Package server exposes the question answering pipeline over HTTP.
// Streamed answers travel as server-sent events relayed from the
// worker's message streams.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/alan-mat/askdoc/internal/answer"
	"github.com/alan-mat/askdoc/internal/retrieval"
	"github.com/alan-mat/askdoc/internal/transport"
)

type Config struct {
	ListenHost string
	ListenPort int

	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisDB       int
}

func DefaultConfig() Config {
	return Config{
		ListenHost: "",
		ListenPort: 8080,
		RedisAddr:  "localhost:6379",
	}
}

type Server struct {
	config    Config
	retrieval *retrieval.Service
	streamer  *answer.Streamer

	transport   transport.Transport
	asynqClient *asynq.Client
}

func New(config Config, retrieval *retrieval.Service, streamer *answer.Streamer) *Server {
	return &Server{
		config:    config,
		retrieval: retrieval,
		streamer:  streamer,
	}
}

func (s *Server) Serve() error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     s.config.RedisAddr,
		Username: s.config.RedisUsername,
		Password: s.config.RedisPassword,
		DB:       s.config.RedisDB,
	})
	defer rdb.Close()

	s.transport = transport.NewRedisTransport(rdb)
	s.asynqClient = asynq.NewClientFromRedisClient(rdb)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Post("/answer", s.handleAnswer)
		r.Get("/answer/stream", s.handleAnswerStream)
		r.Get("/traces/{id}", s.handleTrace)
		r.Get("/traces/{id}/answer", s.handleTraceAnswer)
	})

	addr := fmt.Sprintf("%s:%d", s.config.ListenHost, s.config.ListenPort)
	slog.Info("server listening", "addr", addr)
	return http.ListenAndServe(addr, r)
}
