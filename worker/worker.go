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

package worker

import (
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/alan-mat/askdoc/internal/answer"
	"github.com/alan-mat/askdoc/internal/tasks"
	"github.com/alan-mat/askdoc/internal/transport"
)

type Config struct {
	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisDB       int

	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		RedisAddr:   "localhost:6379",
		Concurrency: 10,
	}
}

// Worker consumes answer tasks and streams their events back through
// the transport. Each task runs on its own goroutine, so one stalled
// generation backend call never blocks unrelated requests.
type Worker struct {
	config   Config
	streamer *answer.Streamer
}

func New(config Config, streamer *answer.Streamer) *Worker {
	return &Worker{
		config:   config,
		streamer: streamer,
	}
}

func (w *Worker) Start() error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     w.config.RedisAddr,
		Username: w.config.RedisUsername,
		Password: w.config.RedisPassword,
		DB:       w.config.RedisDB,
	})
	defer rdb.Close()

	concurrency := w.config.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}

	asynqServer := asynq.NewServerFromRedisClient(
		rdb,
		asynq.Config{
			Concurrency: concurrency,
		},
	)

	t := transport.NewRedisTransport(rdb)

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeAnswer, tasks.NewAnswerTaskHandler(t, w.streamer))

	slog.Info("worker starting", "concurrency", concurrency)
	return asynqServer.Run(mux)
}
