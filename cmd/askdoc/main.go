package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"

	"github.com/alan-mat/askdoc/internal/answer"
	"github.com/alan-mat/askdoc/internal/provider"
	"github.com/alan-mat/askdoc/internal/retrieval"
	"github.com/alan-mat/askdoc/internal/vector"
	"github.com/alan-mat/askdoc/server"
	"github.com/alan-mat/askdoc/worker"
)

const (
	ProgramName   = "AskDoc"
	Version       = "v0.1.0"
	RepositoryUrl = "github.com/alan-mat/askdoc"
)

type serveCmd struct {
	Config string `arg:"--config,-c" default:"askdoc.yaml" help:"path to the configuration file"`
}

type workCmd struct {
	Config string `arg:"--config,-c" default:"askdoc.yaml" help:"path to the configuration file"`
}

type importCmd struct {
	Path       string `arg:"positional,required" help:"directory or JSON manifest of documents to import"`
	Collection string `arg:"--collection" help:"target collection (defaults to the configured one)"`
	Config     string `arg:"--config,-c" default:"askdoc.yaml" help:"path to the configuration file"`
}

type args struct {
	Serve  *serveCmd  `arg:"subcommand:serve" help:"start the AskDoc server"`
	Work   *workCmd   `arg:"subcommand:work" help:"start the AskDoc worker"`
	Import *importCmd `arg:"subcommand:import" help:"embed and store documents"`
}

func (args) Version() string {
	return fmt.Sprintf("%s %s", ProgramName, Version)
}

func (args) Epilogue() string {
	return fmt.Sprintf("For more information visit %s", RepositoryUrl)
}

func main() {
	var args args

	p, err := arg.NewParser(arg.Config{Program: strings.ToLower(ProgramName)}, &args)
	if err != nil {
		log.Fatalf("there was an error in the definition of the Go struct: %v", err)
	}
	p.MustParse(os.Args[1:])

	if p.Subcommand() == nil {
		p.WriteUsage(os.Stdout)
		os.Exit(0)
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	var cmd func(any) error

	switch p.Subcommand().(type) {
	case *serveCmd:
		cmd = startServer
	case *workCmd:
		cmd = startWorker
	case *importCmd:
		cmd = runImport
	default:
		p.FailSubcommand("unrecognized command", p.SubcommandNames()...)
	}

	if err := cmd(p.Subcommand()); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func startServer(a any) error {
	cmdArgs := a.(*serveCmd)

	conf, err := ReadConfig(cmdArgs.Config)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	ctx := context.Background()
	store, err := newStore(ctx, conf)
	if err != nil {
		return err
	}
	defer store.Close()

	streamer, svc, err := newPipeline(conf, store)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		ListenHost:    conf.Server.ListenHost,
		ListenPort:    conf.Server.ListenPort,
		RedisAddr:     conf.Transport.Addr,
		RedisUsername: conf.Transport.Username,
		RedisPassword: conf.Transport.Password,
		RedisDB:       conf.Transport.DB,
	}, svc, streamer)
	return srv.Serve()
}

func startWorker(a any) error {
	cmdArgs := a.(*workCmd)

	conf, err := ReadConfig(cmdArgs.Config)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	ctx := context.Background()
	store, err := newStore(ctx, conf)
	if err != nil {
		return err
	}
	defer store.Close()

	streamer, _, err := newPipeline(conf, store)
	if err != nil {
		return err
	}

	w := worker.New(worker.Config{
		RedisAddr:     conf.Transport.Addr,
		RedisUsername: conf.Transport.Username,
		RedisPassword: conf.Transport.Password,
		RedisDB:       conf.Transport.DB,
		Concurrency:   conf.Worker.Workers,
	}, streamer)
	return w.Start()
}

func newStore(ctx context.Context, conf *config) (vector.Store, error) {
	store, err := vector.NewStore(ctx, vector.Config{
		Type:       conf.VectorStore.Type,
		DSN:        conf.VectorStore.DSN,
		Host:       conf.VectorStore.Host,
		Port:       conf.VectorStore.Port,
		Dimensions: conf.Embedding.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	return store, nil
}

func newPipeline(conf *config, store vector.Store) (*answer.Streamer, *retrieval.Service, error) {
	embedder, err := provider.NewEmbedder(conf.Embedding.Provider, provider.EmbedderConfig{
		URL:        conf.Embedding.URL,
		Model:      conf.Embedding.Model,
		Dimensions: conf.Embedding.Dimensions,
		Timeout:    time.Duration(conf.Embedding.TimeoutSeconds) * time.Second,
		APIKey:     conf.Embedding.APIKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	generator, err := provider.NewGenerator(conf.Generation.Provider, provider.GeneratorConfig{
		BaseURL: conf.Generation.BaseURL,
		Model:   conf.Generation.Model,
		Timeout: time.Duration(conf.Generation.TimeoutSeconds) * time.Second,
		APIKey:  conf.Generation.APIKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize generation provider: %w", err)
	}

	svc := retrieval.NewService(embedder, store, conf.VectorStore.Collection)
	return answer.NewStreamer(svc, generator), svc, nil
}
