package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"
	"github.com/pitabwire/frame/workerpool"
	"github.com/pitabwire/util"

	clconfig "github.com/carelingo/carelingo/config"
	"github.com/carelingo/carelingo/internal/connectutil"
	"github.com/carelingo/carelingo/internal/inference"
	"github.com/carelingo/carelingo/internal/language"
	"github.com/carelingo/carelingo/internal/translate"
	"github.com/carelingo/carelingo/internal/translate/handler"
	"github.com/carelingo/carelingo/pkg/events"

	// Register inference backends via init().
	_ "github.com/carelingo/carelingo/internal/inference/backends/groq"
	_ "github.com/carelingo/carelingo/internal/inference/backends/ollama"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWithOIDC[clconfig.TranslatorConfig](ctx)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	eventRef := cfg.GetEventsQueueName()
	eventURL := cfg.GetEventsQueueURL()

	ctx, srv := frame.NewService(
		frame.WithConfig(&cfg),
		frame.WithName("carelingo"),
		frame.WithRegisterPublisher(eventRef, eventURL),
		frame.WithWorkerPoolOptions(
			workerpool.WithPoolCount(cfg.WorkerPoolCount),
			workerpool.WithSinglePoolCapacity(cfg.WorkerPoolCapacity),
		),
	)
	defer srv.Stop(ctx)

	pool, err := srv.WorkManager().GetPool()
	if err != nil {
		log.Fatalf("getting worker pool: %v", err)
	}

	pub := events.NewPublisher(srv.QueueManager(), "translator", eventRef)

	resolver, err := inference.New(cfg.Inference())
	if err != nil {
		log.Fatalf("creating inference backends: %v", err)
	}
	if !resolver.HasHosted() {
		slog.Warn("GROQ_API_KEY not set: all requests use the local backend")
	}

	catalog := language.Default()
	if cfg.LanguagesFile != "" {
		if catalog, err = language.Load(cfg.LanguagesFile); err != nil {
			log.Fatalf("loading languages: %v", err)
		}
	}

	prompts := translate.DefaultPrompts()
	if cfg.PromptsFile != "" {
		if prompts, err = translate.LoadPrompts(cfg.PromptsFile); err != nil {
			log.Fatalf("loading prompts: %v", err)
		}
		if err := pool.Submit(ctx, func() {
			if err := prompts.Watch(ctx); err != nil {
				util.Log(ctx).WithError(err).Error("prompts: watcher stopped")
			}
		}); err != nil {
			log.Printf("warning: prompt hot reload disabled: %v", err)
		}
	}

	orch := translate.New(resolver,
		translate.WithCatalog(catalog),
		translate.WithPrompts(prompts),
		translate.WithEmitter(pub),
		translate.WithMaxInputChars(cfg.MaxInputChars),
	)

	mux := http.NewServeMux()
	handler.NewTranslationHandler(orch, cfg.MaxUploadBytes).Mount(mux, connectutil.DefaultOptions()...)

	srv.Init(ctx, frame.WithHTTPHandler(connectutil.H2CHandler(mux)))

	if err := srv.Run(ctx, ""); err != nil {
		log.Fatalf("service exited: %v", err)
	}
}
