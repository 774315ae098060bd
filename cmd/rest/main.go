package main

import (
	"context"
	"log"

	"welding-recommender-be/internal/bootstrap"
	"welding-recommender-be/internal/config"
	"welding-recommender-be/internal/server"
	"welding-recommender-be/internal/tracer"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.CatalogGateway.Close(context.Background())

	// 3. Start Background Services
	go func() {
		log.Println("Background: Starting Renderer Service...")
		if err := container.RendererService.Consume(context.Background()); err != nil {
			log.Printf("Background Renderer Error: %v", err)
		}
	}()

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}
