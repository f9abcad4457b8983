package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dragonchu/agentpollen/internal/api"
	"github.com/dragonchu/agentpollen/internal/config"
	"github.com/dragonchu/agentpollen/internal/db"
	"github.com/dragonchu/agentpollen/internal/session"
	"github.com/dragonchu/agentpollen/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	devMode := flag.Bool("dev", false, "enable development mode (rule-based decision backend, paused-by-default ticking)")
	noDB := flag.Bool("no-db", false, "run without database (in-memory only)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Failed to load config from %s, using defaults: %v", *configPath, err)
		cfg = config.Default()
	}

	if *devMode {
		cfg.Dev.Enabled = true
		cfg.Arena.Backend = "rule-based"
		log.Println("Development mode enabled: rule-based backend, worlds start paused")
	}

	var postgres *db.Postgres
	var redis *db.Redis

	if *noDB || cfg.Dev.Enabled {
		log.Println("Running without database (in-memory mode)")
		postgres = &db.Postgres{}
		redis = &db.Redis{}
	} else {
		postgres, err = db.NewPostgres(cfg.Database.PostgresURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL: %v", err)
			postgres = &db.Postgres{}
		} else if err := postgres.EnsureSchema(context.Background()); err != nil {
			log.Printf("Warning: Failed to ensure Postgres schema: %v", err)
		}

		redis, err = db.NewRedis(cfg.Database.RedisURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v", err)
			redis = &db.Redis{}
		}
	}
	defer postgres.Close()
	defer redis.Close()

	hub := ws.NewHub()
	go hub.Run()

	sessions := session.NewManager(cfg, hub, postgres, redis)
	if cfg.Dev.Enabled {
		sessions.SetPauseByDefault(true)
		log.Println("Pause-by-default enabled: worlds will not tick until POST /api/worlds/{id}/start")
	}

	router := api.NewRouter(sessions, hub, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sessions.StopAll()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
