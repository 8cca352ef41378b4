package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/siphon/backend/internal/api"
	"github.com/siphon/backend/internal/config"
	"github.com/siphon/backend/internal/inject"
	"github.com/siphon/backend/internal/project"
	"github.com/siphon/backend/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	memMode := flag.Bool("mem", false, "Use an in-memory project store seeded with a demo project")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("Failed to load config: %v", err)
		}
		log.Printf("No config file at %s, using defaults", *configPath)
		cfg = config.Default()
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}

	var store project.Store
	if *memMode {
		log.Println("Starting with in-memory project store")
		mem := project.NewMemStore()
		mem.Add("demo", "")
		store = mem
	} else {
		sqlite, err := project.OpenSQLite(cfg.Inject.ProjectDB)
		if err != nil {
			log.Fatalf("Failed to open project store: %v", err)
		}
		defer sqlite.Close()
		store = sqlite
	}

	templater, err := inject.LoadTemplater(cfg.Inject.CoreTemplate, cfg.Inject.DebugTemplate)
	if err != nil {
		log.Fatalf("Failed to load payload templates: %v", err)
	}

	core := inject.NewCore(cfg, store, templater)
	core.SetHandlers(api.New(core).Handlers())

	server := ws.NewServer(cfg, core)
	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		core.Close()
		os.Exit(0)
	}()

	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
