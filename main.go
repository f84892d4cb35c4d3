package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"edgescope/config"
	"edgescope/handlers"
	"edgescope/middleware"
	"edgescope/services"
	"edgescope/simulation"
	"edgescope/utils"
)

func main() {
	// 1. Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("=== Configuration ===")
	log.Printf("Server: %s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Redis: %s", cfg.Redis.Address)
	log.Printf("MongoDB: %s", cfg.MongoDB.Database)
	log.Printf("AI model: %s", cfg.AI.Model)

	if err := simulation.ValidateRegistry(simulation.EdgeNodes); err != nil {
		log.Fatalf("Invalid node registry: %v", err)
	}
	log.Printf("Node registry: %d edge nodes across %d regions", len(simulation.EdgeNodes), len(simulation.Regions(simulation.EdgeNodes)))

	// 2. Core Services
	geo, err := utils.NewGeoResolver(cfg.GeoIP.DBPath)
	if err != nil {
		log.Printf("⚠️  GeoIP DB not found at %s: %v", cfg.GeoIP.DBPath, err)
	}
	defer geo.Close()

	archive, err := services.NewArchiveService(cfg)
	if err != nil {
		log.Printf("⚠️  MongoDB connection failed: %v", err)
		log.Println("Simulation archive will be disabled")
		cfg.MongoDB.Enabled = false
		archive, _ = services.NewArchiveService(cfg)
	}
	defer archive.Close()

	discordToken := os.Getenv("DISCORD_BOT_TOKEN")
	discordChannelID := os.Getenv("DISCORD_CHANNEL_ID")
	discordBot, err := services.NewDiscordBotService(discordToken, discordChannelID)
	if err != nil {
		log.Printf("⚠️  Discord bot initialization failed: %v", err)
		log.Println("Discord notifications will be disabled")
		discordBot = nil
	} else if discordBot != nil {
		defer discordBot.Close()
		log.Println("✓ Discord Bot connected")
	}

	historyService := services.NewHistoryService(cfg)
	aiClient := services.NewAIClient(cfg)
	if !aiClient.Enabled() {
		log.Println("⚠️  AI endpoint not configured, chat and analysis will use fallback responses")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	simulator := services.NewSimulatorService(cfg, simulation.EdgeNodes, rng, archive, discordBot)

	// 3. Start Background Services
	log.Println("=== Starting Services ===")

	historyService.Start()
	log.Println("✓ History Service started")
	log.Printf("   Mode: %s", historyService.Mode())

	log.Println("=== All Services Running ===")

	// 4. Web Server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.LoggerMiddleware())
	e.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Recovered from panic: %v", r)
					c.Error(fmt.Errorf("internal server error"))
				}
			}()
			return next(c)
		}
	})

	// 5. Handlers
	systemHandlers := handlers.NewSystemHandlers(cfg, aiClient, historyService, archive)
	chatHandlers := handlers.NewChatHandlers(aiClient, historyService)
	analysisHandlers := handlers.NewAnalysisHandlers(aiClient, simulator)
	simulationHandlers := handlers.NewSimulationHandlers(simulator)
	nodeHandlers := handlers.NewNodeHandlers(geo)
	archiveHandlers := handlers.NewArchiveHandlers(archive)

	// 6. Routes
	// System
	e.GET("/health", systemHandlers.GetHealth)

	api := e.Group("/api")

	// Chat endpoints
	api.POST("/chat", chatHandlers.PostChat)
	api.GET("/history/:sessionId", chatHandlers.GetHistory)
	api.GET("/sessions", chatHandlers.ListSessions)
	api.DELETE("/sessions/:sessionId", chatHandlers.DeleteSession)

	// Analysis endpoints
	api.POST("/analyze", analysisHandlers.AnalyzeAnomaly)
	api.POST("/analyze/:id", analysisHandlers.AnalyzeLiveAnomaly)

	// Simulation run control
	sim := api.Group("/simulation")
	sim.GET("", simulationHandlers.GetSimulation)
	sim.POST("/start", simulationHandlers.StartSimulation)
	sim.POST("/stop", simulationHandlers.StopSimulation)
	sim.POST("/save", simulationHandlers.SaveSimulation)
	sim.POST("/reset", simulationHandlers.ResetSimulation)

	// Live data
	api.GET("/traffic", simulationHandlers.GetTraffic)
	api.GET("/metrics", simulationHandlers.GetMetrics)
	api.GET("/anomalies", simulationHandlers.GetAnomalies)
	api.GET("/anomalies/history", simulationHandlers.GetAnomalyHistory)

	// Node registry
	api.GET("/nodes", nodeHandlers.GetNodes)
	api.GET("/nodes/nearest", nodeHandlers.GetNearestNode)
	api.GET("/nodes/:id", nodeHandlers.GetNode)
	api.GET("/regions", nodeHandlers.GetRegions)
	api.GET("/regions/:region/nodes", nodeHandlers.GetNodesByRegion)

	// Archived runs
	api.GET("/simulations", archiveHandlers.ListSimulations)
	api.GET("/simulations/:id", archiveHandlers.GetSimulation)
	api.DELETE("/simulations/:id", archiveHandlers.DeleteSimulation)

	// 7. Start Server with Graceful Shutdown
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	go func() {
		log.Printf("🚀 Server running on http://%s", serverAddr)

		if err := e.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("shutting down the server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("⏳ Graceful shutdown initiated...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop Background Services
	log.Println("Stopping services...")
	if _, err := simulator.Stop(); err != nil {
		log.Printf("Simulator stop: %v", err)
	}
	historyService.Stop()
	log.Println("✓ All services stopped")

	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	log.Println("✓ Server exited cleanly")
}
