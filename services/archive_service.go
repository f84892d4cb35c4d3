package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"edgescope/config"
	"edgescope/models"
)

const CollectionSimulations = "simulations"

// ArchiveService persists completed simulation runs to MongoDB so the
// saved-sessions view survives restarts. When MongoDB is disabled or
// unreachable the service stays usable: reads return empty results and
// writes report the error to the caller.
type ArchiveService struct {
	client  *mongo.Client
	db      *mongo.Database
	enabled bool
}

func NewArchiveService(cfg *config.Config) (*ArchiveService, error) {
	if !cfg.MongoDB.Enabled {
		log.Println("MongoDB is disabled, simulation archive unavailable")
		return &ArchiveService{enabled: false}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.MongoDB.URI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.MongoDB.Database)

	service := &ArchiveService{
		client:  client,
		db:      db,
		enabled: true,
	}

	if err := service.createIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create archive indexes: %v", err)
	}

	log.Printf("MongoDB connected, simulation archive in database: %s", cfg.MongoDB.Database)
	return service, nil
}

func (a *ArchiveService) createIndexes(ctx context.Context) error {
	if !a.enabled {
		return nil
	}

	_, err := a.db.Collection(CollectionSimulations).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("sim_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "start_time", Value: -1}},
			Options: options.Index().SetName("start_time_desc"),
		},
	})
	return err
}

func (a *ArchiveService) Close() error {
	if !a.enabled || a.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.client.Disconnect(ctx)
}

// Enabled reports whether the archive backend is available.
func (a *ArchiveService) Enabled() bool {
	return a.enabled
}

// SaveSimulation upserts a completed run. Called once per run, at stop-with-save.
func (a *ArchiveService) SaveSimulation(sim *models.Simulation) error {
	if !a.enabled {
		return fmt.Errorf("simulation archive is disabled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	_, err := a.db.Collection(CollectionSimulations).ReplaceOne(ctx, bson.M{"id": sim.ID}, sim, opts)
	if err != nil {
		return fmt.Errorf("failed to save simulation %s: %w", sim.ID, err)
	}
	return nil
}

// ListSimulations returns summaries of archived runs, newest first. Reads
// degrade to an empty list when the archive is disabled.
func (a *ArchiveService) ListSimulations(ctx context.Context, limit int) ([]models.SimulationSummary, error) {
	if !a.enabled {
		return []models.SimulationSummary{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := a.db.Collection(CollectionSimulations).Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}
	defer cursor.Close(ctx)

	summaries := make([]models.SimulationSummary, 0)
	for cursor.Next(ctx) {
		var sim models.Simulation
		if err := cursor.Decode(&sim); err != nil {
			log.Printf("Skipping undecodable simulation record: %v", err)
			continue
		}
		summaries = append(summaries, models.SimulationSummary{
			ID:           sim.ID,
			Name:         sim.Name,
			StartTime:    sim.StartTime,
			EndTime:      sim.EndTime,
			Status:       sim.Status,
			RequestCount: len(sim.Traffic),
			AnomalyCount: len(sim.Anomalies),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("simulation cursor failed: %w", err)
	}

	return summaries, nil
}

// GetSimulation fetches one archived run with its full traffic and anomaly
// collections.
func (a *ArchiveService) GetSimulation(ctx context.Context, id string) (*models.Simulation, error) {
	if !a.enabled {
		return nil, nil
	}

	var sim models.Simulation
	err := a.db.Collection(CollectionSimulations).FindOne(ctx, bson.M{"id": id}).Decode(&sim)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get simulation %s: %w", id, err)
	}
	return &sim, nil
}

// DeleteSimulation removes an archived run.
func (a *ArchiveService) DeleteSimulation(ctx context.Context, id string) error {
	if !a.enabled {
		return fmt.Errorf("simulation archive is disabled")
	}

	result, err := a.db.Collection(CollectionSimulations).DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete simulation %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("simulation not found")
	}
	return nil
}
