package services

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"edgescope/config"
	"edgescope/models"
)

// StoreMode indicates which session store backend is active
type StoreMode string

const (
	StoreModeRedis    StoreMode = "redis"
	StoreModeInMemory StoreMode = "in-memory"
)

const (
	sessionKeyPrefix = "session:"
	// chat sessions are retained for 30 days
	sessionTTL = 30 * 24 * time.Hour
)

type sessionItem struct {
	history   models.ChatHistory
	expiresAt time.Time
}

// HistoryService persists chat histories keyed by session ID. Redis is the
// primary backend with the 30-day expiry enforced via key TTL; when Redis
// is unreachable the service runs on an in-memory map with the same expiry
// semantics and flips back once Redis recovers.
type HistoryService struct {
	cfg *config.Config

	redis       *redis.Client
	redisCtx    context.Context
	redisCancel context.CancelFunc
	mode        StoreMode
	modeMutex   sync.RWMutex

	memStore sync.Map // map[string]*sessionItem, keyed by session ID

	stopChan chan struct{}
}

func NewHistoryService(cfg *config.Config) *HistoryService {
	ctx, cancel := context.WithCancel(context.Background())

	hs := &HistoryService{
		cfg:         cfg,
		redisCtx:    ctx,
		redisCancel: cancel,
		stopChan:    make(chan struct{}),
		mode:        StoreModeInMemory,
	}

	if cfg.Redis.Enabled {
		hs.connectRedis()
	} else {
		log.Println("Redis disabled in config, chat history kept in memory only")
	}

	return hs
}

func (hs *HistoryService) connectRedis() {
	if hs.cfg.Redis.Address == "" {
		log.Println("Redis address not configured, chat history kept in memory only")
		return
	}

	options := &redis.Options{
		Addr:         hs.cfg.Redis.Address,
		Password:     hs.cfg.Redis.Password,
		DB:           hs.cfg.Redis.DB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		PoolTimeout:  10 * time.Second,
	}

	if hs.cfg.Redis.UseTLS {
		options.TLSConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: true, // cloud providers with shared certs
		}
	}

	hs.redis = redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := hs.redis.Ping(ctx).Result(); err != nil {
		log.Printf("⚠️  Redis connection failed: %v", err)
		log.Printf("⚠️  Chat history running in IN-MEMORY mode")
		hs.setMode(StoreModeInMemory)
		return
	}

	log.Printf("✓ Redis connected, chat history persisted with %s TTL", sessionTTL)
	hs.setMode(StoreModeRedis)
}

func (hs *HistoryService) setMode(mode StoreMode) {
	hs.modeMutex.Lock()
	defer hs.modeMutex.Unlock()
	hs.mode = mode
}

func (hs *HistoryService) getMode() StoreMode {
	hs.modeMutex.RLock()
	defer hs.modeMutex.RUnlock()
	return hs.mode
}

// Mode reports the active backend, for the health endpoint.
func (hs *HistoryService) Mode() string {
	return string(hs.getMode())
}

// Start launches the Redis health check and in-memory expiry sweeps.
func (hs *HistoryService) Start() {
	log.Println("Starting History Service...")
	go hs.runHealthCheckLoop()
	go hs.runSweepLoop()
}

func (hs *HistoryService) Stop() {
	close(hs.stopChan)
	hs.redisCancel()

	if hs.redis != nil {
		hs.redis.Close()
	}
}

func (hs *HistoryService) runHealthCheckLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			hs.checkRedisHealth()
		case <-hs.stopChan:
			return
		}
	}
}

func (hs *HistoryService) checkRedisHealth() {
	if !hs.cfg.Redis.Enabled || hs.redis == nil {
		return
	}

	mode := hs.getMode()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := hs.redis.Ping(ctx).Result()

	if mode == StoreModeRedis && err != nil {
		log.Printf("⚠️  Redis health check failed: %v", err)
		log.Printf("⚠️  Chat history switching to IN-MEMORY mode")
		hs.setMode(StoreModeInMemory)
	} else if mode == StoreModeInMemory && err == nil {
		log.Printf("✓ Redis reconnected, syncing chat sessions back")
		hs.syncMemoryToRedis()
		hs.setMode(StoreModeRedis)
	}
}

// syncMemoryToRedis copies unexpired in-memory sessions to Redis after a
// reconnect, keeping their remaining TTL.
func (hs *HistoryService) syncMemoryToRedis() {
	synced := 0
	hs.memStore.Range(func(key, value interface{}) bool {
		item := value.(*sessionItem)
		ttl := time.Until(item.expiresAt)
		if ttl > 0 {
			if err := hs.setRedis(key.(string), item.history, ttl); err == nil {
				synced++
			}
		}
		return true
	})
	log.Printf("Synced %d chat sessions to Redis", synced)
}

// runSweepLoop evicts expired in-memory sessions; Redis expires its own keys.
func (hs *HistoryService) runSweepLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			hs.memStore.Range(func(key, value interface{}) bool {
				if value.(*sessionItem).expiresAt.Before(now) {
					hs.memStore.Delete(key)
				}
				return true
			})
		case <-hs.stopChan:
			return
		}
	}
}

// GetHistory returns the messages for a session, oldest first. A missing
// session or a backend read error both yield an empty slice; reads never
// fail to the caller.
func (hs *HistoryService) GetHistory(sessionID string) []models.Message {
	history, found := hs.getHistory(sessionID)
	if !found {
		return []models.Message{}
	}
	if history.Messages == nil {
		return []models.Message{}
	}
	return history.Messages
}

func (hs *HistoryService) getHistory(sessionID string) (models.ChatHistory, bool) {
	if hs.getMode() == StoreModeRedis {
		history, found, err := hs.getRedis(sessionID)
		if err == nil && found {
			return history, true
		}
		if err != nil {
			log.Printf("Redis read failed for session %s: %v (trying in-memory)", sessionID, err)
		}
		// fall through on a miss too: the session may only exist in the
		// memory store after a failed Redis write
	}

	value, ok := hs.memStore.Load(sessionID)
	if !ok {
		return models.ChatHistory{}, false
	}
	item := value.(*sessionItem)
	if item.expiresAt.Before(time.Now()) {
		hs.memStore.Delete(sessionID)
		return models.ChatHistory{}, false
	}
	return item.history, true
}

// SaveHistory upserts the full message list for a session, preserving the
// original creation time and resetting the 30-day expiry. Unlike reads,
// save failures are returned so the caller can decide whether to retry.
func (hs *HistoryService) SaveHistory(sessionID string, messages []models.Message) error {
	now := time.Now().UnixMilli()

	history := models.ChatHistory{
		SessionID: sessionID,
		Messages:  messages,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, found := hs.getHistory(sessionID); found && existing.CreatedAt > 0 {
		history.CreatedAt = existing.CreatedAt
	}

	if hs.getMode() == StoreModeRedis {
		if err := hs.setRedis(sessionID, history, sessionTTL); err != nil {
			// keep a best-effort local copy so the session stays readable,
			// but the caller must learn the durable write failed
			hs.setMemory(sessionID, history)
			log.Printf("Redis write failed for session %s: %v (kept in-memory copy)", sessionID, err)
			return fmt.Errorf("failed to save session %s: %w", sessionID, err)
		}
		return nil
	}

	hs.setMemory(sessionID, history)
	return nil
}

func (hs *HistoryService) setMemory(sessionID string, history models.ChatHistory) {
	hs.memStore.Store(sessionID, &sessionItem{
		history:   history,
		expiresAt: time.Now().Add(sessionTTL),
	})
}

// ListSessions returns the known session IDs.
func (hs *HistoryService) ListSessions() []string {
	sessions := make([]string, 0)

	if hs.getMode() == StoreModeRedis {
		ctx, cancel := context.WithTimeout(hs.redisCtx, 5*time.Second)
		defer cancel()

		iter := hs.redis.Scan(ctx, 0, sessionKeyPrefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			sessions = append(sessions, strings.TrimPrefix(iter.Val(), sessionKeyPrefix))
		}
		if err := iter.Err(); err != nil {
			log.Printf("Redis session scan failed: %v", err)
			return sessions
		}
		return sessions
	}

	now := time.Now()
	hs.memStore.Range(func(key, value interface{}) bool {
		if value.(*sessionItem).expiresAt.After(now) {
			sessions = append(sessions, key.(string))
		}
		return true
	})
	return sessions
}

// DeleteSession removes a session's history from the active backend.
func (hs *HistoryService) DeleteSession(sessionID string) error {
	hs.memStore.Delete(sessionID)

	if hs.getMode() == StoreModeRedis {
		ctx, cancel := context.WithTimeout(hs.redisCtx, 2*time.Second)
		defer cancel()

		if err := hs.redis.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
			return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
		}
	}
	return nil
}

func (hs *HistoryService) setRedis(sessionID string, history models.ChatHistory, ttl time.Duration) error {
	if hs.redis == nil {
		return fmt.Errorf("redis client not initialized")
	}

	ctx, cancel := context.WithTimeout(hs.redisCtx, 2*time.Second)
	defer cancel()

	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return hs.redis.Set(ctx, sessionKeyPrefix+sessionID, data, ttl).Err()
}

func (hs *HistoryService) getRedis(sessionID string) (models.ChatHistory, bool, error) {
	if hs.redis == nil {
		return models.ChatHistory{}, false, fmt.Errorf("redis client not initialized")
	}

	ctx, cancel := context.WithTimeout(hs.redisCtx, 2*time.Second)
	defer cancel()

	data, err := hs.redis.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return models.ChatHistory{}, false, nil
	}
	if err != nil {
		return models.ChatHistory{}, false, err
	}

	var history models.ChatHistory
	if err := json.Unmarshal([]byte(data), &history); err != nil {
		return models.ChatHistory{}, false, err
	}
	return history, true, nil
}
