package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthStatus is the periodic snapshot served by /health: the backing
// stores plus this process's own delivery state.
type HealthStatus struct {
	Mongo           bool              `json:"mongo"`
	Redis           []bool            `json:"redis"`
	LiveConnections int               `json:"liveConnections"`
	Breakers        map[string]string `json:"breakers,omitempty"`
	CheckedAt       time.Time         `json:"checkedAt"`
}

var (
	currentHealth HealthStatus
	healthMu      sync.RWMutex
)

// GetHealthStatus returns latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	healthMu.RLock()
	defer healthMu.RUnlock()
	return currentHealth
}

// checkHealth builds one snapshot. liveConnections and breakerStates are
// sampled through funcs so the check stays decoupled from the hub and
// resilience packages.
func checkHealth(
	ctx context.Context,
	redisClients []*redis.Client,
	mongoClient *mongo.Client,
	liveConnections func() int,
	breakerStates func() map[string]string,
) HealthStatus {
	status := HealthStatus{CheckedAt: time.Now()}

	for _, client := range redisClients {
		status.Redis = append(status.Redis, client.Ping(ctx).Err() == nil)
	}
	if mongoClient != nil {
		status.Mongo = mongoClient.Ping(ctx, nil) == nil
	}
	if liveConnections != nil {
		status.LiveConnections = liveConnections()
	}
	if breakerStates != nil {
		status.Breakers = breakerStates()
	}
	return status
}

// StartHealthMonitor refreshes the health snapshot every minute.
func StartHealthMonitor(
	redisClients []*redis.Client,
	mongoClient *mongo.Client,
	liveConnections func() int,
	breakerStates func() map[string]string,
) {
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()

		ctx := context.Background()

		for range ticker.C {
			status := checkHealth(ctx, redisClients, mongoClient, liveConnections, breakerStates)

			healthMu.Lock()
			currentHealth = status
			healthMu.Unlock()
		}
	}()
}
