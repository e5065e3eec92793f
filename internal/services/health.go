package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/forkcast/recsys/internal/database"
)

var healthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "recsys_health_check_status",
	Help: "Health check status per dependency (1 = healthy, 0 = unhealthy)",
}, []string{"service"})

type HealthService struct {
	db     *database.Database
	logger *logrus.Logger
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func NewHealthService(db *database.Database, logger *logrus.Logger) *HealthService {
	return &HealthService{
		db:     db,
		logger: logger,
	}
}

func (hs *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := hs.db.PG.Ping(checkCtx); err != nil {
		hs.logger.WithError(err).Warn("PostgreSQL health check failed")
		status.Services["postgres"] = "unhealthy"
		status.Status = "unhealthy"
		healthCheckStatus.WithLabelValues("postgres").Set(0)
	} else {
		status.Services["postgres"] = "healthy"
		healthCheckStatus.WithLabelValues("postgres").Set(1)
	}

	if err := hs.db.Redis.Ping(checkCtx).Err(); err != nil {
		hs.logger.WithError(err).Warn("Redis health check failed")
		status.Services["redis"] = "degraded"
		// Redis only backs the cache; the service still works without it.
		healthCheckStatus.WithLabelValues("redis").Set(0)
	} else {
		status.Services["redis"] = "healthy"
		healthCheckStatus.WithLabelValues("redis").Set(1)
	}

	return status
}
