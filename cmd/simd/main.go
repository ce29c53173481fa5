package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stockpod/stockpodgo/internal/models"
	"github.com/stockpod/stockpodgo/internal/simulator"
)

func main() {
	addr := flag.String("addr", ":8094", "listen address")
	seed := flag.Bool("seed", true, "seed a demo container with runs")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := logrus.New()
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(level)
	}

	sim := simulator.NewServer(logger)
	if *seed {
		seedDemo(sim, logger)
	}

	server := &http.Server{
		Addr:    *addr,
		Handler: sim.Handler(),
	}

	go func() {
		logger.WithField("addr", *addr).Info("inventory simulator listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("simulator failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("shutdown error")
	}
}

// seedDemo loads one container with a reviewed run and one awaiting review
func seedDemo(sim *simulator.Server, logger *logrus.Logger) {
	containerID := "550e8400-e29b-41d4-a716-446655440001"

	first := &models.InventoryAnalysisRun{
		ContainerID: containerID,
		SessionID:   "sess-demo-001",
		Status:      models.StatusDone,
		Delta: &models.RawDelta{
			Entries: []models.DeltaEntry{
				{Name: "Coca-Cola", BeforeCount: 5, AfterCount: 3, Change: -2, Confidence: 0.92},
			},
		},
		Metadata: models.RunMetadata{Provider: "vision-pipeline", ModelVersion: "v4", CreatedAt: time.Now().Add(-time.Hour)},
	}
	sim.SeedRun(first)

	second := &models.InventoryAnalysisRun{
		ContainerID: containerID,
		SessionID:   "sess-demo-002",
		Status:      models.StatusNeedsReview,
		Delta: &models.RawDelta{
			Categories: &models.DeltaCategories{
				Removed:    []models.CategorizedItem{{Name: "Sprite", Qty: 1, Confidence: 0.61}},
				Added:      []models.CategorizedItem{{Name: "Fanta", Qty: 2, Confidence: 0.57}},
				ChangedQty: []models.QuantityChange{{Name: "Water 0.5L", From: 12, To: 9, Confidence: 0.88}},
				Unknown:    []models.UnknownChange{{Note: "partially occluded object on shelf 2"}},
			},
		},
		Metadata: models.RunMetadata{Provider: "vision-pipeline", ModelVersion: "v4", CreatedAt: time.Now().Add(-10 * time.Minute)},
	}
	runID := sim.SeedRun(second)

	logger.WithFields(logrus.Fields{
		"container_id": containerID,
		"run_id":       runID,
	}).Info("seeded demo data")
}
