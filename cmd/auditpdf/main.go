package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/stockpod/stockpodgo/internal/audit"
	"github.com/stockpod/stockpodgo/internal/client"
	"github.com/stockpod/stockpodgo/internal/config"
	"github.com/stockpod/stockpodgo/internal/models"
)

func main() {
	containerID := flag.String("container", "", "render audit for this container's latest run")
	sessionID := flag.String("session", "", "render audit for this session's run")
	out := flag.String("o", "audit.pdf", "output file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := cfg.NewLogger()

	if (*containerID == "") == (*sessionID == "") {
		logger.Fatal("exactly one of -container or -session is required")
	}

	apiClient, err := client.New(client.Config{
		BaseURL:      cfg.APIBaseURL,
		FetchTimeout: cfg.FetchTimeout,
		Logger:       logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create API client")
	}

	ctx := context.Background()
	run, err := fetchRun(ctx, apiClient, *containerID, *sessionID)
	if client.IsNotFound(err) {
		logger.Info("no analysis run exists, nothing to render")
		return
	}
	if err != nil {
		logger.WithError(err).Fatal("failed to fetch run")
	}

	trail := audit.Project(run.Review)
	pdf, err := audit.GenerateReportPDF(run, trail, audit.ReportConfig{
		RunURL: fmt.Sprintf("%s/v1/sessions/%s/inventory-delta", cfg.PublicBaseURL, run.SessionID),
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to render report")
	}

	if err := os.WriteFile(*out, pdf, 0o644); err != nil {
		logger.WithError(err).Fatal("failed to write report")
	}
	logger.WithFields(logrus.Fields{
		"run_id": run.RunID,
		"file":   *out,
		"bytes":  len(pdf),
	}).Info("audit report written")
}

func fetchRun(ctx context.Context, c *client.Client, containerID, sessionID string) (*models.InventoryAnalysisRun, error) {
	if containerID != "" {
		return c.FetchLatest(ctx, containerID)
	}
	return c.FetchBySession(ctx, sessionID)
}
