package main

import (
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/stockpod/stockpodgo/internal/buildinfo"
	"github.com/stockpod/stockpodgo/internal/client"
	"github.com/stockpod/stockpodgo/internal/config"
	"github.com/stockpod/stockpodgo/internal/engine"
	"github.com/stockpod/stockpodgo/internal/review"
)

func main() {
	containerID := flag.String("container", "", "container id to watch")
	sessionID := flag.String("session", "", "session id to watch")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := cfg.NewLogger()
	logger.WithField("version", buildinfo.Summary()).Info("stockpod watchd starting")

	if (*containerID == "") == (*sessionID == "") {
		logger.Fatal("exactly one of -container or -session is required")
	}

	apiClient, err := client.New(client.Config{
		BaseURL:       cfg.APIBaseURL,
		FetchTimeout:  cfg.FetchTimeout,
		ReviewTimeout: cfg.ReviewTimeout,
		Logger:        logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create API client")
	}

	eng, err := engine.New(engine.Config{
		Fetcher:      apiClient,
		Submitter:    review.NewSubmitter(apiClient, logger),
		PollInterval: cfg.PollInterval,
		Logger:       logger,
		OnChange:     func(v engine.View) { logView(logger, v) },
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create engine")
	}
	defer eng.Close()

	if *containerID != "" {
		logger.WithField("container_id", *containerID).Info("watching container")
		eng.SetContainer(*containerID)
	} else {
		logger.WithField("session_id", *sessionID).Info("watching session")
		eng.SetSession(*sessionID)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("stopping")
}

// logView prints one view transition per line
func logView(logger *logrus.Logger, v engine.View) {
	fields := logrus.Fields{
		"state":  v.State,
		"target": string(v.Target.Kind) + ":" + v.Target.ID,
	}
	if v.Run != nil {
		fields["run_id"] = v.Run.RunID
		fields["status"] = v.Run.Status
	}
	if len(v.Delta) > 0 {
		changes := make([]string, 0, len(v.Delta))
		for _, e := range v.Delta {
			changes = append(changes, e.Name)
		}
		fields["changes"] = strings.Join(changes, ",")
	}
	if v.ErrorMessage != "" {
		fields["error"] = v.ErrorMessage
	}
	if v.Trail != nil {
		fields["reviewed_by"] = v.Trail.Reviewer
	}
	logger.WithFields(fields).Info("view changed")
}
