package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/circuitbreaker"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/logger"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/retry"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/validation"
)

// The ticker is the billing client: while a viewer watches a stream it
// submits one usage tick per interval to the metering API. Ticks missed while
// the API is unreachable are batched into the next successful submission so
// watched seconds are not lost.
func main() {
	var (
		apiURL   = flag.String("api", "http://localhost:8080", "metering API base URL")
		streamID = flag.String("stream", "", "stream being watched")
		viewerID = flag.String("viewer", "", "viewer connection id")
		interval = flag.Duration("interval", time.Second, "tick interval")
		level    = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	log := logger.MustNew(*level, "console")
	defer log.Sync()

	if err := validation.ValidateURL(*apiURL); err != nil {
		log.Fatalw("invalid -api", "error", err)
	}
	if err := validation.ValidateStreamID(*streamID); err != nil {
		log.Fatalw("invalid -stream", "error", err)
	}
	if err := validation.ValidateNonEmptyString(*viewerID, "-viewer"); err != nil {
		log.Fatalw("invalid -viewer", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	ossignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	client := &http.Client{Timeout: 5 * time.Second}
	endpoint := fmt.Sprintf("%s/api/v1/streams/%s/ticks", *apiURL, *streamID)

	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig())
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		log.Warnw("metering circuit state changed", "from", from, "to", to)
	})

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 2

	log.Infow("ticker started",
		"stream_id", *streamID,
		"viewer_id", *viewerID,
		"interval", *interval,
	)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	var pending uint64
	for {
		select {
		case <-ctx.Done():
			log.Info("ticker stopped")
			return
		case <-ticker.C:
			pending++
			err := breaker.Execute(ctx, func() error {
				return retry.Retry(ctx, retryCfg, func() error {
					return submitTicks(ctx, client, endpoint, *viewerID, pending)
				})
			})
			if err != nil {
				log.Warnw("tick submission failed, will batch",
					"pending", pending,
					"error", err,
				)
				continue
			}
			pending = 0
		}
	}
}

func submitTicks(ctx context.Context, client *http.Client, endpoint, viewerID string, ticks uint64) error {
	body, err := json.Marshal(map[string]interface{}{
		"viewer_id": viewerID,
		"ticks":     ticks,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("metering API returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}
