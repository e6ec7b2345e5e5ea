// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bastion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/bastion/custody"
	"github.com/blinklabs-io/bastion/database"
	"github.com/blinklabs-io/bastion/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Node struct {
	eventBus      *event.EventBus
	db            *database.Database
	engine        *custody.Engine
	metricsServer *http.Server
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	return n, nil
}

// Engine returns the custody engine. It returns nil until Run has
// initialized the node
func (n *Node) Engine() *custody.Engine {
	return n.engine
}

// EventBus returns the node's event bus
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// Database returns the underlying database. It returns nil until Run has
// initialized the node
func (n *Node) Database() *database.Database {
	return n.db
}

func (n *Node) Run(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	dbConfig := &database.Config{
		DataDir:        n.config.dataDir,
		Logger:         n.config.logger,
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
		PromRegistry:   n.config.promRegistry,
	}
	db, err := database.New(dbConfig)
	if err != nil {
		var dbErr database.CommitTimestampError
		if errors.As(err, &dbErr) {
			// The blob and metadata stores disagree about the last commit.
			// Custody state lives entirely in the metadata store and payload
			// blobs are only ever written alongside their metadata row, so
			// the stores cannot drift apart in a way we could repair here.
			n.config.logger.Error(
				"database commit timestamp mismatch, manual intervention required",
				"error", err,
			)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	// Load custody engine
	dispatcher := n.config.dispatcher
	if dispatcher == nil {
		dispatcher = custody.NewLedgerDispatcher(n.db)
	}
	engine, err := custody.NewEngine(custody.EngineConfig{
		Logger:       n.config.logger,
		Database:     n.db,
		EventBus:     n.eventBus,
		PromRegistry: n.config.promRegistry,
		Dispatcher:   dispatcher,
		Clock:        n.config.clock,
	})
	if err != nil {
		return fmt.Errorf("failed to load custody engine: %w", err)
	}
	n.engine = engine
	// Metrics listener
	if n.config.metricsListenAddress != "" {
		if err := n.startMetricsListener(); err != nil {
			return err
		}
	}
	// Shut down when the context is cancelled
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = n.Stop()
			case <-n.done:
			}
		}()
	}

	// Wait for shutdown signal
	<-n.done
	return nil
}

func (n *Node) startMetricsListener() error {
	mux := http.NewServeMux()
	handler := promhttp.Handler()
	if gatherer, ok := n.config.promRegistry.(prometheus.Gatherer); ok {
		handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	mux.Handle("/metrics", handler)
	n.config.logger.Info(
		"serving prometheus metrics on "+n.config.metricsListenAddress,
		"component", "node",
	)
	n.metricsServer = &http.Server{
		Addr:              n.config.metricsListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := n.metricsServer.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			n.config.logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", "node",
			)
		}
	}()
	return nil
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	if n.metricsServer != nil {
		if stopErr := n.metricsServer.Shutdown(ctx); stopErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("metrics server shutdown: %w", stopErr),
			)
		}
	}

	// Phase 2: Flush state and close database
	n.config.logger.Debug("shutdown phase 2: flushing state")

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("database close: %w", closeErr),
			)
		}
	}

	// Phase 3: Cleanup resources
	n.config.logger.Debug("shutdown phase 3: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
