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
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	// Default logger discards output but is never nil
	assert.NotNil(t, cfg.logger)
	assert.Nil(t, cfg.promRegistry)
	assert.Equal(t, "", cfg.dataDir)
	assert.Equal(t, "", cfg.metricsListenAddress)
	assert.False(t, cfg.tracing)
	assert.Equal(t, time.Duration(0), cfg.shutdownTimeout)
}

func TestNewConfigOptions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	registry := prometheus.NewRegistry()

	cfg := NewConfig(
		WithLogger(logger),
		WithDatabasePath(".bastion-test"),
		WithBlobPlugin("badger"),
		WithMetadataPlugin("sqlite"),
		WithPrometheusRegistry(registry),
		WithMetricsListenAddress("127.0.0.1:12798"),
		WithTracing(true),
		WithTracingStdout(true),
		WithShutdownTimeout(10*time.Second),
	)

	assert.Equal(t, logger, cfg.logger)
	assert.Equal(t, ".bastion-test", cfg.dataDir)
	assert.Equal(t, "badger", cfg.blobPlugin)
	assert.Equal(t, "sqlite", cfg.metadataPlugin)
	assert.Equal(t, prometheus.Registerer(registry), cfg.promRegistry)
	assert.Equal(t, "127.0.0.1:12798", cfg.metricsListenAddress)
	assert.True(t, cfg.tracing)
	assert.True(t, cfg.tracingStdout)
	assert.Equal(t, 10*time.Second, cfg.shutdownTimeout)
}
