// Copyright 2024 Skiff Data
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"

	"github.com/BurntSushi/toml"

	"github.com/skiffdata/skiff/pkg/common/moerr"
	"github.com/skiffdata/skiff/pkg/logutil"
)

const (
	defaultSpoolBufferSize  = 8
	defaultWorkerPoolSize   = 64
	defaultSketchAccuracy   = 0.01
	defaultLogLevel         = "info"
	defaultLogFormat        = "console"
	defaultLogRotationBytes = 512 // megabytes
)

type Config struct {
	Log      logutil.LogConfig `toml:"log"`
	Pipeline PipelineConfig    `toml:"pipeline"`
	Sketch   SketchConfig      `toml:"sketch"`
}

type PipelineConfig struct {
	// SpoolBufferSize is the per-receiver channel capacity of every
	// pipeline edge.
	SpoolBufferSize int `toml:"spool-buffer-size"`
	// WorkerPoolSize bounds the goroutine pool stages run on. A pipeline
	// with more stages than workers grows the pool to fit; see pipeline.Execute.
	WorkerPoolSize int `toml:"worker-pool-size"`
}

type SketchConfig struct {
	// RelativeAccuracy is the DDSketch accuracy used by approximate
	// quantile aggregations.
	RelativeAccuracy float64 `toml:"relative-accuracy"`
}

func Default() *Config {
	return &Config{
		Log: logutil.LogConfig{
			Level:   defaultLogLevel,
			Format:  defaultLogFormat,
			MaxSize: defaultLogRotationBytes,
		},
		Pipeline: PipelineConfig{
			SpoolBufferSize: defaultSpoolBufferSize,
			WorkerPoolSize:  defaultWorkerPoolSize,
		},
		Sketch: SketchConfig{
			RelativeAccuracy: defaultSketchAccuracy,
		},
	}
}

// ParseFile loads a TOML config file on top of the defaults.
func ParseFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	ctx := context.Background()
	if c.Pipeline.SpoolBufferSize < 1 {
		return moerr.NewInvalidInput(ctx, "spool-buffer-size must be at least 1, got %d", c.Pipeline.SpoolBufferSize)
	}
	if c.Pipeline.WorkerPoolSize < 1 {
		return moerr.NewInvalidInput(ctx, "worker-pool-size must be at least 1, got %d", c.Pipeline.WorkerPoolSize)
	}
	if c.Sketch.RelativeAccuracy <= 0 || c.Sketch.RelativeAccuracy >= 1 {
		return moerr.NewInvalidInput(ctx, "sketch relative-accuracy must be in (0, 1), got %v", c.Sketch.RelativeAccuracy)
	}
	return nil
}
