/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/carverauto/fleetradar/pkg/command"
	"github.com/carverauto/fleetradar/pkg/config"
	"github.com/carverauto/fleetradar/pkg/core"
	"github.com/carverauto/fleetradar/pkg/core/api"
	"github.com/carverauto/fleetradar/pkg/dockerhub"
	"github.com/carverauto/fleetradar/pkg/fleet"
	"github.com/carverauto/fleetradar/pkg/lifecycle"
	"github.com/carverauto/fleetradar/pkg/logger"
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/fleetradar/core.json", "Path to fleet server config file")
	flag.Parse()

	ctx := context.Background()

	cfgLoader := config.NewConfig(nil)

	var cfg core.Config

	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = logger.DefaultConfig()
	}

	coreLogger, err := lifecycle.CreateComponentLogger("core", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Credential rejection here is fatal; anything later degrades to
	// unknown update states instead of taking the server down.
	hub, err := dockerhub.New(ctx, cfg.DockerHub, nil, coreLogger)
	if err != nil {
		return fmt.Errorf("failed to create docker hub client: %w", err)
	}

	if tags, tagErr := hub.ListTags(ctx); tagErr != nil {
		coreLogger.Warn().Err(tagErr).Msg("Could not list repository tags at startup")
	} else {
		coreLogger.Info().
			Str("repository", hub.Repository()).
			Int("tags", len(tags)).
			Msg("Connected to docker hub repository")
	}

	registry := fleet.NewRegistry(hub.CheckUpdate, coreLogger)

	transport := command.NewHTTPTransport(nil, cfg.AgentPort, coreLogger)
	router := command.NewRouter(registry, transport, coreLogger)

	server := api.NewAPIServer(api.Config{
		ListenAddr: cfg.ListenAddr,
		APIKey:     cfg.APIKey,
	}, registry, router, hub.CheckUpdate, coreLogger)

	return lifecycle.Run(ctx, coreLogger, server)
}
