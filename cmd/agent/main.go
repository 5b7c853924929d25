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
	"time"

	"github.com/carverauto/fleetradar/pkg/agent"
	"github.com/carverauto/fleetradar/pkg/config"
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
	configPath := flag.String("config", "/etc/fleetradar/agent.json", "Path to agent config file")
	flag.Parse()

	ctx := context.Background()

	cfgLoader := config.NewConfig(nil)

	var cfg agent.Config

	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = logger.DefaultConfig()
	}

	agentLogger, err := lifecycle.CreateComponentLogger("agent", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	deviceID := cfg.DeviceID
	if deviceID == "" {
		deviceID, err = agent.DeviceID()
		if err != nil {
			return fmt.Errorf("failed to derive device id: %w", err)
		}
	}

	agentLogger.Info().Str("device_id", deviceID).Msg("Device ID resolved")

	runtime := agent.NewDockerRuntime(cfg.DockerSocket, agentLogger)

	compose := agent.NewComposeStore(cfg.ComposeFile)
	if cfg.BaseComposeFile != "" {
		if err := compose.Bootstrap(cfg.BaseComposeFile); err != nil {
			return fmt.Errorf("failed to bootstrap compose file: %w", err)
		}
	}

	collector := agent.NewCollector(deviceID, cfg.DeviceName, cfg.PushIntervalSeconds, runtime, agentLogger)
	sender := agent.NewHTTPSender(nil, cfg.ServerURL)
	pushLoop := agent.NewPushLoop(collector, sender,
		time.Duration(cfg.PushIntervalSeconds)*time.Second, agentLogger)

	handler := agent.NewCommandHandler(runtime, compose, pushLoop.WakeNow, agentLogger)
	server := agent.NewServer(cfg.ListenAddr, handler, agentLogger)

	return lifecycle.Run(ctx, agentLogger, pushLoop, server)
}
