// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

// Command wafd serves the session inspection engine over HTTP.
package main

import (
	"os"

	"github.com/stoneguard/waf/internal/api"
	"github.com/stoneguard/waf/internal/config"
	"github.com/stoneguard/waf/internal/plog"
	"github.com/stoneguard/waf/internal/session"
)

func main() {
	// Settings are not read yet at this point, so the bootstrap logger uses
	// the info level. It is replaced by the configured one right after.
	logger := plog.NewLogger(plog.Info, os.Stderr)

	cfg, err := config.New(logger)
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}
	logger = plog.NewLogger(cfg.LogLevel(), os.Stderr)

	hub, err := session.NewHub(session.HubConfig{
		SecurityConfigPath: cfg.SecurityConfigPath(),
		Logger:             logger,
	})
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}

	ok, lines := hub.InitConfig()
	for _, line := range lines {
		logger.Info(line)
	}
	if !ok {
		logger.Infof("config: the security configuration did not fully load; reload it through the api once fixed")
	}

	if err := api.NewServer(hub, logger).Run(cfg.ListenAddr()); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
