// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

// Process configuration package.

// This package includes both the run-time process settings, configurable
// through environment variables or a configuration file, and the security
// configuration document holding the policies the inspection stages apply.

package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/stoneguard/waf/internal/plog"
	"github.com/stoneguard/waf/internal/sglib/sgerrors"
)

type Config struct {
	*viper.Viper
}

const (
	configEnvPrefix    = `stoneguard`
	configFileBasename = `stoneguard`
)

const (
	configEnvKeyConfigFile = `config_file`

	configKeyLogLevel       = `log_level`
	configKeyListenAddr     = `listen_addr`
	configKeySecurityConfig = `security_config`
)

// User configuration's default values.
const (
	configDefaultLogLevel       = `info`
	configDefaultListenAddr     = `:9110`
	configDefaultSecurityConfig = `security.json`
)

func New(logger *plog.Logger) (*Config, error) {
	manager := viper.New()
	manager.SetEnvPrefix(configEnvPrefix)
	manager.AutomaticEnv()
	manager.SetConfigName(configFileBasename)

	// Default values of configurable parameters
	parameters := []struct {
		key          string
		defaultValue interface{}
	}{
		{key: configKeyLogLevel, defaultValue: configDefaultLogLevel},
		{key: configKeyListenAddr, defaultValue: configDefaultListenAddr},
		{key: configKeySecurityConfig, defaultValue: configDefaultSecurityConfig},
	}
	for _, p := range parameters {
		manager.SetDefault(p.key, p.defaultValue)
	}

	// Configuration file settings
	configFileEnvVar := strings.ToUpper(configEnvPrefix + "_" + configEnvKeyConfigFile)
	configFile := os.Getenv(configFileEnvVar)
	if configFile != "" {
		// File location enforced by the user
		manager.SetConfigFile(configFile)
		logger.Infof("config: configuration file enforced by the environment variable `%s` to `%s`", configFileEnvVar, configFile)
	} else {
		// Not enforced: add possible paths in precedence order
		// 1. Current working directory path:
		manager.AddConfigPath(`.`)
		// 2. Executable path
		exec, err := os.Executable()
		if err != nil {
			logger.Error(sgerrors.Wrap(err, "config: could not read the executable file path"))
		} else {
			manager.AddConfigPath(filepath.Dir(exec))
		}
	}
	// Try to read a configuration file according to the previous settings
	if readErr, fileUsed := manager.ReadInConfig(), manager.ConfigFileUsed(); readErr != nil && fileUsed != "" {
		// Could not read despite the fact of having found a file
		logger.Error(sgerrors.Wrapf(readErr, "config: could not read the configuration file `%s`: falling back to environment variables", fileUsed))
	} else if fileUsed != "" {
		// A file was found and no error reading it
		logger.Infof("config: reading configuration settings from file `%s`", fileUsed)
	} else {
		logger.Infof("config: reading configuration settings from environment variables")
	}

	return &Config{Viper: manager}, nil
}

// LogLevel returns the log level.
func (c *Config) LogLevel() plog.LogLevel {
	return plog.ParseLogLevel(c.GetString(configKeyLogLevel))
}

// ListenAddr returns the address the HTTP API listens on.
func (c *Config) ListenAddr() string {
	return strings.TrimSpace(c.GetString(configKeyListenAddr))
}

// SecurityConfigPath returns the path of the security configuration document.
func (c *Config) SecurityConfigPath() string {
	return strings.TrimSpace(c.GetString(configKeySecurityConfig))
}
