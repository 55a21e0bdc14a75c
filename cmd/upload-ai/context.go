package main

import (
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"upload-ai/internal/config"
	"upload-ai/internal/domain"
	"upload-ai/internal/logging"
	"upload-ai/internal/services"
)

// buildServices is replaced in tests to avoid ffmpeg and network access.
var buildServices = services.Build

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	settingsOnce sync.Once
	settings     domain.Settings
	settingsErr  error

	loggerOnce sync.Once
	logger     *zap.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag != nil {
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			return path
		}
	}
	return config.SettingsPath()
}

// ensureSettings loads .env files, the settings file and env overrides once.
func (c *commandContext) ensureSettings() (domain.Settings, error) {
	c.settingsOnce.Do(func() {
		path := c.configPath()
		if err := config.LoadDotEnv(".env", filepath.Join(filepath.Dir(path), ".env")); err != nil {
			c.settingsErr = err
			return
		}
		settings, err := config.NewJSONStore(path).Load()
		if err != nil {
			c.settingsErr = err
			return
		}
		c.settings = config.ApplyEnv(settings)
	})
	return c.settings, c.settingsErr
}

func (c *commandContext) ensureLogger() (*zap.Logger, error) {
	c.loggerOnce.Do(func() {
		level := ""
		if c.logLevelFlag != nil {
			level = *c.logLevelFlag
		}
		c.logger, c.loggerErr = logging.New(logging.Options{Level: level})
	})
	return c.logger, c.loggerErr
}
