// Command ircztd runs the IRC server. It takes no arguments: the
// configuration file comes from IRCZT_CONFIG (built-in defaults apply
// when unset), and any byte or EOF on stdin requests shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/irczt/irczt/irc"
	"github.com/irczt/irczt/irc/admind"
	"github.com/irczt/irczt/irc/config"
	"github.com/irczt/irczt/irc/logging"
)

func main() {
	logger := logging.New()

	cfg, err := loadConfig()
	if err != nil {
		logger.Warn().Msgf("Startup failed: %v", err)
		os.Exit(1)
	}
	logger.Info().Msgf("Configuration loaded from %s", cfg.Source)

	server := irc.NewServer(cfg, logger)
	if err := server.Start(); err != nil {
		logger.Warn().Msgf("Startup failed: %v", err)
		os.Exit(1)
	}

	var admin *admind.Server
	if cfg.Admin.Enabled {
		admin = admind.New(server, cfg.Admin.Listen, logger)
		go func() {
			if err := admin.Start(); !errors.Is(err, http.ErrServerClosed) {
				logger.Warn().Msgf("Admin server failed: %v", err)
			}
		}()
	}

	if err := server.Run(); err != nil {
		logger.Warn().Msgf("Server failed: %v", err)
		os.Exit(1)
	}

	if admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := admin.Shutdown(ctx); err != nil {
			logger.Warn().Msgf("Admin shutdown failed: %v", err)
		}
	}
}

// loadConfig reads IRCZT_CONFIG when set and falls back to the built-in
// defaults (still honoring IRCZT_* overrides) when not.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv("IRCZT_CONFIG"); path != "" {
		return config.Load(path)
	}
	return config.FromEnv()
}
