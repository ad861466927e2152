package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/awale-live/awale/internal/config"
	"github.com/awale-live/awale/internal/game"
	"github.com/awale-live/awale/internal/relay"
	"github.com/awale-live/awale/internal/server"
	"github.com/awale-live/awale/internal/userstore"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("DEBUG") == "true" {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := config.Load()

	users, err := userstore.Open(cfg.UsersFile, cfg.MaxUsers)
	if err != nil {
		log.Fatalf("open user store %s: %v", cfg.UsersFile, err)
	}
	log.Infof("user store %s loaded, %d accounts", cfg.UsersFile, users.Count())

	var onResult func(game.Result)
	if cfg.RedisAddr != "" {
		rl, err := relay.New(cfg.RedisAddr, cfg.RedisQueue, log)
		if err != nil {
			log.Warnf("result relay disabled: %v", err)
		} else {
			defer rl.Close()
			onResult = rl.PublishResult
			log.Infof("publishing results to redis queue %q at %s", cfg.RedisQueue, cfg.RedisAddr)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, log, users, onResult)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
	log.Info("server stopped")
}
