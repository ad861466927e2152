// Package config reads server settings from the environment, with the
// same getEnv-with-default convention used across the codebase.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable of the server process.
type Config struct {
	// ListenAddr is the TCP listen address for the line protocol.
	ListenAddr string
	// WSAddr, when non-empty, enables the websocket listener.
	WSAddr string
	// UsersFile is the path of the flat credential store.
	UsersFile string
	// ReconnectGrace is how long a game waits for a dropped player.
	ReconnectGrace time.Duration
	// MaxPlayers bounds the player registry; 0 disables the bound.
	MaxPlayers int
	// MaxGamesPerPlayer bounds simultaneous games; 0 disables the bound.
	MaxGamesPerPlayer int
	// MaxUsers bounds the credential store; 0 disables the bound.
	MaxUsers int
	// RedisAddr, when non-empty, enables the result relay.
	RedisAddr string
	// RedisQueue overrides the relay queue name.
	RedisQueue string
}

// Load builds a Config from the environment.
func Load() Config {
	return Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":4242"),
		WSAddr:            getEnv("WS_ADDR", ""),
		UsersFile:         getEnv("USERS_FILE", "users.dat"),
		ReconnectGrace:    time.Duration(getEnvInt("RECONNECT_GRACE_SEC", 30)) * time.Second,
		MaxPlayers:        getEnvInt("MAX_PLAYERS", 100),
		MaxGamesPerPlayer: getEnvInt("MAX_GAMES_PER_PLAYER", 5),
		MaxUsers:          getEnvInt("MAX_USERS", 1000),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisQueue:        getEnv("REDIS_QUEUE", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
