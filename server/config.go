package main

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"blackjack-table/server/judge"
	"blackjack-table/server/table"
)

type Config struct {
	DatabaseURL string
	SQLitePath  string
	Port        string
	AutoMigrate bool
	Seed        uint64
	OddsTrials  int
	LogLevel    slog.Level
}

// loadConfig reads the environment; .env has already been loaded by main.
func loadConfig() Config {
	return Config{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:  strings.TrimSpace(os.Getenv("SQLITE_PATH")),
		Port:        getenv("PORT", "8080"),
		AutoMigrate: asBool(os.Getenv("AUTO_MIGRATE")),
		Seed:        table.SeedFromString(strings.TrimSpace(os.Getenv("DECK_SEED"))),
		OddsTrials:  atoiDef(os.Getenv("ODDS_TRIALS"), judge.DefaultTrials),
		LogLevel:    parseLevel(os.Getenv("LOG_LEVEL")),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
