package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"passportphoto/internal/infra"
	"passportphoto/internal/session"
)

type App struct {
	Config   *infra.Config
	Logger   zerolog.Logger
	Sessions *session.Store
}

func NewApp(cfg *infra.Config, logger zerolog.Logger, sessions *session.Store) *App {
	return &App{Config: cfg, Logger: logger, Sessions: sessions}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}
