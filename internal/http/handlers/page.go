package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed web/index.html
var webFS embed.FS

var pageTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

type pageData struct {
	State       stateResponse
	MaxUploadMB int64
}

// Index renders the single page UI and binds a session to the browser.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	ctrl := a.Sessions.Resolve(w, r)

	var buf bytes.Buffer
	data := pageData{
		State:       newStateResponse(ctrl.Snapshot()),
		MaxUploadMB: a.Config.MaxUploadBytes >> 20,
	}
	if err := pageTemplate.Execute(&buf, data); err != nil {
		a.Logger.Error().Err(err).Msg("render page")
		a.error(w, http.StatusInternalServerError, "internal", "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
