package handlers

import (
	"fmt"
	"net/http"

	"passportphoto/internal/controller"
)

type stateResponse struct {
	HasImage    bool   `json:"has_image"`
	ImageName   string `json:"image_name,omitempty"`
	OriginalURL string `json:"original_url,omitempty"`
	ResultURL   string `json:"result_url,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	Busy        bool   `json:"busy"`
	Error       string `json:"error,omitempty"`
	Stage       string `json:"stage"`
}

func newStateResponse(s controller.State) stateResponse {
	resp := stateResponse{
		HasImage: s.Source != nil,
		Busy:     s.Busy,
		Error:    s.Error,
		Stage:    s.Stage.String(),
	}
	if s.Source != nil {
		resp.ImageName = s.Source.Name
		resp.OriginalURL = fmt.Sprintf("/v1/image/original?v=%d", s.Version)
	}
	if s.HasResult() {
		resp.ResultURL = fmt.Sprintf("/v1/result?v=%d", s.Version)
		resp.DownloadURL = "/v1/result/download"
	}
	return resp
}

// State reports the caller's UI state. It never creates a session.
func (a *App) State(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.Sessions.Lookup(r)
	if !ok {
		a.json(w, http.StatusOK, newStateResponse(controller.State{}))
		return
	}
	a.json(w, http.StatusOK, newStateResponse(ctrl.Snapshot()))
}
