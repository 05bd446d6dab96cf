package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"passportphoto/internal/domain"
	"passportphoto/internal/render"
)

// StartCorrection kicks off the two-pass correction. With ?wait=true the
// request blocks until the run completes and returns the final state.
func (a *App) StartCorrection(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.Sessions.Lookup(r)
	if !ok || ctrl.Snapshot().Source == nil {
		a.error(w, http.StatusUnprocessableEntity, "no_image", "Select an image before starting the correction.")
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if wait {
		if !ctrl.RunCorrection(r.Context()) {
			a.error(w, http.StatusConflict, "busy", "A correction is already running.")
			return
		}
		a.json(w, http.StatusOK, newStateResponse(ctrl.Snapshot()))
		return
	}

	if !ctrl.StartCorrection(r.Context()) {
		a.error(w, http.StatusConflict, "busy", "A correction is already running.")
		return
	}
	a.json(w, http.StatusAccepted, newStateResponse(ctrl.Snapshot()))
}

// Result serves the corrected image as returned by the model.
func (a *App) Result(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.Sessions.Lookup(r)
	if !ok {
		a.error(w, http.StatusNotFound, "no_result", "There is no corrected image.")
		return
	}
	mimeType, data, ok := ctrl.ResultImage()
	if !ok {
		a.error(w, http.StatusNotFound, "no_result", "There is no corrected image.")
		return
	}
	writeImage(w, mimeType, data)
}

// DownloadResult returns the corrected image re-encoded as a JPEG attachment.
func (a *App) DownloadResult(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.Sessions.Lookup(r)
	if !ok {
		a.error(w, http.StatusNotFound, "no_result", "There is no corrected image to download.")
		return
	}
	s := ctrl.Snapshot()
	switch {
	case s.Busy:
		a.error(w, http.StatusConflict, "busy", "The image is still being processed.")
		return
	case !s.HasResult():
		a.error(w, http.StatusNotFound, "no_result", "There is no corrected image to download.")
		return
	}

	out, err := ctrl.DownloadResult()
	if err != nil {
		status := http.StatusInternalServerError
		if !errors.Is(err, domain.ErrDownload) {
			status = http.StatusBadGateway
		}
		a.Logger.Warn().Err(err).Msg("download failed")
		a.error(w, status, "download_failed", err.Error())
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", render.DownloadFileName))
	writeImage(w, render.DownloadMIMEType, out)
}
