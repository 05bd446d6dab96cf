package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"passportphoto/internal/imagecodec"
)

const (
	uploadField     = "image"
	multipartMemory = 8 << 20
	multipartSlack  = 1 << 20
)

// UploadImage selects the uploaded photo for the caller's session.
func (a *App) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctrl := a.Sessions.Resolve(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, a.Config.MaxUploadBytes+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", "The selected file is too large.")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "expected a multipart form upload")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "form field \""+uploadField+"\" is required")
		return
	}
	defer file.Close()

	src, err := imagecodec.ReadSource(file, header.Filename, header.Header.Get("Content-Type"), a.Config.MaxUploadBytes)
	if err != nil {
		status := http.StatusBadRequest
		if header.Size > a.Config.MaxUploadBytes {
			status = http.StatusRequestEntityTooLarge
		}
		a.error(w, status, "read_failed", err.Error())
		return
	}
	if src.MIMEType == "" || src.MIMEType == "application/octet-stream" {
		src.MIMEType = imagecodec.NormalizeMIME(http.DetectContentType(src.Data))
	}
	if !imagecodec.IsImageMIME(src.MIMEType) {
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "Only image files can be uploaded.")
		return
	}

	ctrl.SelectImage(src)
	a.Logger.Info().
		Str("name", src.Name).
		Str("mime", src.MIMEType).
		Int("bytes", src.Size()).
		Msg("image selected")
	a.json(w, http.StatusOK, newStateResponse(ctrl.Snapshot()))
}

// OriginalImage serves the selected photo for the preview pane.
func (a *App) OriginalImage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.Sessions.Lookup(r)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "no image selected")
		return
	}
	s := ctrl.Snapshot()
	if s.Source == nil {
		a.error(w, http.StatusNotFound, "not_found", "no image selected")
		return
	}
	writeImage(w, s.Source.MIMEType, s.Source.Data)
}

func writeImage(w http.ResponseWriter, mimeType string, data []byte) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
