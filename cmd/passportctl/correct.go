package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"passportphoto/internal/controller"
	"passportphoto/internal/imagecodec"
	"passportphoto/internal/infra"
	"passportphoto/internal/pipeline"
	"passportphoto/internal/render"
	"passportphoto/internal/storage"
)

const maxInputBytes = 50 << 20

// correctFile runs the two-pass correction on the image at input and stores
// the JPEG download in store. It returns the written path.
func correctFile(ctx context.Context, t pipeline.Transformer, store *storage.FileStore, input string, logger *infra.Logger) (string, error) {
	f, err := os.Open(input)
	if err != nil {
		return "", fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	src, err := imagecodec.ReadSource(f, filepath.Base(input), mime.TypeByExtension(filepath.Ext(input)), maxInputBytes)
	if err != nil {
		return "", err
	}
	if !imagecodec.IsImageMIME(src.MIMEType) {
		src.MIMEType = imagecodec.NormalizeMIME(http.DetectContentType(src.Data))
	}
	if !imagecodec.IsImageMIME(src.MIMEType) {
		return "", fmt.Errorf("%s is not an image (%s)", input, src.MIMEType)
	}

	ctrl := controller.New(pipeline.New(t, pipeline.WithLogger(logger)), logger)
	ctrl.SelectImage(src)
	if !ctrl.RunCorrection(ctx) {
		return "", errors.New("correction did not start")
	}
	if s := ctrl.Snapshot(); s.Error != "" {
		return "", errors.New(s.Error)
	}

	out, err := ctrl.DownloadResult()
	if err != nil {
		return "", err
	}
	return store.Write(ctx, render.DownloadFileName, out)
}
