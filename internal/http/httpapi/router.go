package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"passportphoto/internal/http/handlers"
	"passportphoto/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.CORSAllowedOrigins),
	)

	r.Get("/", app.Index)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/state", app.State)
		r.Post("/image", app.UploadImage)
		r.Get("/image/original", app.OriginalImage)
		r.With(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute)).
			Post("/correction", app.StartCorrection)
		r.Get("/result", app.Result)
		r.Get("/result/download", app.DownloadResult)
	})

	return r
}
