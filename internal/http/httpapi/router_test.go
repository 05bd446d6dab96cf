package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"passportphoto/internal/controller"
	"passportphoto/internal/http/handlers"
	"passportphoto/internal/infra"
	"passportphoto/internal/pipeline"
	"passportphoto/internal/providers/genai"
	"passportphoto/internal/session"
)

type fakeModel struct {
	calls atomic.Int32
	image []byte
}

func (f *fakeModel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	_, _ = io.Copy(io.Discard, r.Body)
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"candidates":[{"content":{"role":"model","parts":[{"inlineData":{"mimeType":"image/png","data":%q}}]},"finishReason":"STOP"}]}`,
		base64.StdEncoding.EncodeToString(f.image))
}

type harness struct {
	srv    *httptest.Server
	client *http.Client
	model  *fakeModel
}

func newHarness(t *testing.T, apiKey string, rateLimit int) *harness {
	t.Helper()
	model := &fakeModel{image: pngBytes(t, 30, 40)}
	modelSrv := httptest.NewServer(model)
	t.Cleanup(modelSrv.Close)

	gen, err := genai.NewClient(context.Background(), genai.Options{
		APIKey:     apiKey,
		BaseURL:    modelSrv.URL,
		HTTPClient: modelSrv.Client(),
	})
	if err != nil {
		t.Fatalf("genai.NewClient: %v", err)
	}

	logger := zerolog.Nop()
	cfg := &infra.Config{
		AppEnv:          "test",
		MaxUploadBytes:  1 << 20,
		RateLimitPerMin: rateLimit,
	}
	store := session.NewStore(func() *controller.Controller {
		return controller.New(pipeline.New(gen, pipeline.WithLogger(&logger)), &logger)
	}, time.Hour)
	srv := httptest.NewServer(NewRouter(handlers.NewApp(cfg, logger, store)))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &harness{srv: srv, client: &http.Client{Jar: jar}, model: model}
}

func (h *harness) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := h.client.Get(h.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h *harness) post(t *testing.T, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	resp, err := h.client.Post(h.srv.URL+path, contentType, body)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h *harness) upload(t *testing.T, filename, contentType string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	_, _ = part.Write(data)
	_ = mw.Close()
	return h.post(t, "/v1/image", mw.FormDataContentType(), &buf)
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

type stateBody struct {
	HasImage    bool   `json:"has_image"`
	ImageName   string `json:"image_name"`
	OriginalURL string `json:"original_url"`
	ResultURL   string `json:"result_url"`
	DownloadURL string `json:"download_url"`
	Busy        bool   `json:"busy"`
	Error       string `json:"error"`
	Stage       string `json:"stage"`
}

func readState(t *testing.T, resp *http.Response) stateBody {
	t.Helper()
	var s stateBody
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return s
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, "test-key", 10)
	resp := h.get(t, "/v1/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
}

func TestCorrectionEndToEnd(t *testing.T) {
	h := newHarness(t, "test-key", 10)

	if resp := h.get(t, "/"); resp.StatusCode != http.StatusOK {
		t.Fatalf("index status = %d", resp.StatusCode)
	}

	resp := h.upload(t, "portrait.png", "image/png", pngBytes(t, 12, 16))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	if s := readState(t, resp); !s.HasImage || s.ImageName != "portrait.png" {
		t.Fatalf("upload state = %+v", s)
	}

	resp = h.post(t, "/v1/correction?wait=true", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("correction status = %d", resp.StatusCode)
	}
	s := readState(t, resp)
	if s.Error != "" || s.ResultURL == "" || s.Stage != "done" {
		t.Fatalf("correction state = %+v", s)
	}
	if got := h.model.calls.Load(); got != 2 {
		t.Fatalf("model calls = %d, want 2", got)
	}

	resp = h.get(t, "/v1/state")
	if got := readState(t, resp); got.ResultURL != s.ResultURL || got.Busy {
		t.Fatalf("state = %+v", got)
	}

	resp = h.get(t, s.DownloadURL)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", resp.StatusCode)
	}
	cfg, format, err := image.DecodeConfig(resp.Body)
	if err != nil {
		t.Fatalf("decode download: %v", err)
	}
	if format != "jpeg" || cfg.Width != 30 || cfg.Height != 40 {
		t.Fatalf("download = %s %dx%d, want jpeg 30x40", format, cfg.Width, cfg.Height)
	}
}

func TestCorrectionWithoutCredential(t *testing.T) {
	h := newHarness(t, "", 10)
	h.upload(t, "portrait.png", "image/png", pngBytes(t, 4, 4))

	resp := h.post(t, "/v1/correction?wait=true", "", nil)
	s := readState(t, resp)
	want := controller.ErrorPrefix + genai.MissingKeyMessage
	if s.Error != want {
		t.Fatalf("error = %q, want %q", s.Error, want)
	}
	if s.ResultURL != "" {
		t.Fatalf("result present after failure: %+v", s)
	}
	if got := h.model.calls.Load(); got != 0 {
		t.Fatalf("model calls = %d, want 0", got)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	h := newHarness(t, "test-key", 10)
	resp := h.upload(t, "notes.txt", "text/plain", []byte("plain text"))
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", resp.StatusCode)
	}
	if s := readState(t, h.get(t, "/v1/state")); s.HasImage {
		t.Fatalf("rejected upload selected an image: %+v", s)
	}
}

func TestCorrectionRateLimited(t *testing.T) {
	h := newHarness(t, "test-key", 2)
	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		statuses = append(statuses, h.post(t, "/v1/correction", "", nil).StatusCode)
	}
	want := []int{http.StatusUnprocessableEntity, http.StatusUnprocessableEntity, http.StatusTooManyRequests}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", statuses, want)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t, "test-key", 10)
	if resp := h.get(t, "/v1/nope"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
