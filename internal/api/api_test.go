package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidredact/internal/api"
	"vidredact/internal/blobstore"
	"vidredact/internal/config"
	"vidredact/internal/jobs"
	"vidredact/internal/logging"
	"vidredact/internal/testsupport"
	"vidredact/internal/workflow"
)

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *recordingQueue) Enqueue(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
}

func (q *recordingQueue) queued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}

type staticStatus workflow.StatusSummary

func (s staticStatus) Status(context.Context) workflow.StatusSummary {
	return workflow.StatusSummary(s)
}

type fixture struct {
	cfg      *config.Config
	store    *jobs.Store
	blobs    *blobstore.Memory
	queue    *recordingQueue
	registry *prometheus.Registry
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	f := &fixture{
		cfg:      cfg,
		store:    testsupport.MustOpenStore(t, cfg),
		blobs:    blobstore.NewMemory("results"),
		queue:    &recordingQueue{},
		registry: prometheus.NewRegistry(),
	}
	server := api.New(cfg, api.Deps{
		Store:    f.store,
		Blobs:    f.blobs,
		Queue:    f.queue,
		Status:   staticStatus{Running: true, Current: "M1", Queued: []string{"M2"}, OrderStats: map[jobs.Status]int{jobs.StatusPending: 1}},
		Gatherer: f.registry,
	}, logging.NewNop())
	f.handler = server.Handler()
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, fields map[string]string, fileName string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("videofile", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/mp-editvideo/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func validFields(workID string) map[string]string {
	return map[string]string{
		"worknum":         workID,
		"filename":        "holiday clip",
		"power":           "0.5",
		"mosaic_strength": "20",
	}
}

func downloadsEntries(t *testing.T, cfg *config.Config) []string {
	t.Helper()
	entries, err := os.ReadDir(cfg.DownloadsDir())
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestEditVideoAcceptsUpload(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, uploadRequest(t, validFields("M001"), "clip.MOV", []byte("video-bytes")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":200}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	order, err := f.store.Get(context.Background(), "M001")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusPending, order.Status)
	assert.Equal(t, "holiday clip", order.DisplayName)
	assert.Equal(t, 0.5, order.ConfidenceThreshold)
	assert.Equal(t, 20, order.MosaicStrength)
	assert.Equal(t, filepath.Join(f.cfg.DownloadsDir(), "M001.mov"), order.SourcePath)

	data, err := os.ReadFile(order.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
	assert.Equal(t, []string{"M001"}, f.queue.queued())
	assert.Equal(t, []string{"M001.mov"}, downloadsEntries(t, f.cfg))
}

func TestEditVideoDefaultsMosaicStrength(t *testing.T) {
	f := newFixture(t)
	fields := validFields("P2")
	delete(fields, "mosaic_strength")

	rec := f.do(t, uploadRequest(t, fields, "plate", []byte("x")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	order, err := f.store.Get(context.Background(), "P2")
	require.NoError(t, err)
	assert.Equal(t, f.cfg.Workflow.DefaultMosaicStrength, order.MosaicStrength)
	assert.Equal(t, filepath.Join(f.cfg.DownloadsDir(), "P2.mp4"), order.SourcePath)
}

func TestEditVideoRejectsMalformedPayload(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
		file   string
	}{
		{name: "missing file", mutate: func(map[string]string) {}},
		{name: "unparsable power", mutate: func(f map[string]string) { f["power"] = "high" }, file: "a.mp4"},
		{name: "power out of range", mutate: func(f map[string]string) { f["power"] = "1.5" }, file: "a.mp4"},
		{name: "zero power", mutate: func(f map[string]string) { f["power"] = "0" }, file: "a.mp4"},
		{name: "bad strength", mutate: func(f map[string]string) { f["mosaic_strength"] = "strong" }, file: "a.mp4"},
		{name: "negative strength", mutate: func(f map[string]string) { f["mosaic_strength"] = "-5" }, file: "a.mp4"},
		{name: "path in worknum", mutate: func(f map[string]string) { f["worknum"] = "../M1" }, file: "a.mp4"},
		{name: "missing worknum", mutate: func(f map[string]string) { delete(f, "worknum") }, file: "a.mp4"},
		{name: "missing filename", mutate: func(f map[string]string) { delete(f, "filename") }, file: "a.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			fields := validFields("M1")
			tt.mutate(fields)

			rec := f.do(t, uploadRequest(t, fields, tt.file, []byte("x")))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Empty(t, f.queue.queued())
			assert.Empty(t, downloadsEntries(t, f.cfg))
			_, err := f.store.Get(context.Background(), "M1")
			assert.ErrorIs(t, err, jobs.ErrNotFound)
		})
	}
}

func TestEditVideoRejectsDuplicate(t *testing.T) {
	f := newFixture(t)

	first := f.do(t, uploadRequest(t, validFields("M7"), "a.mp4", []byte("first")))
	require.Equal(t, http.StatusOK, first.Code)
	second := f.do(t, uploadRequest(t, validFields("M7"), "a.mp4", []byte("second")))
	assert.Equal(t, http.StatusConflict, second.Code)

	assert.Equal(t, []string{"M7"}, f.queue.queued())
	data, err := os.ReadFile(filepath.Join(f.cfg.DownloadsDir(), "M7.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestEditVideoPlacementFailureDropsRecord(t *testing.T) {
	f := newFixture(t)
	blocker := filepath.Join(f.cfg.DownloadsDir(), "M7.mp4")
	testsupport.WriteFile(t, filepath.Join(blocker, "occupied"), 1)

	rec := f.do(t, uploadRequest(t, validFields("M7"), "a.mp4", []byte("first")))
	require.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())

	_, err := f.store.Get(context.Background(), "M7")
	assert.ErrorIs(t, err, jobs.ErrNotFound)
	pending, err := f.store.PendingIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, f.queue.queued())

	require.NoError(t, os.RemoveAll(blocker))
	retry := f.do(t, uploadRequest(t, validFields("M7"), "a.mp4", []byte("second")))
	require.Equal(t, http.StatusOK, retry.Code, retry.Body.String())
	assert.Equal(t, []string{"M7"}, f.queue.queued())
	data, err := os.ReadFile(blocker)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestDownloadVideo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testsupport.MustInsertOrder(t, f.cfg, f.store, "M001")
	require.NoError(t, f.store.MarkRunning(ctx, "M001"))
	require.NoError(t, f.store.MarkDone(ctx, "M001", "memory://results/M001/clip.mp4", jobs.Durations{jobs.ClassKnife: 0.03}))
	f.blobs.Put("M001/readme.txt", []byte("x"))
	f.blobs.Put("M001/clip.mp4", []byte("video"))

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/mp-downloadvideo/?worknum=M001", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.DownloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.DownloadURL, "memory://results/M001/clip.mp4?"), resp.DownloadURL)
	assert.Contains(t, resp.DownloadURL, "expires=3600")
	assert.Equal(t, "0.03", resp.Labels[jobs.ClassKnife])
	assert.Equal(t, "0", resp.Labels[jobs.ClassGun])
	assert.Len(t, resp.Labels, len(jobs.Classes))
}

func TestDownloadVideoNotFound(t *testing.T) {
	f := newFixture(t)
	testsupport.MustInsertOrder(t, f.cfg, f.store, "P3")
	f.blobs.Put("P3/notes.txt", []byte("x"))

	tests := []struct {
		name string
		url  string
		code int
	}{
		{name: "missing worknum", url: "/mp-downloadvideo/", code: http.StatusBadRequest},
		{name: "unknown order", url: "/mp-downloadvideo/?worknum=M404", code: http.StatusNotFound},
		{name: "no mp4 object", url: "/mp-downloadvideo/?worknum=P3", code: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestFindListSortsNumerically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"M2", "M10", "P1", "M5"} {
		testsupport.MustInsertOrder(t, f.cfg, f.store, id)
	}
	require.NoError(t, f.store.MarkRunning(ctx, "M5"))

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/mp-findlist/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pending_jobs":["P1","M2","M10"]}`, rec.Body.String())
}

func TestFindListEmpty(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/mp-findlist/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pending_jobs":[]}`, rec.Body.String())
}

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testsupport.MustInsertOrder(t, f.cfg, f.store, "M9")
	require.NoError(t, f.store.MarkRunning(ctx, "M9"))
	require.NoError(t, f.store.MarkFailed(ctx, "M9", "detector unavailable"))

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/mp-status/?worknum=M9", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status api.OrderStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "M9", status.WorkID)
	assert.Equal(t, jobs.StatusFailed.String(), status.Status)
	assert.Equal(t, -1, status.StatusCode)
	assert.Equal(t, "detector unavailable", status.Error)
	assert.NotEmpty(t, status.StartedAt)
	assert.NotEmpty(t, status.FinishedAt)

	missing := f.do(t, httptest.NewRequest(http.MethodGet, "/mp-status/?worknum=M404", nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "vidredact_test_total", Help: "test"})
	f.registry.MustRegister(counter)
	counter.Inc()

	health := f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, health.Code)
	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(health.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.WorkerRunning)
	assert.Equal(t, "M1", resp.CurrentJob)
	assert.Equal(t, 1, resp.Queued)
	assert.Equal(t, 1, resp.OrderStats[jobs.StatusPending.String()])

	metrics := f.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "vidredact_test_total 1")
}

func TestServerStartListens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	server := api.New(cfg, api.Deps{Store: store, Blobs: blobstore.NewMemory("b"), Queue: &recordingQueue{}}, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, server.Start(ctx))
	defer server.Stop()

	resp, err := http.Get("http://" + server.Addr() + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
