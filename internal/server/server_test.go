package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/jonathan/monitoring-deck/internal/artifact"
	"github.com/jonathan/monitoring-deck/internal/db"
	"github.com/jonathan/monitoring-deck/internal/pptx"
	"github.com/jonathan/monitoring-deck/internal/skeleton"
	"github.com/jonathan/monitoring-deck/internal/tabular"
	"github.com/jonathan/monitoring-deck/internal/thresholds"
	"github.com/jonathan/monitoring-deck/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeRecorder struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]bool
	artifacts map[uuid.UUID]map[types.TopicID]db.TopicArtifact
	topics    int
	merged    int
	mergeCtx  []error
}

func (f *fakeRecorder) CreateSession(_ context.Context, id uuid.UUID) (*db.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessions == nil {
		f.sessions = make(map[uuid.UUID]bool)
	}
	f.sessions[id] = true
	return &db.Session{ID: id}, nil
}

func (f *fakeRecorder) GetSession(_ context.Context, id uuid.UUID) (*db.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.sessions[id] {
		return nil, nil
	}
	return &db.Session{ID: id}, nil
}

func (f *fakeRecorder) ListTopicArtifacts(_ context.Context, id uuid.UUID) ([]db.TopicArtifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.TopicArtifact
	for _, a := range f.artifacts[id] {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b db.TopicArtifact) int { return a.Revision - b.Revision })
	return out, nil
}

func (f *fakeRecorder) DeleteSession(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	delete(f.artifacts, id)
	return nil
}

func (f *fakeRecorder) SaveTopicArtifact(_ context.Context, a *db.TopicArtifact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics++
	if f.artifacts == nil {
		f.artifacts = make(map[uuid.UUID]map[types.TopicID]db.TopicArtifact)
	}
	if f.artifacts[a.SessionID] == nil {
		f.artifacts[a.SessionID] = make(map[types.TopicID]db.TopicArtifact)
	}
	f.artifacts[a.SessionID][a.Topic] = *a
	return nil
}

func (f *fakeRecorder) SaveMergedDeck(ctx context.Context, _ *db.MergedDeck) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merged++
	f.mergeCtx = append(f.mergeCtx, ctx.Err())
	return int64(f.merged), nil
}

func newTestServer(t *testing.T, mutate ...func(*Config)) *Server {
	t.Helper()
	cfg := Config{
		Thresholds: thresholds.NewMemoryStore(),
		Style:      skeleton.DefaultResolved(),
		Logger:     zaptest.NewLogger(t),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func chartPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 6))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func topicBody(t *testing.T, metric, column string, value float64) TopicRequest {
	target := types.LastRow(column)
	return TopicRequest{
		Title:      "PL - " + column,
		MetricType: metric,
		Table: types.Table{
			Columns: []string{"Period", column},
			Rows:    [][]types.Cell{{types.TextCell("2024Q1"), types.FloatCell(value)}},
		},
		Chart:       chartPNG(t),
		Target:      &target,
		DataComment: "stable",
	}
}

func createSession(t *testing.T, s *Server) uuid.UUID {
	t.Helper()
	w := do(t, s, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	return decode[SessionResponse](t, w).SessionID
}

func TestNew_RequiresThresholdStore(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHandleHealth(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestThresholds_DefaultThenSaved(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/thresholds/gini", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[ThresholdsResponse](t, w)
	assert.Equal(t, thresholds.SourceDefault, got.Source)
	assert.Equal(t, 0.40, got.Thresholds.Green)

	w = do(t, s, http.MethodPut, "/thresholds/gini", `{"green":0.5,"amber_lower":0.3,"amber_upper":0.5,"red":0.3}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[ThresholdsResponse](t, w).Warnings)

	w = do(t, s, http.MethodGet, "/thresholds/gini", nil)
	got = decode[ThresholdsResponse](t, w)
	assert.Equal(t, thresholds.SourcePersisted, got.Source)
	assert.Equal(t, 0.5, got.Thresholds.Green)
}

func TestThresholds_MissingConfig(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/thresholds/psi", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "no threshold config")
}

func TestThresholds_PutMisorderedReportsWarnings(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodPut, "/thresholds/psi", `{"green":0.1,"amber_lower":0.2,"amber_upper":0.25,"red":0.3}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[ThresholdsResponse](t, w).Warnings)
}

func TestThresholds_PutRejectsBadBody(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPut, "/thresholds/gini", `{"green":0.5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPut, "/thresholds/gini", `{"green":"high","amber_lower":0.3,"amber_upper":0.5,"red":0.3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestThresholds_InvalidMetric(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/thresholds/..hidden", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassify(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		want types.Band
	}{
		{"default gini boundary", `{"metric_type":"gini","value":0.40}`, types.BandAmber},
		{"default gini green", `{"metric_type":"gini","value":0.401}`, types.BandGreen},
		{"default gini red", `{"metric_type":"gini","value":0.30}`, types.BandRed},
		{"no config", `{"metric_type":"psi","value":0.1}`, types.BandUnclassified},
		{"explicit thresholds", `{"thresholds":{"green":0.9,"amber_lower":0.5,"amber_upper":0.9,"red":0.5},"value":0.7}`, types.BandAmber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/classify", tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.want, decode[ClassifyResponse](t, w).Band)
		})
	}
}

func TestClassify_Validation(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/classify", `{"metric_type":"gini"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/classify", `{"value":0.2}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/classify", `{"value":0.2,"extra":1}`).Code)
}

func TestSessions_Isolated(t *testing.T) {
	s := newTestServer(t)
	a := createSession(t, s)
	b := createSession(t, s)

	w := do(t, s, http.MethodPut, "/sessions/"+a.String()+"/topics/gini", topicBody(t, "gini", "Gini", 0.45))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, s, http.MethodGet, "/sessions/"+a.String(), nil)
	assert.Equal(t, []types.TopicID{"gini"}, decode[SessionResponse](t, w).Topics)

	w = do(t, s, http.MethodGet, "/sessions/"+b.String(), nil)
	assert.Empty(t, decode[SessionResponse](t, w).Topics)

	w = do(t, s, http.MethodGet, "/sessions/"+b.String()+"/topics/gini/deck.pptx", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessions_UnknownAndInvalid(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/sessions/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/sessions/not-a-uuid", nil).Code)
}

func TestPutTopic(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	w := do(t, s, http.MethodPut, "/sessions/"+id.String()+"/topics/gini", topicBody(t, "gini", "Gini", 0.25))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[TopicResponse](t, w)
	assert.Equal(t, TopicResponse{Topic: "gini", Band: types.BandRed, Slides: 3, Revision: 1}, got)

	w = do(t, s, http.MethodPut, "/sessions/"+id.String()+"/topics/gini", topicBody(t, "gini", "Gini", 0.45))
	require.Equal(t, http.StatusOK, w.Code)
	got = decode[TopicResponse](t, w)
	assert.Equal(t, types.BandGreen, got.Band)
	assert.Equal(t, 2, got.Revision)
}

func TestPutTopic_MalformedChart(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	body := topicBody(t, "gini", "Gini", 0.45)
	body.Chart = []byte("garbage")
	w := do(t, s, http.MethodPut, "/sessions/"+id.String()+"/topics/gini", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "chart image")
}

func TestPutTopic_MetricWithoutTarget(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	body := topicBody(t, "gini", "Gini", 0.45)
	body.Target = nil
	w := do(t, s, http.MethodPut, "/sessions/"+id.String()+"/topics/gini", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutTopic_TargetRowDefaultsToLastRow(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	body := func(target string) string {
		table, err := json.Marshal(types.Table{
			Columns: []string{"Period", "Gini"},
			Rows: [][]types.Cell{
				{types.TextCell("2024Q1"), types.FloatCell(0.25)},
				{types.TextCell("2024Q2"), types.FloatCell(0.45)},
			},
		})
		require.NoError(t, err)
		chart, err := json.Marshal(chartPNG(t))
		require.NoError(t, err)
		return `{"title":"PL - Gini","metric_type":"gini","table":` + string(table) +
			`,"chart":` + string(chart) + `,"target":` + target + `}`
	}

	w := do(t, s, http.MethodPut, "/sessions/"+id.String()+"/topics/gini", body(`{"column":"Gini"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, types.BandGreen, decode[TopicResponse](t, w).Band)

	w = do(t, s, http.MethodPut, "/sessions/"+id.String()+"/topics/gini", body(`{"column":"Gini","row":0}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, types.BandRed, decode[TopicResponse](t, w).Band)
}

func TestTopicDownloads(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	base := "/sessions/" + id.String() + "/topics/gini"
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPut, base, topicBody(t, "gini", "Gini", 0.35)).Code)

	w := do(t, s, http.MethodGet, base+"/deck.pptx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, artifact.ContentType("x.pptx"), w.Header().Get("Content-Type"))
	d, err := pptx.Decode(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())

	w = do(t, s, http.MethodGet, base+"/table.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	table, err := tabular.ParseXLSX(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"Period", "Gini"}, table.Columns)

	w = do(t, s, http.MethodGet, base+"/table.html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)
	cell := doc.Find("td[data-band]")
	require.Equal(t, 1, cell.Length())
	band, _ := cell.Attr("data-band")
	assert.Equal(t, string(types.BandAmber), band)
}

func TestMergedDeck_NothingToMerge(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	w := do(t, s, http.MethodGet, "/sessions/"+id.String()+"/deck.pptx?topics=gini,psi", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	got := decode[NotReadyResponse](t, w)
	assert.Equal(t, "nothing to merge yet", got.Error)
	assert.Equal(t, []types.TopicID{"gini", "psi"}, got.Missing)
}

func TestMergedDeck(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestServer(t, func(c *Config) { c.Recorder = rec })
	id := createSession(t, s)
	base := "/sessions/" + id.String()

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPut, base+"/topics/gini", topicBody(t, "gini", "Gini", 0.45)).Code)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPut, base+"/topics/psi", topicBody(t, "", "PSI", 0.02)).Code)

	w := do(t, s, http.MethodGet, base+"/deck.pptx?topics=psi,gini,calibration", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "calibration", w.Header().Get("X-Missing-Topics"))
	assert.Equal(t, "2", w.Header().Get("X-Deck-Revision"))

	d, err := pptx.Decode(w.Body.Bytes())
	require.NoError(t, err)
	require.Equal(t, 6, d.Len())
	assert.Equal(t, "PL - PSI", d.Slides[0].Title().Text)
	assert.Equal(t, "PL - Gini", d.Slides[3].Title().Text)

	// Same revision and order is served from cache.
	w = do(t, s, http.MethodGet, base+"/deck.pptx?topics=psi,gini,calibration", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, rec.merged)
	assert.Equal(t, 2, rec.topics)

	w = do(t, s, http.MethodGet, base+"/deck.pptx?topics=gini,gini", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMergedDeck_ConcurrentRequests(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestServer(t, func(c *Config) { c.Recorder = rec })
	id := createSession(t, s)
	base := "/sessions/" + id.String()
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPut, base+"/topics/gini", topicBody(t, "gini", "Gini", 0.45)).Code)

	var wg sync.WaitGroup
	codes := make([]int, 8)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, base+"/deck.pptx", nil)
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, 1, rec.merged)
}

func TestMergedDeck_BuildOutlivesCanceledRequest(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestServer(t, func(c *Config) { c.Recorder = rec })
	id := createSession(t, s)
	base := "/sessions/" + id.String()
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPut, base+"/topics/gini", topicBody(t, "gini", "Gini", 0.45)).Code)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, base+"/deck.pptx", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.mergeCtx, 1)
	assert.NoError(t, rec.mergeCtx[0])
}

func TestDeleteSession(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestServer(t, func(c *Config) { c.Recorder = rec })
	id := createSession(t, s)
	base := "/sessions/" + id.String()
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPut, base+"/topics/gini", topicBody(t, "gini", "Gini", 0.45)).Code)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, base+"/deck.pptx", nil).Code)
	require.Equal(t, 1, s.cache.Len())

	w := do(t, s, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, s.cache.Len())
	assert.False(t, rec.sessions[id])
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, base, nil).Code)
}

func TestSessions_RestoredFromRecorder(t *testing.T) {
	rec := &fakeRecorder{}
	first := newTestServer(t, func(c *Config) { c.Recorder = rec })
	id := createSession(t, first)
	base := "/sessions/" + id.String()
	require.Equal(t, http.StatusOK, do(t, first, http.MethodPut, base+"/topics/psi", topicBody(t, "", "PSI", 0.05)).Code)
	require.Equal(t, http.StatusOK, do(t, first, http.MethodPut, base+"/topics/gini", topicBody(t, "gini", "Gini", 0.35)).Code)

	restarted := newTestServer(t, func(c *Config) { c.Recorder = rec })
	w := do(t, restarted, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[SessionResponse](t, w)
	assert.Equal(t, []types.TopicID{"psi", "gini"}, got.Topics)
	assert.Equal(t, 2, got.Revision)

	w = do(t, restarted, http.MethodGet, base+"/topics/gini/table.html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "AMBER")

	w = do(t, restarted, http.MethodGet, base+"/deck.pptx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	merged, err := pptx.Decode(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 6, merged.Len())
}

func TestSessions_DeletedSessionNotRestored(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestServer(t, func(c *Config) { c.Recorder = rec })
	id := createSession(t, s)
	require.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/sessions/"+id.String(), nil).Code)

	restarted := newTestServer(t, func(c *Config) { c.Recorder = rec })
	assert.Equal(t, http.StatusNotFound, do(t, restarted, http.MethodGet, "/sessions/"+id.String(), nil).Code)
}

func TestTopicParam_RejectsSeparators(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	w := do(t, s, http.MethodPut, "/sessions/"+id.String()+"/topics/a%5Cb", topicBody(t, "", "X", 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStart_StopsWhenContextDone(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, s.Start(ctx))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(&ErrValidation{Field: "f", Message: "m"}))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(&ErrSessionNotFound{}))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(thresholds.ErrConfigMissing))
	assert.Equal(t, http.StatusConflict, HTTPStatus(&artifact.NotReadyError{}))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(assert.AnError))
	assert.True(t, strings.HasPrefix((&ErrValidation{Field: "f", Message: "m"}).Error(), "validation error"))
}
