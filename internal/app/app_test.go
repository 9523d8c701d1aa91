package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/godilite/report-collector/internal/collector"
	"github.com/godilite/report-collector/internal/config"
	handler "github.com/godilite/report-collector/internal/grpc"

	_ "github.com/mattn/go-sqlite3"
)

const unitQuestions = `{
	"categories": [{"id": 1, "name": "Access Control", "average": 75}],
	"questions": [{"question": {"id": 10, "text": "Is MFA enforced?", "category": 1, "parent": null}, "answer": {"value": "yes"}}]
}`

type fakeReportingAPI struct {
	mu    sync.Mutex
	hits  map[string]int
	token string
	srv   *httptest.Server
}

func newFakeReportingAPI(t *testing.T, token string) *fakeReportingAPI {
	t.Helper()

	row := func(typ, name, code, unit, id string) map[string]any {
		return map[string]any{
			"assessment_type": typ,
			"assessment_name": name,
			"org_unit_code":   code,
			"org_unit_name":   unit,
			"survey_id":       id,
			"links": map[string]string{
				"self":           "api/reports/" + id,
				"unit-questions": "api/reports/" + id + "/unit_questions",
			},
		}
	}
	list, err := json.Marshal(map[string]any{
		"count": 2,
		"results": []any{
			row("GLBA", "FY18", "U1", "Infrastructure", "s1"),
			row("PCI", "FY18", "U2", "Finance", "s2"),
		},
	})
	require.NoError(t, err)

	f := &fakeReportingAPI{hits: make(map[string]int), token: token}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.mu.Unlock()

		if r.Header.Get("Authorization") != "Token "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch {
		case r.URL.Path == "/api/reports":
			w.Write(list)
		case strings.HasSuffix(r.URL.Path, "/unit_questions"):
			w.Write([]byte(unitQuestions))
		case strings.HasPrefix(r.URL.Path, "/api/reports/"):
			id := strings.TrimPrefix(r.URL.Path, "/api/reports/")
			w.Write([]byte(`{"classifications": ["Low"], "summary": {}, "classification": "Low", "unit_questions": [], "id": "` + id + `"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeReportingAPI) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	return &config.Config{
		AppEnv:           "test",
		ReportAPIBaseURL: baseURL,
		ReportAPIToken:   "test-token",
		HTTPTimeout:      5 * time.Second,
		StrictStatus:     true,
		CacheBackend:     config.CacheMemory,
		CacheTTL:         time.Minute,
		DBDriver:         "sqlite3",
		DBPath:           filepath.Join(t.TempDir(), "reports.db"),
		SnapshotsEnabled: true,
		RunTimeout:       10 * time.Second,
	}
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	_, err := NewApp(context.Background(), &config.Config{CacheBackend: config.CacheMemory}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPORT_API_TOKEN")
}

func TestRunOnce(t *testing.T) {
	ctx := context.Background()
	api := newFakeReportingAPI(t, "test-token")

	a, err := NewApp(ctx, testConfig(t, api.srv.URL), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	res, err := a.RunOnce(ctx, collector.RunOptions{})
	require.NoError(t, err)

	ds, ok := res.Get()
	require.True(t, ok)
	assert.Equal(t, api.srv.URL+"/", ds.BaseURL)
	require.Len(t, ds.CommonReports, 1)
	assert.Equal(t, collector.CommonReportRow{
		CategoryNames: []string{"Access Control"},
		Averages:      []float64{0.75},
	}, ds.CommonReports[0].Units["Finance"])

	t.Run("report list is fetched once thanks to the fetch cache", func(t *testing.T) {
		assert.Equal(t, 1, api.Hits("/api/reports"))
		assert.Equal(t, 1, api.Hits("/api/reports/s1/unit_questions"))
	})

	t.Run("snapshot is stored", func(t *testing.T) {
		stored, err := a.snapshots.LatestSnapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, ds.RunID, stored.RunID)

		units, err := a.snapshots.ListUnits(ctx, ds.RunID)
		require.NoError(t, err)
		assert.Len(t, units, 2)
	})

	t.Run("metrics are recorded", func(t *testing.T) {
		reg := a.Metrics().Registry()
		n, err := testutil.GatherAndCount(reg, "report_api_requests_total", "report_fetch_cache_total", "report_collection_runs_total")
		require.NoError(t, err)
		assert.Positive(t, n)
	})

	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "close is idempotent")
}

func TestRunOnceWithoutCacheOrSnapshots(t *testing.T) {
	ctx := context.Background()
	api := newFakeReportingAPI(t, "test-token")
	cfg := testConfig(t, api.srv.URL)
	cfg.CacheBackend = config.CacheNone
	cfg.SnapshotsEnabled = false

	a, err := NewApp(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.RunOnce(ctx, collector.RunOptions{})
	require.NoError(t, err)

	assert.Nil(t, a.snapshots)
	assert.Greater(t, api.Hits("/api/reports"), 1, "resolver refetches the list without a cache")
}

func TestRunOnceUnauthorized(t *testing.T) {
	api := newFakeReportingAPI(t, "other")

	a, err := NewApp(context.Background(), testConfig(t, api.srv.URL), nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.RunOnce(context.Background(), collector.RunOptions{})
	assert.ErrorContains(t, err, "401")
}

func TestServe(t *testing.T) {
	api := newFakeReportingAPI(t, "test-token")
	cfg := testConfig(t, api.srv.URL)

	a, err := NewApp(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	client := handler.NewReportServiceClient(conn)
	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()

	resp, err := client.Call(callCtx, "ResolveSurveyID", map[string]any{
		"assessment_type": "PCI",
		"assessment_name": "FY18",
		"org_unit_name":   "Finance",
	}, grpc.WaitForReady(true))
	require.NoError(t, err)
	assert.Equal(t, "s2", resp.GetFields()["survey_id"].GetStringValue())

	_, err = client.Call(callCtx, "LatestSnapshot", nil)
	assert.Equal(t, codes.NotFound, status.Code(err))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
