package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/covidlens-cli/internal/config"
	"github.com/KaramelBytes/covidlens-cli/internal/export"
	"github.com/KaramelBytes/covidlens-cli/internal/report"
)

const daily = "FIPS,Admin2,Province_State,Country_Region,Last_Update,Lat,Long_,Confirmed,Deaths,Recovered,Active,Combined_Key\n" +
	",,California,US,2020-06-01 02:32:51,0,0,1000,3000,10,5,\"California, US\"\n" +
	",,Texas,US,2020-06-01 02:32:51,0,0,900,2600,8,4,\"Texas, US\"\n" +
	",,,Italy,2020-06-01 02:32:51,0,0,700,2700,6,3,Italy\n" +
	",,,Peru,2020-06-01 02:32:51,0,0,300,4000,2,2,Peru\n" +
	",,,Chad,2020-06-01 02:32:51,0,0,10,1,1,1,Chad\n"

type mapSource map[string]string

func (m mapSource) Fetch(_ context.Context, location string) ([]byte, error) {
	body, ok := m[location]
	if !ok {
		return nil, &report.DataUnavailableError{Location: location, Status: http.StatusNotFound}
	}
	return []byte(body), nil
}

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	src := mapSource{
		"base/06-01-2020.csv": daily,
		"base/06-02-2020.csv": "<html>rate limited</html>",
		"base/06-03-2020.csv": "Province_State,Confirmed\nX,1\n",
	}
	clock := func() time.Time { return time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC) }
	loader := report.NewLoader(src, "base", report.WithClock(clock))
	cfg := config.Default()
	cfg.DefaultDate = "2020-06-01"
	cfg.ChartWidth, cfg.ChartHeight = 640, 360
	return NewServer(loader, cfg, nil).Router()
}

func get(t *testing.T, r http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHealthAndRequestID(t *testing.T) {
	r := newTestServer(t)
	w := get(t, r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Header().Get(RequestIDHeader))
}

func TestCountries(t *testing.T) {
	r := newTestServer(t)
	w := get(t, r, "/api/countries?top=2")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	rows := body["rows"].([]any)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	assert.Equal(t, "US", first["Country_Region"])
	assert.Equal(t, 1900.0, first["Confirmed"])
	assert.Equal(t, 5600.0, first["Deaths"])
}

func TestCountryListAndProvinces(t *testing.T) {
	r := newTestServer(t)
	body := decode(t, get(t, r, "/api/countries/list"))
	assert.Equal(t, []any{"Chad", "Italy", "Peru", "US"}, body["countries"])

	body = decode(t, get(t, r, "/api/provinces?country=US"))
	rows := body["rows"].([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "California", rows[0].(map[string]any)["Province_State"])

	w := get(t, r, "/api/provinces?country=Atlantis")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w)["error"], `no rows for country "Atlantis"`)
}

func TestExtremes(t *testing.T) {
	r := newTestServer(t)
	body := decode(t, get(t, r, "/api/extremes?metric=deaths"))
	assert.Equal(t, "US", body["max"].([]any)[0].(map[string]any)["Country_Region"])
	assert.Equal(t, "Chad", body["min"].([]any)[0].(map[string]any)["Country_Region"])

	w := get(t, r, "/api/extremes?metric=hospitalized")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoaderFailuresMapToStatus(t *testing.T) {
	r := newTestServer(t)
	tests := []struct {
		url    string
		status int
		kind   string
	}{
		{"/api/countries?date=2020-06-04", http.StatusNotFound, report.KindDataUnavailable},
		{"/api/countries?date=2019-12-31", http.StatusNotFound, report.KindDataUnavailable},
		{"/api/countries?date=2020-06-02", http.StatusBadGateway, report.KindMalformedData},
		{"/api/countries?date=2020-06-03", http.StatusUnprocessableEntity, report.KindCountryColumnMissing},
		{"/charts/bar.png?date=2020-06-04", http.StatusNotFound, report.KindDataUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			w := get(t, r, tt.url)
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.kind, body["kind"])
			assert.NotEmpty(t, body["hint"])
		})
	}
	body := decode(t, get(t, r, "/api/source?date=2020-06-04"))
	assert.Contains(t, body["hint"], "pick another date")

	w := get(t, r, "/api/countries?date=June")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSource(t *testing.T) {
	body := decode(t, get(t, newTestServer(t), "/api/source"))
	assert.Equal(t, "base/06-01-2020.csv", body["location"])
	assert.Equal(t, 5.0, body["rows"])
	assert.Equal(t, "Country_Region", body["index"].(map[string]any)["country"])
}

func TestSampleDropsDefaultPositions(t *testing.T) {
	r := newTestServer(t)
	body := decode(t, get(t, r, "/api/sample?size=3&seed=7"))
	assert.Len(t, body["rows"], 3)
	assert.Equal(t, []any{"Province_State", "Country_Region", "Last_Update", "Confirmed", "Deaths", "Recovered", "Active"}, body["columns"])

	again := decode(t, get(t, r, "/api/sample?size=3&seed=7"))
	assert.Equal(t, body["rows"], again["rows"])

	body = decode(t, get(t, r, "/api/sample?size=100&drop="))
	assert.Len(t, body["rows"], 5)
	assert.Len(t, body["columns"], 12)
}

func TestSampleXLSX(t *testing.T) {
	w := get(t, newTestServer(t), "/api/sample.xlsx?size=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.MIMEType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), export.FileName)

	header, rows, err := export.ReadXLSX(w.Body.Bytes(), "hoja1")
	require.NoError(t, err)
	assert.Equal(t, "Province_State", header[0])
	assert.Len(t, rows, 2)
}

func TestCharts(t *testing.T) {
	r := newTestServer(t)
	for _, kind := range []string{"line", "bar", "pie", "histogram", "boxplot"} {
		t.Run(kind, func(t *testing.T) {
			w := get(t, r, "/charts/"+kind+".png?countries=US,Peru")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
			assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
		})
	}
	assert.Equal(t, http.StatusNotFound, get(t, r, "/charts/scatter.png").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/charts/bar.svg").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, get(t, r, "/charts/line.png?threshold=3500").Code)
}

func TestProfile(t *testing.T) {
	r := newTestServer(t)
	body := decode(t, get(t, r, "/api/profile"))
	assert.Equal(t, 5.0, body["rows"])
	assert.Len(t, body["columns"], 12)

	w := get(t, r, "/api/profile?format=markdown")
	assert.Contains(t, w.Body.String(), "[SCHEMA]")
}
