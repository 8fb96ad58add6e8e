package server

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	godbf "github.com/Ulysses-Xu/dbfcodec"
)

func newTestServer(t *testing.T, opts godbf.Options, maxUpload int64) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	opts.Metrics = godbf.NewMetrics(reg)
	codec, err := godbf.NewCodec(opts)
	require.NoError(t, err)
	ts := httptest.NewServer(NewServer(codec, maxUpload).Routes(reg, false))
	t.Cleanup(ts.Close)
	return ts
}

func sampleDBF(t *testing.T) []byte {
	t.Helper()
	buf, err := godbf.Encode(&godbf.Table{
		Header: godbf.Header{
			Version: 0x03,
			Fields: []godbf.Field{
				{Name: "CITY", Type: godbf.TypeCharacter, Length: 12},
				{Name: "POP", Type: godbf.TypeNumeric, Length: 9},
				{Name: "FOUNDED", Type: godbf.TypeDate, Length: 8},
			},
		},
		Rows: []godbf.Row{
			{
				{Name: "CITY", Value: godbf.Text("Lisbon")},
				{Name: "POP", Value: godbf.Number(545000)},
				{Name: "FOUNDED", Value: godbf.DateText("1179-05-01")},
			},
		},
	})
	require.NoError(t, err)
	return buf
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, godbf.Options{}, 1<<20)

	resp, err := http.Get(ts.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	ts := newTestServer(t, godbf.Options{}, 1<<20)
	original := sampleDBF(t)

	resp, err := http.Post(ts.URL+"/api/v1/decode?name=cities.dbf", "application/octet-stream", bytes.NewReader(original))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var table tableJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&table))
	assert.Equal(t, "cities.dbf", table.FileName)
	assert.NotEmpty(t, table.ID)
	require.Len(t, table.Header.Fields, 3)
	assert.Equal(t, "N", table.Header.Fields[1].Type)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, godbf.Number(545000), table.Rows[0].Get("POP"))
	assert.Equal(t, godbf.DateText("1179-05-01"), table.Rows[0].Get("FOUNDED"))

	body, err := json.Marshal(table)
	require.NoError(t, err)
	resp2, err := http.Post(ts.URL+"/api/v1/encode", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Contains(t, resp2.Header.Get("Content-Disposition"), `filename="cities.dbf"`)

	encoded, err := io.ReadAll(resp2.Body)
	require.NoError(t, err)
	// only the last-update date may differ
	assert.Equal(t, original[4:], encoded[4:])
	assert.Equal(t, original[0], encoded[0])
}

func TestDecodeNonFiniteDouble(t *testing.T) {
	ts := newTestServer(t, godbf.Options{}, 1<<20)
	buf, err := godbf.Encode(&godbf.Table{
		Header: godbf.Header{
			Version: 0x03,
			Fields:  []godbf.Field{{Name: "RATIO", Type: godbf.TypeDouble, Length: 8}},
		},
		Rows: []godbf.Row{
			{{Name: "RATIO", Value: godbf.Number(math.NaN())}},
			{{Name: "RATIO", Value: godbf.Number(math.Inf(-1))}},
		},
	})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/v1/decode", "application/octet-stream", bytes.NewReader(buf))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var table tableJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&table))
	require.Len(t, table.Rows, 2)
	assert.True(t, godbf.Number(math.NaN()).Equal(table.Rows[0].Get("RATIO")))
	assert.Equal(t, godbf.Number(math.Inf(-1)), table.Rows[1].Get("RATIO"))
}

func TestWriteJSONFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"x": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"failed to encode response"}`, rec.Body.String())
}

func TestDecodeErrors(t *testing.T) {
	ts := newTestServer(t, godbf.Options{}, 64)

	resp, err := http.Post(ts.URL+"/api/v1/decode", "application/octet-stream", strings.NewReader("short"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/v1/decode", "application/octet-stream", bytes.NewReader(make([]byte, 65)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestEncodeErrors(t *testing.T) {
	ts := newTestServer(t, godbf.Options{Strict: true}, 1<<20)

	resp, err := http.Post(ts.URL+"/api/v1/encode", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	badType := `{"header":{"fields":[{"name":"A","type":"CC","length":1}]},"rows":[]}`
	resp, err = http.Post(ts.URL+"/api/v1/encode", "application/json", strings.NewReader(badType))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	overflow := `{"header":{"fields":[{"name":"A","type":"c","length":2}]},
		"rows":[[{"name":"A","value":{"kind":"text","value":"too long"}}]]}`
	resp, err = http.Post(ts.URL+"/api/v1/encode", "application/json", strings.NewReader(overflow))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, godbf.Options{}, 1<<20)

	resp, err := http.Post(ts.URL+"/api/v1/decode", "application/octet-stream", bytes.NewReader(sampleDBF(t)))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dbf_codec_operations_total{operation="decode",status="success"} 1`)
	assert.Contains(t, string(body), `dbf_codec_records_total{outcome="active"} 1`)
}
