package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nithinv16/dukaaon-extractor/internal/async"
	"github.com/nithinv16/dukaaon-extractor/internal/entity"
)

type fakeExtractor struct {
	result entity.ExtractionResult
	seen   struct {
		image    []byte
		mimeType string
		sellerID string
	}
}

func (f *fakeExtractor) ExtractFromImage(_ context.Context, image []byte, mimeType, sellerID string) entity.ExtractionResult {
	f.seen.image = image
	f.seen.mimeType = mimeType
	f.seen.sellerID = sellerID
	return f.result
}

type fakeQueue struct {
	jobs []async.Job
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, job async.Job) error {
	f.jobs = append(f.jobs, job)
	return f.err
}

type fakeSaver struct {
	saved int
	err   error
	seen  []entity.ExtractedProduct
}

func (f *fakeSaver) SaveCorrections(_ context.Context, _ string, _, confirmed []entity.ExtractedProduct) (int, error) {
	f.seen = confirmed
	return f.saved, f.err
}

type fakeExporter struct{ out []byte }

func (f *fakeExporter) ExportProductsXLSX([]entity.ExtractedProduct) ([]byte, error) {
	return f.out, nil
}

func newTestServer(t *testing.T) (*Server, *fakeExtractor, *fakeQueue, *fakeSaver) {
	t.Helper()
	extractor := &fakeExtractor{result: entity.ExtractionResult{Success: true}}
	queue := &fakeQueue{}
	saver := &fakeSaver{saved: 2}
	srv := New(slog.New(slog.NewTextHandler(io.Discard, nil)), extractor, queue, saver, &fakeExporter{out: []byte("xlsx-bytes")})
	return srv, extractor, queue, saver
}

func TestEnqueueUpload(t *testing.T) {
	srv, _, queue, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/extractions?seller_id=seller-1", bytes.NewReader([]byte("jpeg-bytes")))
	req.Header.Set("Content-Type", "image/jpeg")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body struct {
		UploadID uuid.UUID `json:"upload_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEqual(t, uuid.Nil, body.UploadID)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, body.UploadID, queue.jobs[0].UploadID)
	assert.Equal(t, "image/jpeg", queue.jobs[0].MimeType)
	assert.Equal(t, "seller-1", queue.jobs[0].SellerID)
}

func TestEnqueueRejectsEmptyBody(t *testing.T) {
	srv, _, queue, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/extractions", "image/jpeg", bytes.NewReader(nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, queue.jobs)
}

func TestEnqueueUnavailableWhenQueueRejects(t *testing.T) {
	srv, _, queue, _ := newTestServer(t)
	queue.err = async.ErrQueueFull
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/extractions", "image/jpeg", bytes.NewReader([]byte("jpeg-bytes")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode,
		"a rejected job must not be acknowledged with 202")
}

func TestResultLifecycle(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	uploadID := uuid.New()

	resp, err := http.Get(ts.URL + "/v1/extractions/" + uploadID.String())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "nothing recorded yet")

	srv.RecordResult(uploadID, entity.ExtractionResult{
		Success:  true,
		Products: []entity.ExtractedProduct{{Name: "Tata Salt 1kg"}},
	})

	resp, err = http.Get(ts.URL + "/v1/extractions/" + uploadID.String())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result entity.ExtractionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Success)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "Tata Salt 1kg", result.Products[0].Name)
}

func TestExtractSync(t *testing.T) {
	srv, extractor, _, _ := newTestServer(t)
	extractor.result = entity.ExtractionResult{
		Success:  true,
		Products: []entity.ExtractedProduct{{Name: "Parle-G Gold Biscuit 75g"}},
	}
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/extractions/sync?seller_id=s1", bytes.NewReader([]byte("img")))
	req.Header.Set("Content-Type", "image/png")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []byte("img"), extractor.seen.image)
	assert.Equal(t, "image/png", extractor.seen.mimeType)
	assert.Equal(t, "s1", extractor.seen.sellerID)
}

func TestCorrections(t *testing.T) {
	srv, _, _, saver := newTestServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	payload, _ := json.Marshal(correctionsRequest{
		SellerID:  "seller-1",
		Extracted: []entity.ExtractedProduct{{Name: "Magi Nodles"}},
		Confirmed: []entity.ExtractedProduct{{Name: "Maggi Noodles"}},
	})
	resp, err := http.Post(ts.URL+"/v1/corrections", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body["saved"])
	require.Len(t, saver.seen, 1)
}

func TestCorrectionsRequireConfirmedProducts(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/corrections", "application/json", bytes.NewReader([]byte(`{"seller_id":"x"}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	payload := `[{"name":"Tata Salt 1kg","quantity":2,"unit":"piece"}]`
	resp, err := http.Post(ts.URL+"/v1/exports/products.xlsx", "application/json", bytes.NewReader([]byte(payload)))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	out, _ := io.ReadAll(resp.Body)
	assert.Equal(t, []byte("xlsx-bytes"), out)
}

func TestHealthz(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
