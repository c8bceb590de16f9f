package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zedseven/textsteg"
	"github.com/zedseven/textsteg/internal/cache"
	"github.com/zedseven/textsteg/internal/metrics"
	"github.com/zedseven/textsteg/internal/server"
	"github.com/zedseven/textsteg/internal/store"
)

type testServer struct {
	srv     *httptest.Server
	dir     string
	store   store.Store
	metrics *metrics.Counter
}

func newTestServer(t *testing.T, st store.Store) testServer {
	t.Helper()
	dir := t.TempDir()
	m := &metrics.Counter{}
	s := server.New(server.Options{
		Store:          st,
		Metrics:        m,
		OutputDir:      dir,
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return testServer{srv: srv, dir: dir, store: st, metrics: m}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, textsteg.WriteGrid(&buf, textsteg.NewGrid(w, h), textsteg.FormatPNG))
	return buf.Bytes()
}

func postEncode(t *testing.T, ts testServer, fields map[string]string, filename string, img []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(img)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.srv.URL+"/encode/", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func getDecode(t *testing.T, ts testServer, id string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.srv.URL + "/decode/" + id)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type detail struct {
	Detail string `json:"detail"`
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	ts := newTestServer(t, store.NewMemory())

	resp := postEncode(t, ts, map[string]string{"data": "Hi there ñ"}, "cat.png", pngBytes(t, 10, 10))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decodeBody[store.Record](t, resp)
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, ts.dir, filepath.Dir(rec.Filename))
	assert.True(t, strings.HasPrefix(filepath.Base(rec.Filename), "encoded_"), rec.Filename)
	assert.True(t, strings.HasSuffix(rec.Filename, "_cat.png"), rec.Filename)
	assert.Equal(t, "Hi there ñ", rec.Data)
	assert.FileExists(t, rec.Filename)

	resp = getDecode(t, ts, fmt.Sprint(rec.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[struct {
		Data string `json:"data"`
	}](t, resp)
	assert.Equal(t, "Hi there ñ", got.Data)

	snap := ts.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Encodes)
	assert.Equal(t, int64(1), snap.Decodes)
}

func TestEncode_SameFilenameKeepsRecordsApart(t *testing.T) {
	ts := newTestServer(t, store.NewMemory())

	var recs []store.Record
	for _, data := range []string{"first", "second"} {
		resp := postEncode(t, ts, map[string]string{"data": data}, "cat.png", pngBytes(t, 10, 10))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		recs = append(recs, decodeBody[store.Record](t, resp))
	}
	assert.NotEqual(t, recs[0].Filename, recs[1].Filename)

	for _, rec := range recs {
		resp := getDecode(t, ts, fmt.Sprint(rec.ID))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := decodeBody[struct {
			Data string `json:"data"`
		}](t, resp)
		assert.Equal(t, rec.Data, got.Data, "record %d", rec.ID)
	}
}

func TestEncode_WithoutTrailingSlash(t *testing.T) {
	ts := newTestServer(t, store.NewMemory())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("data", "x"))
	fw, err := mw.CreateFormFile("file", "a.bmp")
	require.NoError(t, err)
	require.NoError(t, textsteg.WriteGrid(fw, textsteg.NewGrid(3, 1), textsteg.FormatBMP))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.srv.URL+"/encode", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEncode_UnsupportedExtension(t *testing.T) {
	ts := newTestServer(t, store.NewMemory())

	resp := postEncode(t, ts, map[string]string{"data": "x"}, "cat.jpg", pngBytes(t, 3, 1))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Unsupported image format. Please upload a PNG, BMP or QOI image.", decodeBody[detail](t, resp).Detail)
}

func TestEncode_InvalidImage(t *testing.T) {
	ts := newTestServer(t, store.NewMemory())

	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, image.NewRGBA(image.Rect(0, 0, 3, 3)), nil))

	resp := postEncode(t, ts, map[string]string{"data": "x"}, "cat.png", jpg.Bytes())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid image file.", decodeBody[detail](t, resp).Detail)
}

func TestEncode_InsufficientCapacity(t *testing.T) {
	ts := newTestServer(t, store.NewMemory())

	resp := postEncode(t, ts, map[string]string{"data": "longer than fits"}, "tiny.png", pngBytes(t, 2, 2))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeBody[detail](t, resp).Detail, "not enough space")
	entries, err := os.ReadDir(ts.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEncode_NonLatin1Text(t *testing.T) {
	ts := newTestServer(t, store.NewMemory())

	resp := postEncode(t, ts, map[string]string{"data": "日本語"}, "cat.png", pngBytes(t, 10, 10))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEncode_MissingFields(t *testing.T) {
	ts := newTestServer(t, store.NewMemory())

	resp := postEncode(t, ts, map[string]string{"data": "x"}, "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = postEncode(t, ts, nil, "cat.png", pngBytes(t, 3, 1))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	plain, err := http.Post(ts.srv.URL+"/encode/", "text/plain", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	defer plain.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, plain.StatusCode)

	assert.Equal(t, int64(3), ts.metrics.Snapshot().Errors["encode"])
}

func TestDecode_NotFound(t *testing.T) {
	ts := newTestServer(t, store.NewMemory())

	resp := getDecode(t, ts, "42")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Image not found", decodeBody[detail](t, resp).Detail)
}

func TestDecode_BadID(t *testing.T) {
	ts := newTestServer(t, store.NewMemory())
	resp := getDecode(t, ts, "abc")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestDecode_FileMissing(t *testing.T) {
	ts := newTestServer(t, store.NewMemory())
	rec, err := ts.store.Create(context.Background(), filepath.Join(ts.dir, "gone.png"), "x")
	require.NoError(t, err)

	resp := getDecode(t, ts, fmt.Sprint(rec.ID))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Image file not found on disk", decodeBody[detail](t, resp).Detail)
}

func TestDecode_UnreadableFile(t *testing.T) {
	ts := newTestServer(t, store.NewMemory())
	path := filepath.Join(ts.dir, "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not a png"), 0644))
	rec, err := ts.store.Create(context.Background(), path, "x")
	require.NoError(t, err)

	resp := getDecode(t, ts, fmt.Sprint(rec.ID))
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Error opening image file.", decodeBody[detail](t, resp).Detail)
}

func TestDecode_PartialPayload(t *testing.T) {
	ts := newTestServer(t, store.NewMemory())
	path := filepath.Join(ts.dir, "plain.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 6, 1), 0644))
	rec, err := ts.store.Create(context.Background(), path, "")
	require.NoError(t, err)

	resp := getDecode(t, ts, fmt.Sprint(rec.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[struct {
		Data string `json:"data"`
	}](t, resp)
	assert.Equal(t, "\x00\x00", got.Data)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, store.NewMemory())

	req, err := http.NewRequest(http.MethodOptions, ts.srv.URL+"/encode/", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "POST", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "content-type", resp.Header.Get("Access-Control-Allow-Headers"))

	req, err = http.NewRequest(http.MethodGet, ts.srv.URL+"/decode/1", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestEncodeDecode_ThroughRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	ca := cache.New(cache.Options{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()}), TTL: time.Minute})
	m := &metrics.Counter{}
	cs := &cache.Cached{Store: store.NewMemory(), Cache: ca, OnHit: m.RecordCacheHit, OnMiss: m.RecordCacheMiss}
	t.Cleanup(cs.Close)

	dir := t.TempDir()
	srv := httptest.NewServer(server.New(server.Options{Store: cs, Metrics: m, OutputDir: dir}))
	t.Cleanup(srv.Close)
	ts := testServer{srv: srv, dir: dir, store: cs, metrics: m}

	resp := postEncode(t, ts, map[string]string{"data": "cached"}, "c.qoi", func() []byte {
		var buf bytes.Buffer
		require.NoError(t, textsteg.WriteGrid(&buf, textsteg.NewGrid(9, 3), textsteg.FormatQOI))
		return buf.Bytes()
	}())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decodeBody[store.Record](t, resp)
	assert.True(t, mr.Exists(fmt.Sprintf("textsteg:image:%d", rec.ID)))

	resp = getDecode(t, ts, fmt.Sprint(rec.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), m.Snapshot().CacheHits)

	mr.FlushAll()
	resp = getDecode(t, ts, fmt.Sprint(rec.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), m.Snapshot().CacheMisses)
}

func TestNew_RequiresStore(t *testing.T) {
	assert.Panics(t, func() { server.New(server.Options{}) })
}
