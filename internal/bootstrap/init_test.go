package bootstrap_test

import (
	"RNChatMedia/internal/bootstrap"
	"RNChatMedia/internal/config"
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type toolCall struct {
	binary string
	args   []string
}

// fakeRunner stands in for ffmpeg, ImageMagick and pandoc by writing a
// small file where the tool's output would go.
type fakeRunner struct {
	mu    sync.Mutex
	calls []toolCall
	err   error
}

func (f *fakeRunner) Run(_ context.Context, binary string, args []string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, toolCall{binary: binary, args: args})
	f.mu.Unlock()

	if f.err != nil {
		return []byte("ffmpeg: conversion failed"), f.err
	}

	out := args[len(args)-1]
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			out = args[i+1]
		}
	}
	return nil, os.WriteFile(out, []byte("derived output"), 0o644)
}

func (f *fakeRunner) Calls() []toolCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]toolCall(nil), f.calls...)
}

type testServer struct {
	cfg    *config.AppConfig
	router *chi.Mux
	runner *fakeRunner
}

func newTestServer(t *testing.T, env map[string]string) *testServer {
	t.Helper()

	defaults := map[string]string{
		"APP_ENV":           "test",
		"STORAGE_ROOT":      t.TempDir(),
		"STORAGE_MODE":      "local",
		"FFMPEG_BIN":        "ffmpeg-test",
		"IMAGEMAGICK_BIN":   "convert-test",
		"PANDOC_BIN":        "pandoc-test",
		"UPLOAD_RATE_LIMIT": "0",
		"PUBLIC_HOST":       "",
	}
	for k, v := range env {
		defaults[k] = v
	}
	for k, v := range defaults {
		t.Setenv(k, v)
	}

	cfg, err := config.ParseAppConfig()
	require.NoError(t, err)

	runner := &fakeRunner{}
	router := config.NewChi(cfg)
	cleanup, err := bootstrap.Init(cfg, router, prometheus.NewRegistry(), runner)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	return &testServer{cfg: cfg, router: router, runner: runner}
}

func (s *testServer) execute(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) upload(t *testing.T, path, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return s.execute(req)
}

func (s *testServer) storedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(s.cfg.StorageRoot)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

type mediaResponse struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func printBody(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Logf("Response Body: %s", rr.Body.String())
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	for x := 0; x < 32; x++ {
		img.Set(x, x/2, color.RGBA{B: 255, A: 255})
	}
	return img
}

func jpegData(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

func pngData(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func pdfData() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
}

// mkvData is an EBML header declaring the matroska doc type.
func mkvData() []byte {
	b := []byte{0x1A, 0x45, 0xDF, 0xA3, 0x9F, 0x42, 0x86, 0x81, 0x01, 0x42, 0xF7, 0x81, 0x01}
	b = append(b, 0x42, 0x82, 0x88)
	b = append(b, "matroska"...)
	return append(b, make([]byte, 64)...)
}

func docxData(t *testing.T) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"word/document.xml", "[Content_Types].xml", "_rels/.rels"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("<?xml version=\"1.0\"?><x/>"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func exeData() []byte {
	b := make([]byte, 512)
	copy(b, "MZ")
	return b
}
