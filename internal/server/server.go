// Package server exposes hiding and digging over HTTP, keeping a record of every encoded image.
//
//	POST /encode/      multipart form: "data" (text) and "file" (PNG, BMP or QOI image)
//	GET  /decode/{id}  text hidden in the image stored under id
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zedseven/textsteg"
	"github.com/zedseven/textsteg/internal/metrics"
	"github.com/zedseven/textsteg/internal/store"
)

const encodedPrefix = "encoded_"

// Options configures a Server.
type Options struct {
	Store          store.Store
	Metrics        metrics.Recorder // Defaults to metrics.Noop.
	Logger         textsteg.Logger  // Defaults to textsteg.NoopLogger.
	OutputDir      string           // Where encoded images are written. Defaults to ".".
	AllowedOrigins []string         // CORS origins; "*" allows any.
	MaxUploadBytes int64            // Defaults to 32 MiB.
}

func (o *Options) defaults() {
	if o.Metrics == nil {
		o.Metrics = metrics.Noop{}
	}
	if o.Logger == nil {
		o.Logger = textsteg.NoopLogger{}
	}
	if o.OutputDir == "" {
		o.OutputDir = "."
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 32 << 20
	}
}

// Server is the HTTP handler of the service.
type Server struct {
	opts    Options
	handler http.Handler
}

// New returns a Server. opts.Store is required.
func New(opts Options) *Server {
	if opts.Store == nil {
		panic("server: Options.Store is required")
	}
	opts.defaults()

	s := &Server{opts: opts}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /encode", s.handleEncode)
	mux.HandleFunc("POST /encode/{$}", s.handleEncode)
	mux.HandleFunc("GET /decode/{id}", s.handleDecode)
	s.handler = withCORS(opts.AllowedOrigins, mux)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type decodedData struct {
	Data string `json:"data"`
}

type errorDetail struct {
	Detail string `json:"detail"`
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { s.opts.Metrics.RecordLatency("encode", time.Since(start)) }()

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, "encode", http.StatusRequestEntityTooLarge, "Uploaded file is too large.", err)
			return
		}
		s.fail(w, "encode", http.StatusUnprocessableEntity, "Expected a multipart form.", err)
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	data, ok := r.MultipartForm.Value["data"]
	if !ok || len(data) == 0 {
		s.fail(w, "encode", http.StatusUnprocessableEntity, "Missing form field 'data'.", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, "encode", http.StatusUnprocessableEntity, "Missing form field 'file'.", err)
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	format, err := textsteg.FormatFromPath(filename)
	if err != nil {
		s.fail(w, "encode", http.StatusBadRequest, "Unsupported image format. Please upload a PNG, BMP or QOI image.", err)
		return
	}

	grid, _, err := textsteg.ReadGrid(file)
	if err != nil {
		s.fail(w, "encode", http.StatusBadRequest, "Invalid image file.", err)
		return
	}

	if _, err = textsteg.EncodeText(grid, data[0]); err != nil {
		var capErr *textsteg.InsufficientCapacityError
		var fmtErr *textsteg.InvalidFormatError
		if errors.As(err, &capErr) || errors.As(err, &fmtErr) {
			s.fail(w, "encode", http.StatusBadRequest, err.Error(), err)
			return
		}
		s.fail(w, "encode", http.StatusInternalServerError, "Error encoding data into the image.", err)
		return
	}

	outPath, err := saveGrid(grid, format, s.opts.OutputDir, filename)
	if err != nil {
		s.fail(w, "encode", http.StatusInternalServerError, "Error saving the encoded image.", err)
		return
	}

	rec, err := s.opts.Store.Create(r.Context(), outPath, data[0])
	if err != nil {
		s.fail(w, "encode", http.StatusInternalServerError, "Error storing the image record.", err)
		return
	}

	s.opts.Metrics.RecordEncode(len(data[0]))
	s.opts.Logger.Info("encoded image", "id", rec.ID, "filename", rec.Filename, "bytes", len(data[0]))
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { s.opts.Metrics.RecordLatency("decode", time.Since(start)) }()

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.fail(w, "decode", http.StatusUnprocessableEntity, "Image id must be an integer.", err)
		return
	}

	rec, err := s.opts.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.fail(w, "decode", http.StatusNotFound, "Image not found", nil)
			return
		}
		s.fail(w, "decode", http.StatusInternalServerError, "Error looking up the image.", err)
		return
	}

	f, err := os.Open(rec.Filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.fail(w, "decode", http.StatusNotFound, "Image file not found on disk", err)
			return
		}
		s.fail(w, "decode", http.StatusInternalServerError, "Error opening image file.", err)
		return
	}
	defer f.Close()

	grid, _, err := textsteg.ReadGrid(f)
	if err != nil {
		s.fail(w, "decode", http.StatusInternalServerError, "Error opening image file.", err)
		return
	}

	text, err := textsteg.DecodeText(grid)
	if err != nil {
		var mtErr *textsteg.MissingTerminatorError
		if !errors.As(err, &mtErr) {
			s.fail(w, "decode", http.StatusInternalServerError, "Error decoding data from the image.", err)
			return
		}
		s.opts.Logger.Warn("image has no terminating block, returning partial data",
			"id", rec.ID, "recovered", mtErr.Recovered)
	}

	s.opts.Metrics.RecordDecode(len(text))
	writeJSON(w, http.StatusOK, decodedData{Data: text})
}

func (s *Server) fail(w http.ResponseWriter, op string, status int, detail string, err error) {
	s.opts.Metrics.RecordError(op)
	if status >= http.StatusInternalServerError {
		s.opts.Logger.Error(detail, "op", op, "status", status, "err", err)
	} else {
		s.opts.Logger.Debug(detail, "op", op, "status", status, "err", err)
	}
	writeJSON(w, status, errorDetail{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// saveGrid writes the image to a new file named encoded_<random>_<filename> in dir and returns its path.
// Every call gets its own file, so records never share an image. The file is removed if writing fails.
func saveGrid(grid *textsteg.Grid, format textsteg.ImageFormat, dir, filename string) (outPath string, err error) {
	// CreateTemp substitutes the last '*' in the pattern
	pattern := encodedPrefix + "*_" + strings.ReplaceAll(filename, "*", "_")
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	if err = textsteg.WriteGrid(f, grid, format); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", f.Name(), err)
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}
