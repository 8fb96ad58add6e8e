// Package server exposes the DBF codec over HTTP so that table viewers and
// editors can hand over raw files and get decoded tables back, and the other
// way round.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	godbf "github.com/Ulysses-Xu/dbfcodec"
	"github.com/Ulysses-Xu/dbfcodec/internal/config"
)

// Server serves decode and encode requests with one shared codec.
type Server struct {
	codec          *godbf.Codec
	maxUploadBytes int64
}

func NewServer(codec *godbf.Codec, maxUploadBytes int64) *Server {
	return &Server{codec: codec, maxUploadBytes: maxUploadBytes}
}

// Routes builds the router. Metrics from gatherer are served at /metrics.
func (s *Server) Routes(gatherer prometheus.Gatherer, requestLog bool) http.Handler {
	r := chi.NewRouter()
	if requestLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/decode", s.handleDecode)
		r.Post("/encode", s.handleEncode)
	})
	return r
}

// StartServer builds a codec from cfg and serves until the listener fails.
func StartServer(cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	opts := cfg.CodecOptions()
	opts.Metrics = godbf.NewMetrics(reg)
	codec, err := godbf.NewCodec(opts)
	if err != nil {
		return err
	}

	server := NewServer(codec, cfg.Server.MaxUploadBytes)
	requestLog := cfg.Logging.Level == "debug" || cfg.Logging.Level == "info"
	addr := fmt.Sprintf("%s:%d", cfg.Server.Bind, cfg.Server.Port)
	log.Printf("server: listening on %s", addr)
	return http.ListenAndServe(addr, server.Routes(reg, requestLog))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	table, err := s.codec.Decode(body, r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, codecStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, tableToJSON(table))
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	var req tableJSON
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid table: %w", err))
		return
	}
	table, err := req.toTable()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	data, err := s.codec.Encode(table)
	if err != nil {
		writeError(w, codecStatus(err), err)
		return
	}

	name := path.Base(req.FileName)
	if req.FileName == "" {
		name = "table.dbf"
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("server: failed to write encoded table: %v", err)
	}
}

func codecStatus(err error) int {
	var formatErr *godbf.FormatError
	var fieldErr *godbf.FieldError
	if errors.As(err, &formatErr) || errors.As(err, &fieldErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeJSON encodes v before sending any header so that an encoding failure
// still reaches the client as a 500.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(v); err != nil {
		log.Printf("server: failed to encode response: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "{\"error\":%q}\n", "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body.Bytes()); err != nil {
		log.Printf("server: failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type fieldJSON struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Length  uint8  `json:"length"`
	Decimal uint8  `json:"decimal"`
}

type headerJSON struct {
	Version        byte        `json:"version"`
	LastUpdate     string      `json:"lastUpdate"`
	RecordCount    uint32      `json:"recordCount"`
	HeaderLength   uint16      `json:"headerLength"`
	RecordLength   uint16      `json:"recordLength"`
	LanguageDriver byte        `json:"languageDriver"`
	Fields         []fieldJSON `json:"fields"`
}

type tableJSON struct {
	ID       string      `json:"id"`
	FileName string      `json:"fileName"`
	Header   headerJSON  `json:"header"`
	Rows     []godbf.Row `json:"rows"`
}

func tableToJSON(t *godbf.Table) tableJSON {
	fields := make([]fieldJSON, len(t.Header.Fields))
	for i, f := range t.Header.Fields {
		fields[i] = fieldJSON{Name: f.Name, Type: string(rune(f.Type)), Length: f.Length, Decimal: f.Decimal}
	}
	rows := t.Rows
	if rows == nil {
		rows = []godbf.Row{}
	}
	return tableJSON{
		ID:       t.ID,
		FileName: t.FileName,
		Header: headerJSON{
			Version:        t.Header.Version,
			LastUpdate:     t.Header.LastUpdate.Format("2006-01-02"),
			RecordCount:    t.Header.RecordCount,
			HeaderLength:   t.Header.HeaderLength,
			RecordLength:   t.Header.RecordLength,
			LanguageDriver: t.Header.LanguageDriver,
			Fields:         fields,
		},
		Rows: rows,
	}
}

func (t tableJSON) toTable() (*godbf.Table, error) {
	fields := make([]godbf.Field, len(t.Header.Fields))
	for i, f := range t.Header.Fields {
		if len(f.Type) != 1 {
			return nil, fmt.Errorf("field %q: type must be a single character, got %q", f.Name, f.Type)
		}
		fields[i] = godbf.Field{
			Name:    f.Name,
			Type:    strings.ToUpper(f.Type)[0],
			Length:  f.Length,
			Decimal: f.Decimal,
		}
	}
	return &godbf.Table{
		ID:       t.ID,
		FileName: t.FileName,
		Header: godbf.Header{
			Version:        t.Header.Version,
			LanguageDriver: t.Header.LanguageDriver,
			Fields:         fields,
		},
		Rows: t.Rows,
	}, nil
}
