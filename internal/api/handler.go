package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"net/http"

	"github.com/gonkalabs/identity-mask/internal/config"
	"github.com/gonkalabs/identity-mask/internal/extract"
	"github.com/gonkalabs/identity-mask/internal/mask"
	"github.com/gonkalabs/identity-mask/internal/signer"
)

// maxBody caps request bodies. Documents larger than this should be sent by
// URI.
const maxBody = 8 << 20

// Defaults are applied to requests that leave a field unset.
type Defaults struct {
	EntityTypes []string
	Masks       map[string]string
	Language    string
}

// Handler implements all HTTP endpoints.
type Handler struct {
	extractor extract.Extractor // nil when no API key is configured
	signer    *signer.Signer    // nil when receipts are disabled
	defaults  Defaults
}

// New creates a Handler. ex and s may be nil: /v1/mask then answers 503 and
// responses carry no receipt.
func New(ex extract.Extractor, s *signer.Signer, d Defaults) *Handler {
	return &Handler{extractor: ex, signer: s, defaults: d}
}

// Register mounts routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /v1/entity-types", h.entityTypes)
	mux.HandleFunc("POST /v1/mask", h.maskContent)
	mux.HandleFunc("POST /v1/mask/adm", h.maskADM)
}

// ---------- endpoints ----------

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) entityTypes(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		Name     string `json:"name"`
		Template string `json:"template"`
		Default  bool   `json:"default"`
	}
	entries := make([]entry, 0, len(config.Catalog))
	for _, et := range config.Catalog {
		entries = append(entries, entry{Name: et.Name, Template: et.Template, Default: et.Default})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}

type maskRequest struct {
	Content     string            `json:"content"`
	ContentURI  string            `json:"contentUri"`
	Language    string            `json:"language"`
	EntityTypes []string          `json:"entityTypes"`
	Masks       map[string]string `json:"masks"`
}

type admRequest struct {
	ADM         *extract.ADM      `json:"adm"`
	EntityTypes []string          `json:"entityTypes"`
	Masks       map[string]string `json:"masks"`
}

type maskResponse struct {
	Masked  string          `json:"masked"`
	Counts  map[string]int  `json:"counts"`
	Receipt *signer.Receipt `json:"receipt,omitempty"`
}

func (h *Handler) maskContent(w http.ResponseWriter, r *http.Request) {
	var req maskRequest
	if !decode(w, r, &req) {
		return
	}
	if (req.Content == "") == (req.ContentURI == "") {
		writeErr(w, http.StatusBadRequest, "exactly one of content and contentUri is required")
		return
	}
	tpls, err := h.templates(req.EntityTypes, req.Masks)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	lang := h.defaults.Language
	if req.Language != "" {
		if lang, err = config.NormalizeLanguage(req.Language); err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if h.extractor == nil {
		writeErr(w, http.StatusServiceUnavailable, "entity extraction is not configured")
		return
	}

	ereq := extract.Request{Content: req.Content, Language: lang}
	if req.ContentURI != "" {
		ereq = extract.Request{Content: req.ContentURI, URI: true, Language: lang}
	}
	doc, err := h.extractor.Entities(r.Context(), ereq)
	if err != nil {
		slog.Error("api: extraction failed", "err", err)
		writeErr(w, http.StatusBadGateway, "extraction error: "+err.Error())
		return
	}
	h.respond(w, doc, tpls)
}

func (h *Handler) maskADM(w http.ResponseWriter, r *http.Request) {
	var req admRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ADM == nil {
		writeErr(w, http.StatusBadRequest, "adm is required")
		return
	}
	tpls, err := h.templates(req.EntityTypes, req.Masks)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(w, req.ADM.Document(), tpls)
}

// ---------- helpers ----------

// templates resolves the request's selection against the server defaults.
// Request overrides are layered over the default overrides.
func (h *Handler) templates(types []string, overrides map[string]string) (mask.Templates, error) {
	if len(types) == 0 {
		types = h.defaults.EntityTypes
	}
	merged := maps.Clone(h.defaults.Masks)
	if merged == nil {
		merged = make(map[string]string, len(overrides))
	}
	maps.Copy(merged, overrides)

	cfg, err := config.Select(types, merged)
	if err != nil {
		return nil, err
	}
	return mask.Compile(cfg)
}

func (h *Handler) respond(w http.ResponseWriter, doc *mask.Document, tpls mask.Templates) {
	res := mask.Apply(doc, tpls)
	out := maskResponse{Masked: res.Masked, Counts: res.Counts}
	if h.signer != nil {
		receipt, err := h.signer.Sign([]byte(doc.Data), []byte(res.Masked), res.Counts)
		if err != nil {
			slog.Error("api: receipt signing failed", "err", err)
			writeErr(w, http.StatusInternalServerError, "receipt signing failed")
			return
		}
		out.Receipt = receipt
	}
	slog.Info("api: masked document", "mentions", total(res.Counts), "receipt", out.Receipt != nil)
	writeJSON(w, http.StatusOK, out)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeErr(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func total(counts map[string]int) int {
	var n int
	for _, c := range counts {
		n += c
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
