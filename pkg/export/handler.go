package export

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pluginkit/pkg/blob"
)

// DefaultTokenTTL bounds how long download links stay valid.
const DefaultTokenTTL = 15 * time.Minute

// DefaultMaxBodyBytes caps POST /exports request bodies.
const DefaultMaxBodyBytes int64 = 8 << 20

// Handler provides HTTP access to asynchronous exports.
//
//	POST /exports                  enqueue, 202 with the queued record
//	GET  /exports/{id}             status and signed download links
//	GET  /exports/download?token=  stream a stored artifact
type Handler struct {
	Exports  ExportScheduler
	Store    blob.Store
	Signer   *TokenSigner
	BasePath string
	TokenTTL time.Duration
	// MaxBodyBytes caps request bodies; zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	Logger       zerolog.Logger
}

// NewHandler constructs a handler around a worker.
func NewHandler(w *Worker, signer *TokenSigner) *Handler {
	return &Handler{Exports: w, Store: w.Store(), Signer: signer, Logger: zerolog.Nop()}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Exports == nil {
		writeError(w, http.StatusInternalServerError, "export scheduler not configured")
		return
	}
	path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, h.BasePath), "/")
	switch {
	case path == "/exports":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleCreate(w, r)
	case path == "/exports/download":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleDownload(w, r)
	case strings.HasPrefix(path, "/exports/"):
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleStatus(w, strings.TrimPrefix(path, "/exports/"))
	default:
		http.NotFound(w, r)
	}
}

type exportRequest struct {
	Plugin      string   `json:"plugin"`
	Table       Table    `json:"table"`
	Formats     []string `json:"formats"`
	RequestedBy string   `json:"requested_by"`
	Reason      string   `json:"reason"`
}

type downloadLink struct {
	Format   Format `json:"format"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "export request exceeds body limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid export request payload")
		return
	}
	formats := make([]Format, 0, len(req.Formats))
	for _, raw := range req.Formats {
		f, err := ParseFormat(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		formats = append(formats, f)
	}
	record, err := h.Exports.EnqueueExport(r.Context(), ExportInput{
		Plugin:      req.Plugin,
		Table:       req.Table,
		Formats:     formats,
		RequestedBy: req.RequestedBy,
		Reason:      req.Reason,
	})
	switch {
	case errors.Is(err, ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

func (h *Handler) handleStatus(w http.ResponseWriter, id string) {
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	record, ok := h.Exports.GetExport(id)
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	links := make([]downloadLink, 0, len(record.Artifacts))
	if h.Signer != nil {
		for _, a := range record.Artifacts {
			token, err := h.Signer.Sign(a.Key, a.Filename, h.ttl())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			links = append(links, downloadLink{
				Format:   a.Format,
				Filename: a.Filename,
				URL:      h.BasePath + "/exports/download?token=" + url.QueryEscape(token),
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record, "downloads": links})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	if h.Signer == nil || h.Store == nil {
		writeError(w, http.StatusNotFound, "downloads not enabled")
		return
	}
	tok, err := h.Signer.Verify(r.URL.Query().Get("token"))
	switch {
	case errors.Is(err, ErrTokenExpired):
		writeError(w, http.StatusGone, "download link expired")
		return
	case err != nil:
		writeError(w, http.StatusForbidden, "invalid download token")
		return
	}
	info, body, err := h.Store.Open(r.Context(), tok.Key)
	if errors.Is(err, blob.ErrNotFound) {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer body.Close()

	filename := tok.Filename
	if filename == "" {
		filename = info.Filename()
	}
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	writeAttachment(w, filename, contentType, info.Size)
	if _, err := io.Copy(w, body); err != nil {
		h.Logger.Warn().Err(err).Str("key", tok.Key).Msg("artifact download interrupted")
	}
}

func (h *Handler) ttl() time.Duration {
	if h.TokenTTL > 0 {
		return h.TokenTTL
	}
	return DefaultTokenTTL
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
