package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

const maxUploadFiles = 50

func (rt *Router) submitUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "parse upload", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "parse upload", errors.New("multipart field 'files' is required")))
		return
	}
	if len(headers) > maxUploadFiles {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "parse upload", fmt.Errorf("at most %d files per upload", maxUploadFiles)))
		return
	}

	files := make([]domain.UploadFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "open upload part", err))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "read upload part", err))
			return
		}
		files = append(files, domain.UploadFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	job, err := rt.svc.Uploads.Submit(r.Context(), userIDFromContext(r.Context()), files)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := rt.svc.Jobs.Job(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if job.UserID != "" && job.UserID != userIDFromContext(r.Context()) {
		writeError(w, r, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id=%s", job.ID)))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) maskBatch(w http.ResponseWriter, r *http.Request) {
	var req domain.MaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode mask request", err))
		return
	}
	result, err := rt.svc.Archives.Mask(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// assembleArchive answers with the archive summary. Clients that accept
// application/x-ndjson get one progress line per file first.
func (rt *Router) assembleArchive(w http.ResponseWriter, r *http.Request) {
	var req domain.MaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode mask request", err))
		return
	}

	if !strings.Contains(r.Header.Get("Accept"), "application/x-ndjson") {
		result, err := rt.svc.Archives.Assemble(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"), req, nil)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	emit := func(kind string, payload any) {
		_ = enc.Encode(map[string]any{"event": kind, "data": payload})
		if flusher != nil {
			flusher.Flush()
		}
	}

	result, err := rt.svc.Archives.Assemble(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"), req, func(p domain.ArchiveProgress) {
		emit("progress", p)
	})
	if err != nil {
		logHandlerWarning(r, "archive_assembly_failed", "error", err)
		emit("error", map[string]any{"status": mapErrorToHTTPStatus(err), "error": err.Error()})
		return
	}
	emit("result", result)
}

func (rt *Router) downloadArchive(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	rc, err := rt.svc.Archives.OpenArchive(r.Context(), userIDFromContext(r.Context()), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="masked-%s"`, key))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func (rt *Router) exportBatch(w http.ResponseWriter, r *http.Request) {
	var req domain.ExportRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode export request", err))
			return
		}
	}
	result, err := rt.svc.Exports.Export(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) downloadExport(w http.ResponseWriter, r *http.Request) {
	rc, err := rt.svc.Exports.OpenExport(r.Context(), userIDFromContext(r.Context()), r.PathValue("key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func (rt *Router) decrypt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payload  json.RawMessage `json:"payload"`
		Password string          `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode decrypt request", err))
		return
	}

	payload := []byte(req.Payload)
	// A payload pasted as a JSON string is unwrapped once.
	var asString string
	if err := json.Unmarshal(req.Payload, &asString); err == nil {
		payload = []byte(asString)
	}

	data, err := rt.svc.Exports.Decrypt(r.Context(), payload, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"data": data})
}
