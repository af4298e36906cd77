package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"certverify/internal/certificate"
	"certverify/internal/verification"
	dErrors "certverify/pkg/domain-errors"
	"certverify/pkg/platform/httputil"
	"certverify/pkg/requestcontext"
)

// DefaultMaxUploadBytes caps a certificate upload when no limit is configured.
const DefaultMaxUploadBytes int64 = 20 << 20

// multipartMemory is how much of a multipart body is held in memory before
// parts spill to disk.
const multipartMemory = 8 << 20

// Service defines the verification operations the handler needs.
type Service interface {
	Verify(ctx context.Context, doc certificate.Document, claims certificate.Claims) (*certificate.Result, error)
	VerifyText(ctx context.Context, text certificate.TextDocument, claims certificate.Claims) (*certificate.Result, error)
}

// Handler wires verification endpoints to the verification service.
type Handler struct {
	service        Service
	logger         *slog.Logger
	maxUploadBytes int64
	uploadDir      string
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxUploadBytes overrides DefaultMaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithUploadDir stages uploads under dir instead of os.TempDir().
func WithUploadDir(dir string) Option {
	return func(h *Handler) {
		h.uploadDir = dir
	}
}

// New constructs a verification handler with its dependencies.
func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service:        service,
		logger:         logger,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verify", h.HandleVerify)
	r.Post("/upload", h.HandleUpload)
	r.Post("/verify/text", h.HandleVerifyText)
}

// HandleVerify handles POST /verify multipart uploads.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	result, err := h.verifyUpload(ctx, w, r)
	if err != nil {
		h.logFailure(ctx, "certificate verification failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	h.logSuccess(ctx, "certificate verified", requestID, result, start)
	httputil.WriteJSON(w, http.StatusOK, FromResult(requestID, result))
}

// HandleUpload handles POST /upload, the compatibility endpoint that answers
// in the legacy response shape. Pipeline failures that are not input errors
// still answer 200 with a MISMATCH body carrying the error.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	result, err := h.verifyUpload(ctx, w, r)
	if err != nil {
		h.logFailure(ctx, "legacy upload failed", requestID, err)
		if verification.IsInputError(err) {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, LegacyFailure(err))
		return
	}

	h.logSuccess(ctx, "legacy upload verified", requestID, result, start)
	httputil.WriteJSON(w, http.StatusOK, FromResultLegacy(result))
}

// HandleVerifyText handles POST /verify/text, running the pipeline on text
// the caller already holds.
func (h *Handler) HandleVerifyText(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if !h.checkSchema(ctx, w, r, requestID) {
		return
	}

	req, ok := httputil.DecodeAndPrepare[VerifyTextRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.VerifyText(ctx, req.TextDocument(), req.Claims())
	if err != nil {
		h.logFailure(ctx, "text verification failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	h.logSuccess(ctx, "text verified", requestID, result, start)
	httputil.WriteJSON(w, http.StatusOK, FromResult(requestID, result))
}

// verifyUpload reads the multipart form, stages the file and runs the
// pipeline. The staged copy is removed before it returns.
func (h *Handler) verifyUpload(ctx context.Context, w http.ResponseWriter, r *http.Request) (*certificate.Result, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, dErrors.New(dErrors.CodePayloadTooLarge, "file exceeds the upload limit")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid multipart form")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "file required")
	}
	defer file.Close()
	if header.Filename == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "file required")
	}
	format, err := certificate.FormatFromFilename(header.Filename)
	if err != nil {
		return nil, err
	}

	path, err := h.stage(file, filepath.Ext(header.Filename))
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil {
			h.logger.WarnContext(ctx, "failed to remove staged upload", "path", path, "error", rmErr)
		}
	}()

	doc := certificate.Document{Path: path, Filename: header.Filename, Format: format}
	return h.service.Verify(ctx, doc, ClaimsFromForm(r.MultipartForm))
}

// stage copies the upload to a temporary file. An empty upload is rejected
// and leaves nothing behind.
func (h *Handler) stage(src multipart.File, ext string) (string, error) {
	dst, err := os.CreateTemp(h.uploadDir, "certificate-*"+ext)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage upload")
	}
	n, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(dst.Name())
		var maxErr *http.MaxBytesError
		if errors.As(copyErr, &maxErr) {
			return "", dErrors.New(dErrors.CodePayloadTooLarge, "file exceeds the upload limit")
		}
		return "", dErrors.Wrap(copyErr, dErrors.CodeInternal, "failed to stage upload")
	case closeErr != nil:
		_ = os.Remove(dst.Name())
		return "", dErrors.Wrap(closeErr, dErrors.CodeInternal, "failed to stage upload")
	case n == 0:
		_ = os.Remove(dst.Name())
		return "", dErrors.New(dErrors.CodeBadRequest, "empty file")
	}
	return dst.Name(), nil
}

func (h *Handler) logFailure(ctx context.Context, msg, requestID string, err error) {
	level := slog.LevelError
	if verification.IsInputError(err) {
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestID,
		"subject", requestcontext.Subject(ctx),
		"error", err,
	)
}

func (h *Handler) logSuccess(ctx context.Context, msg, requestID string, result *certificate.Result, start time.Time) {
	h.logger.InfoContext(ctx, msg,
		"request_id", requestID,
		"subject", requestcontext.Subject(ctx),
		"status", result.Status,
		"confidence", result.Confidence,
		"source_quality", result.Quality,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
