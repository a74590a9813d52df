package analytichttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/simplesdash/simplesdash/internal/analytics"
	"github.com/simplesdash/simplesdash/internal/analytics/export"
	"github.com/simplesdash/simplesdash/internal/filing"
	"github.com/simplesdash/simplesdash/internal/filingstore"
	"github.com/simplesdash/simplesdash/internal/platform/httpx"
	"github.com/simplesdash/simplesdash/internal/series"
)

const (
	requestTimeout = 30 * time.Second
	maxUploadBytes = 32 << 20
	maxMemoryBytes = 8 << 20
)

// ReportService builds reports from decoded uploads.
type ReportService interface {
	Build(ctx context.Context, req analytics.Request) (analytics.Report, error)
}

// PDFService renders a report to PDF bytes.
type PDFService interface {
	Render(ctx context.Context, rep analytics.Report) ([]byte, error)
}

// WarmupEnqueuer schedules a cache warmup for a stored file set.
type WarmupEnqueuer interface {
	EnqueueWarmup(ctx context.Context, fileSetID string) error
}

// Handler serves report and file-set endpoints.
type Handler struct {
	logger   *slog.Logger
	service  ReportService
	store    filingstore.Store
	pdf      PDFService
	warmup   WarmupEnqueuer
	validate *validator.Validate
	csvPool  sync.Pool

	// maxUpload caps request bodies on upload routes.
	maxUpload int64
}

// NewHandler constructs the handler. store, pdf and warmup may be nil;
// the routes depending on them then answer 503.
func NewHandler(logger *slog.Logger, service ReportService, store filingstore.Store, pdf PDFService, warmup WarmupEnqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:   logger,
		service:  service,
		store:    store,
		pdf:      pdf,
		warmup:   warmup,
		validate: validator.New(),

		maxUpload: maxUploadBytes,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

type reportQuery struct {
	CNPJ string `validate:"omitempty,numeric,len=14"`
	View string `validate:"omitempty,oneof=company all"`
}

func (h *Handler) parseFilter(r *http.Request) (analytics.ViewFilter, error) {
	q := reportQuery{
		CNPJ: filing.DigitsOnly(r.URL.Query().Get("cnpj")),
		View: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("view"))),
	}
	if err := h.validate.Struct(q); err != nil {
		return analytics.ViewFilter{}, validationError{err: err}
	}
	return analytics.ViewFilter{CNPJ: q.CNPJ, AllCompanies: q.View == analytics.ViewAll}, nil
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rep, err := h.service.Build(ctx, req)
	if err != nil {
		h.respondError(w, "build report", err)
		return
	}
	h.writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.buildFromBody(w, r)
	if !ok {
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteReportCSV(buf, rep); err != nil {
		h.handleServerError(w, "write report csv", err)
		return
	}

	h.writeAttachment(w, "text/csv; charset=utf-8", exportName(rep, "csv"), buf.Bytes())
}

func (h *Handler) handleXLSX(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.buildFromBody(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, rep); err != nil {
		h.handleServerError(w, "write workbook", err)
		return
	}
	h.writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", exportName(rep, "xlsx"), buf.Bytes())
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		h.unavailable(w, "pdf exporter")
		return
	}
	rep, ok := h.buildFromBody(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	pdfBytes, err := h.pdf.Render(ctx, rep)
	if err != nil {
		h.handleServerError(w, "render pdf", err)
		return
	}
	h.writeAttachment(w, "application/pdf", exportName(rep, "pdf"), pdfBytes)
}

func (h *Handler) handleCreateFileSet(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.unavailable(w, "filing store")
		return
	}
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	if len(req.Batch.Filings) == 0 && len(req.Batch.Invalid) == 0 {
		h.respondError(w, "create file set", analytics.ErrEmptyRequest)
		return
	}
	doc, err := filingstore.Create(r.Context(), h.store, req.Batch)
	if err != nil {
		h.handleServerError(w, "create file set", err)
		return
	}
	h.enqueueWarmup(r.Context(), doc.ID)
	h.writeJSON(w, http.StatusCreated, fileSetResponse(doc))
}

func (h *Handler) handleAppendFilings(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.unavailable(w, "filing store")
		return
	}
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	doc, dups, err := filingstore.AppendFilings(r.Context(), h.store, chi.URLParam(r, "id"), req.Batch)
	if err != nil {
		h.respondError(w, "append filings", err)
		return
	}
	h.enqueueWarmup(r.Context(), doc.ID)
	body := fileSetResponse(doc)
	body.Duplicates = dups
	h.writeJSON(w, http.StatusOK, body)
}

func (h *Handler) handleFileSetReport(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.unavailable(w, "filing store")
		return
	}
	filter, err := h.parseFilter(r)
	if err != nil {
		h.respondError(w, "parse filter", err)
		return
	}
	doc, err := h.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "load file set", err)
		return
	}
	h.buildAndWrite(w, r, analytics.Request{Batch: doc.Batch, Filter: filter})
}

func (h *Handler) handleRemoveFiling(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.unavailable(w, "filing store")
		return
	}
	filter, err := h.parseFilter(r)
	if err != nil {
		h.respondError(w, "parse filter", err)
		return
	}
	doc, err := filingstore.RemoveFiling(r.Context(), h.store, chi.URLParam(r, "id"), chi.URLParam(r, "filename"))
	if err != nil {
		h.respondError(w, "remove filing", err)
		return
	}
	if len(doc.Batch.Filings) == 0 && len(doc.Batch.Invalid) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.enqueueWarmup(r.Context(), doc.ID)
	h.buildAndWrite(w, r, analytics.Request{Batch: doc.Batch, Filter: filter})
}

func (h *Handler) handleDeleteFileSet(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.unavailable(w, "filing store")
		return
	}
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete file set", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) buildAndWrite(w http.ResponseWriter, r *http.Request, req analytics.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	rep, err := h.service.Build(ctx, req)
	if err != nil {
		h.respondError(w, "build report", err)
		return
	}
	h.writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) buildFromBody(w http.ResponseWriter, r *http.Request) (analytics.Report, bool) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return analytics.Report{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	rep, err := h.service.Build(ctx, req)
	if err != nil {
		h.respondError(w, "build report", err)
		return analytics.Report{}, false
	}
	return rep, true
}

func (h *Handler) enqueueWarmup(ctx context.Context, id string) {
	if h.warmup == nil {
		return
	}
	if err := h.warmup.EnqueueWarmup(ctx, id); err != nil {
		h.logger.Warn("enqueue report warmup", slog.String("fileset", id), slog.Any("error", err))
	}
}

// decodeRequest reads the filter from the query and the upload from the
// body. JSON bodies are either the upload itself or {"upload", "history"};
// multipart bodies carry one or more "files" parts and an optional
// "history" part.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (analytics.Request, bool) {
	filter, err := h.parseFilter(r)
	if err != nil {
		h.respondError(w, "parse filter", err)
		return analytics.Request{}, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	var (
		batch   filing.Batch
		history []series.HistoryPoint
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		batch, history, err = h.decodeMultipart(r)
	} else {
		batch, history, err = decodeJSONBody(r.Body)
	}
	if err != nil {
		h.respondError(w, "decode upload", err)
		return analytics.Request{}, false
	}
	return analytics.Request{Batch: batch, Filter: filter, History: history}, true
}

type uploadEnvelope struct {
	Upload  json.RawMessage `json:"upload"`
	History json.RawMessage `json:"history"`
}

func decodeJSONBody(body io.Reader) (filing.Batch, []series.HistoryPoint, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return filing.Batch{}, nil, err
	}
	var env uploadEnvelope
	if json.Unmarshal(data, &env) == nil && len(env.Upload) > 0 {
		batch, err := filing.DecodeUpload(env.Upload)
		if err != nil {
			return filing.Batch{}, nil, err
		}
		if len(env.History) == 0 {
			return batch, nil, nil
		}
		history, err := series.DecodeHistory(env.History)
		if err != nil {
			return filing.Batch{}, nil, err
		}
		return batch, history, nil
	}
	batch, err := filing.DecodeUpload(data)
	return batch, nil, err
}

func (h *Handler) decodeMultipart(r *http.Request) (filing.Batch, []series.HistoryPoint, error) {
	if err := r.ParseMultipartForm(maxMemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return filing.Batch{}, nil, err
		}
		return filing.Batch{}, nil, validationError{err: err}
	}
	var history []series.HistoryPoint
	if raw := r.FormValue("history"); raw != "" {
		points, err := series.DecodeHistory([]byte(raw))
		if err != nil {
			return filing.Batch{}, nil, err
		}
		history = points
	}

	parts := r.MultipartForm.File["files"]
	decoded := make([]filing.Batch, len(parts))
	g, _ := errgroup.WithContext(r.Context())
	for i, part := range parts {
		g.Go(func() error {
			batch, err := decodePart(part)
			if err != nil {
				return fmt.Errorf("%s: %w", part.Filename, err)
			}
			decoded[i] = batch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return filing.Batch{}, nil, err
	}

	var merged filing.Batch
	for i, b := range decoded {
		merged.Merge(b, parts[i].Filename)
	}
	return merged, history, nil
}

func decodePart(part *multipart.FileHeader) (filing.Batch, error) {
	f, err := part.Open()
	if err != nil {
		return filing.Batch{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return filing.Batch{}, err
	}
	return filing.DecodeUpload(data)
}

type fileSetBody struct {
	ID        string    `json:"id"`
	Filings   int       `json:"filings"`
	Invalid   int       `json:"invalidFiles"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// Duplicates lists filings replaced by an append.
	Duplicates []filing.Duplicate `json:"duplicates,omitempty"`
}

func fileSetResponse(doc filingstore.Document) fileSetBody {
	return fileSetBody{
		ID:        doc.ID,
		Filings:   len(doc.Batch.Filings),
		Invalid:   len(doc.Batch.Invalid),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func exportName(rep analytics.Report, ext string) string {
	subject := rep.CNPJ
	if rep.View == analytics.ViewAll || subject == "" {
		subject = "todas"
	}
	return fmt.Sprintf("simples-%s.%s", subject, ext)
}

func (h *Handler) writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	if err := httpx.Attachment(w, contentType, filename, body); err != nil {
		h.logError("stream "+filename, err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	if err := httpx.JSON(w, status, payload); err != nil {
		h.logError("encode response", err)
	}
}

var errorRules = []httpx.Rule{
	{
		Match: func(err error) bool {
			return httpx.As[validationError]()(err) || httpx.Is(
				filing.ErrUndecodable,
				series.ErrInvalidHistory,
				analytics.ErrEmptyRequest,
				filingstore.ErrInvalidID,
			)(err)
		},
		Status: http.StatusBadRequest,
		Title:  "Bad Request",
	},
	{Match: httpx.As[*http.MaxBytesError](), Status: http.StatusRequestEntityTooLarge, Title: "Upload Too Large", Hide: true},
	{Match: httpx.Is(filingstore.ErrNotFound, filingstore.ErrFilingNotFound), Status: http.StatusNotFound, Title: "Not Found"},
}

// respondError maps domain errors to problem responses.
func (h *Handler) respondError(w http.ResponseWriter, context string, err error) {
	rule, detail := httpx.Resolve(err, errorRules)
	switch {
	case rule.Status >= http.StatusInternalServerError:
		h.logError(context, err)
	case rule.Status == http.StatusBadRequest:
		h.logger.Info(context, slog.Any("error", err))
	}
	h.problem(w, rule.Status, rule.Title, detail)
}

func (h *Handler) unavailable(w http.ResponseWriter, what string) {
	h.problem(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable), what+" not configured")
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	h.problem(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), "")
}

func (h *Handler) problem(w http.ResponseWriter, status int, title, detail string) {
	if err := httpx.Problem(w, status, title, detail); err != nil {
		h.logError("encode problem", err)
	}
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}

type validationError struct {
	err error
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid parameters: %v", v.err)
}

func (v validationError) Unwrap() error { return v.err }
