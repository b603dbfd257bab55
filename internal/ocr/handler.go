package ocr

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/expensehub/expensehub/internal/auth"
	"github.com/expensehub/expensehub/internal/expense"
	"github.com/expensehub/expensehub/internal/transport"
	"github.com/expensehub/expensehub/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

// ExpenseAttacher is the slice of the expense service used to attach
// uploaded receipts.
type ExpenseAttacher interface {
	AttachReceipt(expenseID int64, user *auth.User, receipt *expense.Receipt) (*expense.Receipt, error)
}

type ServiceAPI interface {
	ExtractFromImage(path string) (*ParsedReceipt, error)
	ExtractBatch(fileNames, paths []string) []BatchItem
}

type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	Expenses ExpenseAttacher

	UploadsDir   string
	MaxFileBytes int64
	MaxBatchSize int
}

func NewHandler(service ServiceAPI, expenses ExpenseAttacher, uploadsDir string, maxFileBytes int64, maxBatchSize int) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	if maxFileBytes <= 0 {
		maxFileBytes = 10 << 20
	}
	if maxBatchSize <= 0 {
		maxBatchSize = 10
	}
	return &Handler{
		BaseHandler:  transport.NewBaseHandler(lg),
		Service:      service,
		Expenses:     expenses,
		UploadsDir:   uploadsDir,
		MaxFileBytes: maxFileBytes,
		MaxBatchSize: maxBatchSize,
	}
}

// ExtractReceipt runs OCR over a single uploaded image. The file only
// lives in a temp location for the duration of the request.
func (h *Handler) ExtractReceipt(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserFromContext(r.Context()); !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxFileBytes+1<<20)
	if err := r.ParseMultipartForm(h.MaxFileBytes); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "receipt file is required")
		return
	}
	defer file.Close()

	if err := h.validateUpload(header); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	path, err := h.saveTemp(file, header.Filename)
	if err != nil {
		h.Logger.Error("failed to store upload", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer os.Remove(path)

	parsed, err := h.Service.ExtractFromImage(path)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, parsed)
}

// ExtractReceipts runs OCR over a batch, collecting failures per item.
func (h *Handler) ExtractReceipts(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserFromContext(r.Context()); !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, int64(h.MaxBatchSize)*h.MaxFileBytes+1<<20)
	if err := r.ParseMultipartForm(h.MaxFileBytes); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File["receipts[]"]
	if len(files) == 0 {
		files = r.MultipartForm.File["receipts"]
	}
	if len(files) == 0 {
		h.WriteError(w, http.StatusBadRequest, "at least one receipt file is required")
		return
	}
	if len(files) > h.MaxBatchSize {
		h.WriteError(w, http.StatusBadRequest, fmt.Sprintf("at most %d files per batch", h.MaxBatchSize))
		return
	}

	var names []string
	var paths []string
	defer func() {
		for _, p := range paths {
			_ = os.Remove(p)
		}
	}()

	for _, header := range files {
		if err := h.validateUpload(header); err != nil {
			h.HandleServiceError(w, err)
			return
		}

		file, err := header.Open()
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "failed to read upload")
			return
		}

		path, err := h.saveTemp(file, header.Filename)
		file.Close()
		if err != nil {
			h.Logger.Error("failed to store upload", "error", err)
			h.WriteError(w, http.StatusInternalServerError, "failed to store upload")
			return
		}

		names = append(names, header.Filename)
		paths = append(paths, path)
	}

	items := h.Service.ExtractBatch(names, paths)
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": items})
}

// UploadExpenseReceipt stores the image under the uploads dir, runs OCR,
// and attaches the receipt with its extracted fields to the expense.
// Registered under /expenses/{id}/receipts.
func (h *Handler) UploadExpenseReceipt(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	expenseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxFileBytes+1<<20)
	if err := r.ParseMultipartForm(h.MaxFileBytes); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "receipt file is required")
		return
	}
	defer file.Close()

	if err := h.validateUpload(header); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := os.MkdirAll(h.UploadsDir, 0o755); err != nil {
		h.Logger.Error("failed to create uploads dir", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	storedName := uuid.NewString() + filepath.Ext(header.Filename)
	storagePath := filepath.Join(h.UploadsDir, storedName)

	size, err := h.saveTo(file, storagePath)
	if err != nil {
		h.Logger.Error("failed to store upload", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	receipt := &expense.Receipt{
		FileName:    header.Filename,
		StoragePath: storagePath,
		MimeType:    header.Header.Get("Content-Type"),
		SizeBytes:   size,
	}

	if parsed, err := h.Service.ExtractFromImage(storagePath); err != nil {
		// OCR is best-effort; the upload still attaches without fields.
		h.Logger.Warn("receipt OCR failed, attaching without extracted fields",
			"expense_id", expenseID,
			"error", err)
	} else {
		if parsed.Merchant != "" {
			receipt.OCRMerchant = &parsed.Merchant
		}
		receipt.OCRAmount = parsed.Amount
		receipt.OCRDate = parsed.Date
		receipt.OCRCategory = parsed.Category
		confidence := parsed.Confidence
		receipt.OCRConfidence = &confidence
	}

	attached, err := h.Expenses.AttachReceipt(expenseID, user, receipt)
	if err != nil {
		_ = os.Remove(storagePath)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, attached)
}

func (h *Handler) validateUpload(header *multipart.FileHeader) error {
	if header.Size > h.MaxFileBytes {
		return errUploadTooLarge(h.MaxFileBytes)
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return errUploadBadType(contentType)
	}

	return nil
}

func (h *Handler) saveTemp(src io.Reader, fileName string) (string, error) {
	tmpFile, err := os.CreateTemp("", "receipt-*"+filepath.Ext(fileName))
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	if _, err := io.Copy(tmpFile, io.LimitReader(src, h.MaxFileBytes)); err != nil {
		_ = os.Remove(tmpFile.Name())
		return "", err
	}

	return tmpFile.Name(), nil
}

func (h *Handler) saveTo(src io.Reader, path string) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	size, err := io.Copy(dst, io.LimitReader(src, h.MaxFileBytes))
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return size, nil
}
