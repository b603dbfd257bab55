package ocr

import (
	"log/slog"

	"github.com/expensehub/expensehub/internal"
)

// Service runs recognition and parsing over uploaded receipt images.
type Service struct {
	recognizer Recognizer
	logger     *slog.Logger
}

func NewService(recognizer Recognizer, logger *slog.Logger) *Service {
	return &Service{
		recognizer: recognizer,
		logger:     logger,
	}
}

// ExtractFromImage recognizes one receipt image and parses its fields.
func (s *Service) ExtractFromImage(path string) (*ParsedReceipt, error) {
	text, err := s.recognizer.RecognizeFile(path)
	if err != nil {
		s.logger.Error("recognition failed", "path", path, "error", err)
		return nil, internal.NewExternalError("receipt recognition failed", internal.ErrCodeOCRFailed, err)
	}

	parsed := ParseReceiptText(text)

	s.logger.Info("receipt parsed",
		"merchant", parsed.Merchant,
		"has_amount", parsed.Amount != nil,
		"has_date", parsed.Date != nil,
		"confidence", parsed.Confidence)

	return parsed, nil
}

// BatchItem is the per-file outcome of a batch extraction. Failures are
// collected per item instead of aborting the whole batch.
type BatchItem struct {
	FileName string         `json:"file_name"`
	Result   *ParsedReceipt `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// ExtractBatch processes files independently, pairing each input with
// either its parse result or its error.
func (s *Service) ExtractBatch(fileNames, paths []string) []BatchItem {
	items := make([]BatchItem, 0, len(paths))

	for i, path := range paths {
		item := BatchItem{FileName: fileNames[i]}

		parsed, err := s.ExtractFromImage(path)
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Result = parsed
		}

		items = append(items, item)
	}

	return items
}
