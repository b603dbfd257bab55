package ocr

import (
	"fmt"

	"github.com/expensehub/expensehub/internal"
)

func errUploadTooLarge(maxBytes int64) error {
	return internal.NewValidationError(
		fmt.Sprintf("file exceeds the %dMB upload limit", maxBytes>>20),
		internal.ErrCodeUploadTooLarge,
	)
}

func errUploadBadType(contentType string) error {
	return internal.NewValidationError(
		fmt.Sprintf("unsupported file type %q, only images are accepted", contentType),
		internal.ErrCodeUploadBadType,
	)
}
