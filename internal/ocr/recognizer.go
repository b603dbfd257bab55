package ocr

import (
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Recognizer turns a receipt image on disk into raw text.
type Recognizer interface {
	RecognizeFile(path string) (string, error)
}

// TesseractRecognizer runs Tesseract over a lightly preprocessed copy of
// the image: grayscale, and upscale when the image is too small for the
// engine to read reliably.
type TesseractRecognizer struct {
	Language string
}

func NewTesseractRecognizer() *TesseractRecognizer {
	return &TesseractRecognizer{Language: "eng"}
}

func (t *TesseractRecognizer) RecognizeFile(path string) (string, error) {
	prepared, cleanup, err := t.preprocess(path)
	if err != nil {
		return "", err
	}
	defer cleanup()

	client := gosseract.NewClient()
	defer client.Close()

	if t.Language != "" {
		_ = client.SetLanguage(t.Language)
	}
	if err := client.SetImage(prepared); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr error: %w", err)
	}
	return text, nil
}

func (t *TesseractRecognizer) preprocess(path string) (string, func(), error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open image: %w", err)
	}

	gray := imaging.Grayscale(img)
	if gray.Bounds().Dy() < 800 {
		gray = imaging.Resize(gray, 0, 1200, imaging.Lanczos)
	}

	tmpFile, err := os.CreateTemp("", "ocr-*.png")
	if err != nil {
		// Fall back to the original file if a temp copy cannot be made.
		return path, func() {}, nil
	}
	tmp := tmpFile.Name()
	_ = tmpFile.Close()

	if err := imaging.Save(gray, tmp); err != nil {
		_ = os.Remove(tmp)
		return path, func() {}, nil
	}

	return tmp, func() { _ = os.Remove(tmp) }, nil
}
