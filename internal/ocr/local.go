package ocr

import (
	"context"
	"fmt"
)

// tesseractOCR runs the local OCR engine on a rendered raster image.
func (e *Extractor) tesseractOCR(ctx context.Context, imgPath string) (string, error) {
	args := []string{imgPath, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}

	// strip obvious line noise before anyone parses it
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}
