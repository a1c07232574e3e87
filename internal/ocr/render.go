package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/paperlyst/receipt-extractor/internal/common"
)

// renderFirstPage rasterizes page 1 of a PDF into a temporary PNG.
// Returns the image path and a cleanup func that removes the temp dir;
// cleanup is safe to call on every exit path. Receipts are treated as
// single-page documents, so later pages are never rendered.
func (e *Extractor) renderFirstPage(ctx context.Context, path string) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "rx-page-*")
	if err != nil {
		return "", nil, fmt.Errorf("%w: mkdtemp: %v", common.ErrRenderFailure, err)
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png -f 1 -l 1 <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", "-f", "1", "-l", "1", path, prefix)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("%w: pdftoppm: %v: %s", common.ErrRenderFailure, err, truncate(string(errb), 512))
	}

	// pdftoppm names its output page-1.png, page-01.png, ... depending on
	// the page count digits; glob instead of guessing.
	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		cleanup()
		return "", nil, fmt.Errorf("%w: pdftoppm produced no image", common.ErrRenderFailure)
	}
	sort.Strings(matches)
	return matches[0], cleanup, nil
}
