package export

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const renderTimeout = 30 * time.Second

// browserCandidates are tried in order when TANDEM_BROWSER_BIN is unset.
var browserCandidates = []string{"chromium-browser", "chromium", "google-chrome"}

// resolveBrowser locates the headless browser binary used to print reports.
func resolveBrowser() (string, error) {
	if bin := os.Getenv("TANDEM_BROWSER_BIN"); bin != "" {
		if path, err := exec.LookPath(bin); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("%w: TANDEM_BROWSER_BIN=%s not found", ErrPDFDependencyMissing, bin)
	}
	for _, candidate := range browserCandidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no chromium binary on PATH", ErrPDFDependencyMissing)
}

// percentEncodeForDataURL percent-encodes a report page for embedding in a
// data URL. url.QueryEscape is unsuitable here: it turns spaces into +.
func percentEncodeForDataURL(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	for i := 0; i < len(s); i++ {
		b := s[i]
		if unreservedByte(b) {
			out.WriteByte(b)
			continue
		}
		out.WriteString(fmt.Sprintf("%%%02X", b))
	}
	return out.String()
}

// unreservedByte reports whether b may appear literally per RFC 3986.
func unreservedByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '-', b == '_', b == '.', b == '~':
		return true
	}
	return false
}

// exportPDF renders a report page to PDF through a headless browser. The page
// travels as a data URL so no temp files or local web server are needed.
func exportPDF(html string, title string) (*Result, error) {
	browser, err := resolveBrowser()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(browser),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	dataURL := "data:text/html;charset=utf-8," + percentEncodeForDataURL(html)

	var pdf []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var printErr error
			// US Letter with 0.75in margins, matching the report stylesheet.
			pdf, _, printErr = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.5).
				WithPaperHeight(11.0).
				WithMarginTop(0.75).
				WithMarginBottom(0.75).
				WithMarginLeft(0.75).
				WithMarginRight(0.75).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return printErr
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print report pdf: %w", err)
	}

	return &Result{
		Data:     pdf,
		Filename: sanitizeFilename(title) + ".pdf",
		MimeType: "application/pdf",
	}, nil
}

// sanitizeFilename derives a download name from a project name. Letters,
// digits, hyphens and underscores pass through, spaces become hyphens and
// everything else is dropped. Capped at 50 bytes, defaulting to
// "project-report" when nothing survives.
func sanitizeFilename(title string) string {
	var out strings.Builder
	out.Grow(len(title))
	for i := 0; i < len(title) && out.Len() < 50; i++ {
		b := title[i]
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
			out.WriteByte(b)
		case b == ' ':
			out.WriteByte('-')
		case b == '-', b == '_':
			out.WriteByte(b)
		}
	}
	if out.Len() == 0 {
		return "project-report"
	}
	return out.String()
}
