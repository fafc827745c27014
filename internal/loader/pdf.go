package loader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF pulls plain text out of a PDF in bounded page windows.
// Only the accumulated text survives across windows; each window's
// font/decode cache is dropped before the next one starts, so memory
// is a function of the window size, not the document size.
func (l *Loader) extractPDF(path string) (text string, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parse panic: %v", r)
		}
	}()
	return l.extractPDFPages(path)
}

func (l *Loader) extractPDFPages(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	total := r.NumPage()
	if total == 0 {
		return "", errors.New("pdf has no pages")
	}

	var out strings.Builder
	for first := 1; first <= total; first += l.pageWindow {
		last := first + l.pageWindow - 1
		if last > total {
			last = total
		}
		// fonts cache is scoped to one window
		fonts := make(map[string]*pdf.Font)
		for n := first; n <= last; n++ {
			page := r.Page(n)
			if page.V.IsNull() {
				continue
			}
			text, err := page.GetPlainText(fonts)
			if err != nil {
				l.log.Warn("skipping unreadable pdf page", "path", path, "page", n, "cause", err)
				continue
			}
			out.WriteString(text)
			out.WriteString("\n")
		}
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", errors.New("no extractable text in pdf")
	}
	return out.String(), nil
}
