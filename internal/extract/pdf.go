// Package extract pulls plain text out of PDF documents.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"

	"lingua-flow-go/internal/logger"
)

var (
	ErrEmptyDocument = errors.New("pdf document is empty")
	ErrNoText        = errors.New("pdf contains no extractable text")
)

// PDF extracts the text layer of every page.
type PDF struct {
	log *logrus.Entry
}

func NewPDF(log *logrus.Entry) *PDF {
	return &PDF{log: logger.OrDefault(log, "extract").WithField("component", "extract")}
}

// Extract returns the concatenated page text. Pages without a text layer are skipped;
// a document with no text at all is an error.
func (p *PDF) Extract(ctx context.Context, data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}

	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	log := logger.FromContext(ctx, p.log)
	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			log.WithFields(logrus.Fields{"page": i, "error": err.Error()}).Warn("skipping unreadable pdf page")
			continue
		}
		if strings.TrimSpace(content) != "" {
			pages = append(pages, content)
		}
	}

	text = strings.TrimSpace(strings.Join(pages, "\n"))
	if text == "" {
		return "", ErrNoText
	}
	log.WithFields(logrus.Fields{"pages": total, "chars": len([]rune(text))}).Debug("pdf text extracted")
	return text, nil
}
