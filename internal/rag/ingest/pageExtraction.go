package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

type Extraction struct {
	Text        string
	PageCount   int
	ContentType commonModels.DocType
}

type Extractor interface {
	Extract(ctx context.Context, path string) (Extraction, error)
}

// FileExtractor reads PDFs with dslipak/pdf and docx/odt/rtf/txt with lu4p/cat.
type FileExtractor struct {
	maxPages    int
	pageTimeout time.Duration
	logger      *logger_i.Logger
}

func NewFileExtractor(maxPages int, pageTimeout time.Duration) *FileExtractor {
	return &FileExtractor{
		maxPages:    maxPages,
		pageTimeout: pageTimeout,
		logger:      logger_i.NewLogger("extractor"),
	}
}

func (e *FileExtractor) Extract(ctx context.Context, path string) (Extraction, error) {
	docType := getDocType(path)
	var (
		pages []rawPage
		count int
		err   error
	)
	switch docType {
	case commonModels.PDF:
		pages, count, err = e.extractPDF(ctx, path)
	case commonModels.DOCX, commonModels.TXT:
		pages, err = e.extractdocxTxtRtf(path)
		count = 1
	default:
		return Extraction{}, fmt.Errorf("%w: %s", ragErrors.ErrUnsupportedDocument, path)
	}
	if err != nil {
		return Extraction{}, err
	}

	return Extraction{
		Text:        joinPages(pages, docType == commonModels.PDF),
		PageCount:   count,
		ContentType: docType,
	}, nil
}

// joinPages marks each page as "[Page N]" so answers can point back at a slide.
func joinPages(pages []rawPage, marked bool) string {
	var b strings.Builder
	for _, p := range pages {
		if marked {
			fmt.Fprintf(&b, "\n[Page %d]\n", p.Number)
		}
		b.WriteString(p.Content)
	}
	return b.String()
}

func (e *FileExtractor) extractPDF(ctx context.Context, path string) (pages []rawPage, numPages int, err error) {
	e.logger.Debug("extractPDF", "attempting extraction", path)
	defer func() {
		// malformed xref tables make the pdf reader panic
		if r := recover(); r != nil {
			e.logger.Error("pdf reader panicked", "path", path, "panic", r)
			pages, numPages, err = nil, 0, fmt.Errorf("%w: %v", ragErrors.ErrUnreadableDocument, r)
		}
	}()

	f, err := pdf.Open(path)
	if err != nil {
		e.logger.Error("failed opening of pdf file", "error", err)
		return nil, 0, fmt.Errorf("%w: %v", ragErrors.ErrUnreadableDocument, err)
	}

	numPages = f.NumPage()
	e.logger.Debug("extractPDF", "number of pages", numPages)
	if numPages > e.maxPages {
		return nil, numPages, fmt.Errorf("%w: %d pages, maximum is %d", ragErrors.ErrTooManyPages, numPages, e.maxPages)
	}

	hasText := false
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, numPages, err
		}
		page := f.Page(i)
		if page.V.IsNull() {
			e.logger.Debug("extractPDF", "page value is null", i)
			continue
		}

		content, err := e.protectExtract(page)
		if err != nil {
			// Log warning but continue with other pages
			e.logger.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}

		hasText = true
		pages = append(pages, rawPage{
			Number:  i,
			Content: content,
		})
	}

	if !hasText {
		return nil, numPages, fmt.Errorf("%w: no extractable text in %d pages", ragErrors.ErrUnreadableDocument, numPages)
	}
	return pages, numPages, nil
}

// extractdocxTxtRtf reads a .odt, .docx, .rtf or plaintext file as a single page.
func (e *FileExtractor) extractdocxTxtRtf(path string) ([]rawPage, error) {
	text, err := cat.File(path)
	if err != nil {
		e.logger.Error("Error extracting content from doc", "error", err)
		return nil, fmt.Errorf("%w: %v", ragErrors.ErrUnreadableDocument, err)
	}

	return []rawPage{
		{
			Number:  1,
			Content: text,
		},
	}, nil
}

func (e *FileExtractor) protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("page text panicked: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(e.pageTimeout):
		return "", errors.New("page extraction timed out")
	}
}
