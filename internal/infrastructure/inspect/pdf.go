// Package inspect performs local structural checks on uploads before they
// are sent upstream, so obviously broken files fail fast and cheap.
package inspect

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/meducate/labs-orchestrator/internal/core/domain"
)

// CheckAttachment verifies that an attachment's bytes match its declared
// type. Only PDFs get a structural parse today; other kinds pass through
// and are left to the server's own validation.
func CheckAttachment(file domain.Attachment) error {
	if file.Kind() != domain.KindPDF {
		return nil
	}
	return checkPDF(file)
}

func checkPDF(file domain.Attachment) error {
	reader, err := pdf.NewReader(bytes.NewReader(file.Content), file.Size())
	if err != nil {
		return domain.WrapError(domain.ErrValidation, "inspect pdf",
			fmt.Errorf("%s is not a readable PDF: %w", file.Filename, err))
	}
	if reader.NumPage() == 0 {
		return domain.WrapError(domain.ErrValidation, "inspect pdf",
			fmt.Errorf("%s has no pages", file.Filename))
	}
	return nil
}

// CheckAll runs CheckAttachment over a whole request and stops at the
// first broken file.
func CheckAll(req domain.InterpretationRequest) error {
	for _, file := range req.Files {
		if err := CheckAttachment(file); err != nil {
			return err
		}
	}
	return nil
}
