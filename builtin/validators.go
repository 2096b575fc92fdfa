// CLAUDE:SUMMARY Stock validators: input size, MIME allowlist, PDF structure, content length, printable ratio.
package builtin

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/hazyhaar/extpipe/pipeline"
)

// MaxInputSize rejects inputs over Limit bytes. It only runs before
// extraction; the post-processed result is not its concern.
type MaxInputSize struct {
	Limit int64
}

func (v *MaxInputSize) ShouldValidate(vc *pipeline.ValidationContext) bool {
	return vc.Result == nil
}

func (v *MaxInputSize) Validate(_ context.Context, vc *pipeline.ValidationContext) error {
	if n := int64(len(vc.Request.Input)); n > v.Limit {
		return fmt.Errorf("input is %d bytes, limit is %d", n, v.Limit)
	}
	return nil
}

// MimeAllowlist rejects requests whose MIME type is not listed. Matching
// ignores case and parameters ("text/html; charset=utf-8" matches
// "text/html").
type MimeAllowlist struct {
	Allowed []string
}

func (v *MimeAllowlist) ShouldValidate(vc *pipeline.ValidationContext) bool {
	return vc.Result == nil
}

func (v *MimeAllowlist) Validate(_ context.Context, vc *pipeline.ValidationContext) error {
	mt := baseMime(vc.Request.MimeType)
	for _, a := range v.Allowed {
		if baseMime(a) == mt {
			return nil
		}
	}
	return fmt.Errorf("mime type %q is not allowed", vc.Request.MimeType)
}

func baseMime(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

// PDFWellFormed validates that PDF inputs parse as structurally sound
// documents. Non-PDF requests are skipped, as are final-validation
// passes.
type PDFWellFormed struct{}

func (PDFWellFormed) ShouldValidate(vc *pipeline.ValidationContext) bool {
	return vc.Result == nil && baseMime(vc.Request.MimeType) == "application/pdf"
}

func (PDFWellFormed) Validate(_ context.Context, vc *pipeline.ValidationContext) error {
	conf := model.NewDefaultConfiguration()
	if _, err := api.ReadValidateAndOptimize(bytes.NewReader(vc.Request.Input), conf); err != nil {
		return fmt.Errorf("pdf structure: %w", err)
	}
	return nil
}

// MinContentLength rejects post-processed results whose content is
// shorter than Min runes. Pre-extraction passes are skipped.
type MinContentLength struct {
	Min int
}

func (v *MinContentLength) ShouldValidate(vc *pipeline.ValidationContext) bool {
	return vc.Result != nil
}

func (v *MinContentLength) Validate(_ context.Context, vc *pipeline.ValidationContext) error {
	if n := len([]rune(vc.Result.Content)); n < v.Min {
		return fmt.Errorf("content is %d chars, minimum is %d", n, v.Min)
	}
	return nil
}

// MinPrintableRatio rejects post-processed results that look like
// mojibake or binary garbage. Pre-extraction passes are skipped.
type MinPrintableRatio struct {
	Min float64
}

func (v *MinPrintableRatio) ShouldValidate(vc *pipeline.ValidationContext) bool {
	return vc.Result != nil
}

func (v *MinPrintableRatio) Validate(_ context.Context, vc *pipeline.ValidationContext) error {
	if r := printableRatio(vc.Result.Content); r < v.Min {
		return fmt.Errorf("printable ratio %.2f is below %.2f", r, v.Min)
	}
	return nil
}

var _ pipeline.ConditionalValidator = (*MaxInputSize)(nil)
var _ pipeline.ConditionalValidator = (*MimeAllowlist)(nil)
var _ pipeline.ConditionalValidator = PDFWellFormed{}
var _ pipeline.ConditionalValidator = (*MinContentLength)(nil)
var _ pipeline.ConditionalValidator = (*MinPrintableRatio)(nil)
