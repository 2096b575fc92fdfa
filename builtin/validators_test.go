package builtin

import (
	"context"
	"testing"

	"github.com/hazyhaar/extpipe/pipeline"
)

func preCtx(input []byte, mimeType string) *pipeline.ValidationContext {
	return &pipeline.ValidationContext{Request: &pipeline.Request{Input: input, MimeType: mimeType}}
}

func finalCtx(content string) *pipeline.ValidationContext {
	return &pipeline.ValidationContext{
		Request: &pipeline.Request{MimeType: "text/plain"},
		Result:  &pipeline.Result{Content: content},
	}
}

func TestMaxInputSize(t *testing.T) {
	v := &MaxInputSize{Limit: 4}

	if err := v.Validate(context.Background(), preCtx([]byte("ok"), "text/plain")); err != nil {
		t.Errorf("under limit: %v", err)
	}
	if err := v.Validate(context.Background(), preCtx([]byte("too long"), "text/plain")); err == nil {
		t.Error("over limit: expected error")
	}
	if v.ShouldValidate(finalCtx("x")) {
		t.Error("must not run against a post-processed result")
	}
}

func TestMimeAllowlist(t *testing.T) {
	v := &MimeAllowlist{Allowed: []string{"text/plain", "application/pdf"}}

	tests := []struct {
		mime string
		ok   bool
	}{
		{"text/plain", true},
		{"TEXT/PLAIN", true},
		{"text/plain; charset=utf-8", true},
		{"application/pdf", true},
		{"text/html", false},
		{"", false},
	}
	for _, tt := range tests {
		err := v.Validate(context.Background(), preCtx(nil, tt.mime))
		if tt.ok && err != nil {
			t.Errorf("%q: unexpected error %v", tt.mime, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%q: expected rejection", tt.mime)
		}
	}
}

func TestPDFWellFormed_Gating(t *testing.T) {
	v := PDFWellFormed{}

	if v.ShouldValidate(preCtx(nil, "text/plain")) {
		t.Error("must skip non-PDF requests")
	}
	if !v.ShouldValidate(preCtx(nil, "application/pdf")) {
		t.Error("must run on PDF requests")
	}
	if !v.ShouldValidate(preCtx(nil, "application/pdf; charset=binary")) {
		t.Error("must match PDF mime with parameters")
	}
	if v.ShouldValidate(&pipeline.ValidationContext{
		Request: &pipeline.Request{MimeType: "application/pdf"},
		Result:  &pipeline.Result{},
	}) {
		t.Error("must skip final-validation passes")
	}
}

func TestPDFWellFormed_RejectsGarbage(t *testing.T) {
	v := PDFWellFormed{}
	err := v.Validate(context.Background(), preCtx([]byte("this is not a pdf"), "application/pdf"))
	if err == nil {
		t.Fatal("garbage bytes must not validate as PDF")
	}
}

func TestMinContentLength(t *testing.T) {
	v := &MinContentLength{Min: 5}

	if err := v.Validate(context.Background(), finalCtx("enough text")); err != nil {
		t.Errorf("long content: %v", err)
	}
	if err := v.Validate(context.Background(), finalCtx("abc")); err == nil {
		t.Error("short content: expected error")
	}
	if v.ShouldValidate(preCtx(nil, "text/plain")) {
		t.Error("must not run before extraction")
	}
}

func TestMinPrintableRatio(t *testing.T) {
	v := &MinPrintableRatio{Min: 0.85}

	if err := v.Validate(context.Background(), finalCtx("clean readable text")); err != nil {
		t.Errorf("clean content: %v", err)
	}
	garbage := "�\x00\x01\x02ab"
	if err := v.Validate(context.Background(), finalCtx(garbage)); err == nil {
		t.Error("garbage content: expected error")
	}
	if v.ShouldValidate(preCtx(nil, "text/plain")) {
		t.Error("must not run before extraction")
	}
}
