package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/extpipe/pipeline"
)

const sampleConfig = `
max_input_size: 1048576
plugins:
  validators:
    mime_allowlist: [text/plain, text/html]
    min_content_length: 5
  processors:
    early: [sanitize, markdownify]
    late: [quality_stamp]
  ocr:
    - name: remote
      endpoint: http://localhost:8804
      languages: [eng]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extpipe.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRegisterPlugins(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	cfg, err := loadPluginsConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	reg := pipeline.NewRegistry()
	if err := registerPlugins(reg, cfg); err != nil {
		t.Fatal(err)
	}

	validators := reg.ListValidators()
	if len(validators) != 2 {
		t.Fatalf("validators: %+v", validators)
	}
	// mime check runs before content length.
	if validators[0].Name != "mime_allowlist" || validators[1].Name != "min_content_length" {
		t.Errorf("validator order: %+v", validators)
	}

	early := reg.ListPostProcessors(pipeline.StageEarly)
	if len(early) != 2 || early[0] != "sanitize" || early[1] != "markdownify" {
		t.Errorf("early processors: %v", early)
	}
	if late := reg.ListPostProcessors(pipeline.StageLate); len(late) != 1 || late[0] != "quality_stamp" {
		t.Errorf("late processors: %v", late)
	}

	if backends := reg.ListOcrBackends(); len(backends) != 1 || backends[0] != "remote" {
		t.Errorf("ocr backends: %v", backends)
	}
}

func TestRegisterPlugins_UnknownProcessor(t *testing.T) {
	path := writeConfig(t, "plugins:\n  processors:\n    early: [frobnicate]\n")
	cfg, err := loadPluginsConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := registerPlugins(pipeline.NewRegistry(), cfg); err == nil {
		t.Fatal("unknown processor name must be rejected")
	}
}

func TestRegisterPlugins_BadStage(t *testing.T) {
	path := writeConfig(t, "plugins:\n  processors:\n    sometime: [sanitize]\n")
	cfg, err := loadPluginsConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := registerPlugins(pipeline.NewRegistry(), cfg); err == nil {
		t.Fatal("unknown stage must be rejected")
	}
}

func TestPassthroughExtract(t *testing.T) {
	res, err := passthroughExtract(context.Background(), []byte("hello"), "text/plain; charset=utf-8", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "hello" || res.MimeType != "text/plain" {
		t.Errorf("result: %+v", res)
	}

	if _, err := passthroughExtract(context.Background(), []byte{1, 2}, "application/pdf", nil); err == nil {
		t.Fatal("non-text mime must be rejected without an engine")
	}
}
