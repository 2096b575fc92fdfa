// CLAUDE:SUMMARY YAML-driven registration of stock builtin plugins.
package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/extpipe/builtin"
	"github.com/hazyhaar/extpipe/pipeline"
)

// pluginsConfig is the plugins section of the config file. It selects
// which stock plugins get registered and with what parameters.
//
//	plugins:
//	  validators:
//	    mime_allowlist: [text/plain, text/html, application/pdf]
//	    pdf_well_formed: true
//	    min_content_length: 10
//	    min_printable_ratio: 0.85
//	  processors:
//	    early: [sanitize, markdownify]
//	    middle: [normalize_whitespace]
//	    late: [quality_stamp]
//	  ocr:
//	    - name: remote
//	      endpoint: http://localhost:8804
//	      languages: [eng, fra]
type pluginsConfig struct {
	Plugins struct {
		Validators struct {
			MaxInputSize      int64    `yaml:"max_input_size"`
			MimeAllowlist     []string `yaml:"mime_allowlist"`
			PDFWellFormed     bool     `yaml:"pdf_well_formed"`
			MinContentLength  int      `yaml:"min_content_length"`
			MinPrintableRatio float64  `yaml:"min_printable_ratio"`
		} `yaml:"validators"`
		Processors map[string][]string `yaml:"processors"`
		OCR        []namedOCRConfig    `yaml:"ocr"`
	} `yaml:"plugins"`
}

type namedOCRConfig struct {
	Name              string `yaml:"name"`
	builtin.OCRConfig `yaml:",inline"`
}

func loadPluginsConfig(path string) (*pluginsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &pluginsConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// registerPlugins registers the configured stock plugins. Validator
// priorities run cheap checks first: size, then mime, then structure.
func registerPlugins(reg *pipeline.Registry, cfg *pluginsConfig) error {
	v := cfg.Plugins.Validators
	if v.MaxInputSize > 0 {
		reg.RegisterValidator("max_input_size", &builtin.MaxInputSize{Limit: v.MaxInputSize}, 100)
	}
	if len(v.MimeAllowlist) > 0 {
		reg.RegisterValidator("mime_allowlist", &builtin.MimeAllowlist{Allowed: v.MimeAllowlist}, 90)
	}
	if v.PDFWellFormed {
		reg.RegisterValidator("pdf_well_formed", builtin.PDFWellFormed{}, 80)
	}
	if v.MinContentLength > 0 {
		reg.RegisterValidator("min_content_length", &builtin.MinContentLength{Min: v.MinContentLength}, 20)
	}
	if v.MinPrintableRatio > 0 {
		reg.RegisterValidator("min_printable_ratio", &builtin.MinPrintableRatio{Min: v.MinPrintableRatio}, 10)
	}

	for stageName, names := range cfg.Plugins.Processors {
		stage, err := pipeline.ParseStage(stageName)
		if err != nil {
			return err
		}
		for _, name := range names {
			proc, err := stockProcessor(name)
			if err != nil {
				return err
			}
			if err := reg.RegisterPostProcessor(stage, name, proc); err != nil {
				return err
			}
		}
	}

	for _, oc := range cfg.Plugins.OCR {
		if oc.Name == "" {
			return fmt.Errorf("ocr backend needs a name (endpoint %q)", oc.Endpoint)
		}
		reg.RegisterOcrBackend(oc.Name, builtin.NewHTTPOCRBackend(oc.OCRConfig))
	}
	return nil
}

func stockProcessor(name string) (pipeline.PostProcessor, error) {
	switch name {
	case "markdownify":
		return builtin.NewMarkdownify(), nil
	case "sanitize":
		return builtin.NewSanitize(), nil
	case "normalize_whitespace":
		return builtin.NormalizeWhitespace{}, nil
	case "strip_html":
		return builtin.StripHTML{}, nil
	case "quality_stamp":
		return builtin.QualityStamp{}, nil
	default:
		return nil, fmt.Errorf("unknown stock processor %q", name)
	}
}
