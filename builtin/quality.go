// CLAUDE:SUMMARY Extraction quality metrics and the QualityStamp post-processor writing them into result metadata.
package builtin

import (
	"context"
	"strings"
	"unicode"

	"github.com/hazyhaar/extpipe/pipeline"
)

// ExtractionQuality captures metrics about extracted text quality.
type ExtractionQuality struct {
	PageCount      int     `json:"page_count"`
	CharsPerPage   float64 `json:"chars_per_page"`
	PrintableRatio float64 `json:"printable_ratio"`
	WordlikeRatio  float64 `json:"wordlike_ratio"`
}

// MeasureQuality computes quality metrics for a result.
func MeasureQuality(res *pipeline.Result) ExtractionQuality {
	pages := len(res.Pages)
	if pages == 0 {
		pages = 1
	}
	return ExtractionQuality{
		PageCount:      len(res.Pages),
		CharsPerPage:   float64(len([]rune(res.Content))) / float64(pages),
		PrintableRatio: printableRatio(res.Content),
		WordlikeRatio:  wordlikeRatio(res.Content),
	}
}

// printableRatio returns the ratio of printable characters in text.
// Excludes PUA U+E000-U+F8FF, control chars < U+0020 (except \n\r\t), U+FFFD.
func printableRatio(text string) float64 {
	if len(text) == 0 {
		return 1.0
	}
	total := 0
	printable := 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	// Private Use Area
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	// Replacement character
	if r == 0xFFFD {
		return true
	}
	// Control chars except whitespace
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}

// wordlikeRatio returns the ratio of word-like tokens (length 2-15) to total tokens.
func wordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	wordlike := 0
	for _, f := range fields {
		n := len([]rune(f))
		if n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(fields))
}

// QualityStamp writes extraction quality metrics into result metadata
// under the "quality" key. Meant for the late stage, after content has
// settled.
type QualityStamp struct{}

func (QualityStamp) Process(_ context.Context, res *pipeline.Result, _ map[string]any) (*pipeline.Result, error) {
	q := MeasureQuality(res)
	out := *res
	out.Metadata = make(map[string]any, len(res.Metadata)+1)
	for k, v := range res.Metadata {
		out.Metadata[k] = v
	}
	out.Metadata["quality"] = q
	return &out, nil
}

var _ pipeline.PostProcessor = QualityStamp{}
