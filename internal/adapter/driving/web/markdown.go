package web

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Run summaries are the same markdown posted to check runs and comments:
// inline code for branch names, fenced tool output and bare troubleshooting
// URLs, which GFM autolinks.
var (
	summaryMarkdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	summaryPolicy   = newSummaryPolicy()
)

func newSummaryPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// RenderMarkdown converts a run summary to sanitized HTML. If conversion
// fails the raw text is sanitized instead.
func RenderMarkdown(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := summaryMarkdown.Convert([]byte(src), &buf); err != nil {
		return summaryPolicy.Sanitize(src)
	}
	return summaryPolicy.Sanitize(buf.String())
}
