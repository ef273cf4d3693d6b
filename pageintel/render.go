package pageintel

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/1genadam/tileshop-rag-sub001/pagefetch"
)

// renderer converts the main section into clean markdown for downstream
// retrieval consumers. The markup is sanitized first so script and event
// attributes never reach the converter.
type renderer struct {
	policy    *bluemonday.Policy
	converter *converter.Converter
}

func newRenderer() *renderer {
	return &renderer{
		policy: bluemonday.UGCPolicy(),
		converter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// mainMarkdown renders the bundle's main section. Conversion failures fall
// back to the section's plain text.
func (r *renderer) mainMarkdown(b *pagefetch.Bundle) string {
	sec, ok := b.Get("main")
	if !ok || sec.HTML == "" {
		return ""
	}
	clean := r.policy.Sanitize(sec.HTML)
	md, err := r.converter.ConvertString(clean, converter.WithDomain(b.URL))
	if err != nil || strings.TrimSpace(md) == "" {
		return strings.TrimSpace(sec.Text)
	}
	return strings.TrimSpace(md)
}
