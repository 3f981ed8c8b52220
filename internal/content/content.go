// Package content renders and imports the notes document.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
)

// ErrUnsupportedMediaType is returned by [Import] for media types it cannot
// convert to Markdown.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

var (
	renderPipeline = Chain(
		NormalizeLineEndings(), MarkdownToHTML(), SanitizeHTML(), ScrubHTML(),
	)
	htmlImportPipeline = Chain(
		NormalizeNBSP(), ExtractHTMLBody(), SanitizeHTML(), ScrubHTML(), HTMLToMarkdown(),
	)
	textImportPipeline = Chain(
		NormalizeLineEndings(), TrimTrailingWhitespace(),
	)
)

// Render converts a Markdown notes document into sanitized HTML.
func Render(markdown []byte) ([]byte, error) {
	return renderPipeline(markdown)
}

// Import converts a document of the given Content-Type into Markdown suitable
// for storing as notes. HTML is sanitized and converted, plain text and
// Markdown are normalized. The charset is detected from the content type or,
// failing that, the content itself.
func Import(contentType string, input []byte) ([]byte, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse content type %q: %w", contentType, err)
	}

	var pipeline TransformerFunc
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		pipeline = htmlImportPipeline
	case "text/plain", "text/markdown":
		pipeline = textImportPipeline
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mediaType)
	}

	if input, err = UTF8Transformer(contentType)(input); err != nil {
		return nil, err
	}
	output, err := pipeline(input)
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(output), nil
}
