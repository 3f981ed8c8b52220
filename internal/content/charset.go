package content

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// minChardetConfidence is the confidence chardet must reach before its guess
// overrides the default Windows-1252 fallback.
const minChardetConfidence = 50

// fallbackEncoding is what [charset.DetermineEncoding] assumes when it finds no
// better signal.
const fallbackEncoding = "windows-1252"

// UTF8Transformer converts input to UTF-8 and strips any byte order mark. The
// encoding comes from the BOM, the contentType charset, or HTML meta tags. If
// none is conclusive, the input is not valid UTF-8, and it is not HTML, the
// encoding is guessed statistically.
func UTF8Transformer(contentType string) TransformerFunc {
	isHTML := strings.Contains(contentType, "html")

	return func(input []byte) ([]byte, error) {
		enc, name, certain := charset.DetermineEncoding(input, contentType)
		if !certain && !isHTML && name == fallbackEncoding {
			if guessed, guessedName := guessEncoding(input); guessed != nil {
				enc, name = guessed, guessedName
			}
		}
		if !certain {
			slog.Debug("encoding detection uncertain",
				slog.String("encoding", name),
				slog.String("content_type", contentType))
		}

		if enc != encoding.Nop && enc != unicode.UTF8 {
			out, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(input)))
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s to UTF-8: %w", name, err)
			}
			input = out
		}
		return bytes.TrimPrefix(input, utf8BOM), nil
	}
}

func guessEncoding(input []byte) (encoding.Encoding, string) {
	result, err := chardet.NewTextDetector().DetectBest(input)
	if err != nil || result.Confidence < minChardetConfidence {
		return nil, ""
	}
	enc, err := htmlindex.Get(result.Charset)
	if err != nil {
		return nil, ""
	}
	return enc, result.Charset
}
