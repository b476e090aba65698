// Package extractor recovers FatturaPA XML text from uploaded invoice files.
// Plain .xml uploads pass through; .p7m uploads are CMS/PKCS#7 signed
// envelopes that are structurally unwrapped (no trust verification) with a
// layered fallback: DER parse, then PEM-armored parse, then a raw byte scan
// for the invoice payload across several text encodings.
package extractor

import (
	"bytes"
	"encoding/pem"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.mozilla.org/pkcs7"
	"golang.org/x/text/encoding/charmap"

	"fattura/internal/domain"
)

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`

// Root element names of the four FatturaPA schema variants, including the
// simplified invoice.
var rootTags = []string{
	"FatturaElettronica",
	"FatturaElettronicaSemplificata",
}

// Namespace prefixes observed in the wild on the invoice root element.
var knownPrefixes = []string{"", "p:", "ns2:", "ns3:", "b:", "nFE:"}

// fatturaPANamespace is injected when byte-slicing strands a prefixed root
// without its xmlns declaration.
const fatturaPANamespace = "http://ivaservizi.agenziaentrate.gov.it/docs/xsd/fatture/v1.2"

// Extract recovers the XML text of an uploaded invoice file. It is a pure
// function over the buffer.
func Extract(data []byte, ext domain.UploadExtension) (string, error) {
	if ext == domain.UploadXML {
		return string(data), nil
	}

	// 1. DER-encoded CMS signed-data.
	if p7, err := pkcs7.Parse(data); err == nil && looksLikeInvoice(p7.Content) {
		return cleanup(string(p7.Content)), nil
	}

	// 2. PEM-armored CMS.
	if content, ok := parsePEM(data); ok {
		return cleanup(string(content)), nil
	}

	// 3. Raw byte scan.
	if text, ok := scanPayload(data); ok {
		return cleanup(text), nil
	}

	return "", fmt.Errorf("%w: no strategy recovered an XML payload", domain.ErrExtractionFailed)
}

// parsePEM tries every PEM block in the buffer as a CMS structure.
func parsePEM(data []byte) ([]byte, bool) {
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, false
		}
		if p7, err := pkcs7.Parse(block.Bytes); err == nil && looksLikeInvoice(p7.Content) {
			return p7.Content, true
		}
	}
}

// scanPayload slices the signed blob between the XML declaration (or the
// invoice root's opening tag) and the matching closing tag, trying UTF-8,
// Latin-1 and ASCII until a slice carrying a recognizable payload appears.
func scanPayload(data []byte) (string, bool) {
	start := payloadStart(data)
	if start < 0 {
		return "", false
	}
	end := payloadEnd(data, start)
	if end < 0 {
		return "", false
	}
	slice := data[start:end]

	for _, decode := range []func([]byte) (string, bool){decodeUTF8, decodeLatin1, decodeASCII} {
		if text, ok := decode(slice); ok && looksLikeInvoice([]byte(text)) {
			return text, true
		}
	}
	return "", false
}

func payloadStart(data []byte) int {
	if i := bytes.Index(data, []byte("<?xml")); i >= 0 {
		return i
	}
	best := -1
	for _, tag := range rootTags {
		for _, prefix := range knownPrefixes {
			i := bytes.Index(data, []byte("<"+prefix+tag))
			if i >= 0 && (best < 0 || i < best) {
				best = i
			}
		}
	}
	return best
}

func payloadEnd(data []byte, from int) int {
	best := -1
	for _, tag := range rootTags {
		for _, prefix := range knownPrefixes {
			closing := []byte("</" + prefix + tag + ">")
			i := bytes.LastIndex(data, closing)
			if i > from && i+len(closing) > best {
				best = i + len(closing)
			}
		}
	}
	return best
}

func decodeUTF8(b []byte) (string, bool) {
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

func decodeLatin1(b []byte) (string, bool) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func decodeASCII(b []byte) (string, bool) {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c < 0x80 {
			sb.WriteByte(c)
		}
	}
	return sb.String(), true
}

// looksLikeInvoice reports whether the bytes contain an XML declaration or a
// FatturaPA root tag. Used both to validate a candidate payload and as the
// final acceptance check.
func looksLikeInvoice(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	if bytes.Contains(b, []byte("<?xml")) {
		return true
	}
	for _, tag := range rootTags {
		if bytes.Contains(b, []byte(tag)) {
			return true
		}
	}
	return false
}

// cleanup normalizes unwrapped payload text: embedded null bytes are removed,
// a root prefix stranded without its xmlns declaration gets a synthetic one,
// and a missing XML declaration is prepended.
func cleanup(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.TrimSpace(text)
	text = restoreRootNamespace(text)
	if !strings.HasPrefix(text, "<?xml") {
		text = xmlDeclaration + "\n" + text
	}
	return text
}

// restoreRootNamespace repairs byte-sliced payloads whose root element kept a
// namespace prefix but lost the declaration that bound it.
func restoreRootNamespace(text string) string {
	for _, tag := range rootTags {
		for _, prefix := range knownPrefixes {
			if prefix == "" {
				continue
			}
			open := "<" + prefix + tag
			i := strings.Index(text, open)
			if i < 0 {
				continue
			}
			decl := "xmlns:" + strings.TrimSuffix(prefix, ":") + "="
			if strings.Contains(text, decl) {
				continue
			}
			insert := fmt.Sprintf(` xmlns:%s=%q`, strings.TrimSuffix(prefix, ":"), fatturaPANamespace)
			return text[:i+len(open)] + insert + text[i+len(open):]
		}
	}
	return text
}
