package port

import "context"

// PDFRenderer converts a rendered HTML document into paginated PDF bytes.
// Implementations are shared across concurrently running file pipelines and
// must tolerate backend loss by recreating the backend lazily on next use.
// CSS page-break hints present in the HTML must survive into the PDF.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
	Close()
}
