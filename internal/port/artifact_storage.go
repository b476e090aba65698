package port

import (
	"context"

	"fattura/internal/domain"
)

// ArtifactStorage abstracts the artifact store holding the XML/HTML/PDF
// triples. Implementations guarantee that a successful Write is immediately
// visible to Exists and Read from the same process. The pipeline never
// assumes a physical root; Write returns the storage path it chose.
type ArtifactStorage interface {
	Write(ctx context.Context, kind domain.ArtifactKind, filename string, data []byte) (string, error)
	// Path returns the storage path Write would choose, without touching the
	// store. Needed to reference an artifact that an earlier run already wrote.
	Path(kind domain.ArtifactKind, filename string) string
	Read(ctx context.Context, kind domain.ArtifactKind, filename string) ([]byte, error)
	Exists(ctx context.Context, kind domain.ArtifactKind, filename string) (bool, error)
	Delete(ctx context.Context, kind domain.ArtifactKind, filename string) error
}
