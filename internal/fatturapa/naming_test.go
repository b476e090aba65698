package fatturapa_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fattura/internal/fatturapa"
)

func TestBaseName_Deterministic(t *testing.T) {
	a := fatturapa.BaseName("001", "2024-01-15")
	b := fatturapa.BaseName("001", "2024-01-15")
	assert.Equal(t, a, b)
	assert.Equal(t, "001_20240115", a)
}

func TestBaseName_PunctuationClassesCollapse(t *testing.T) {
	// Inputs differing only in punctuation-class characters sanitize to the
	// same name.
	assert.Equal(t, fatturapa.BaseName("INV-001", "2024-01-15"), fatturapa.BaseName("INV 001", "2024-01-15"))
	assert.Equal(t, "INV_001_20240115", fatturapa.BaseName("INV-001", "2024-01-15"))
}

func TestBaseName_DegenerateInputs(t *testing.T) {
	assert.Equal(t, "_20240115", fatturapa.BaseName("", "2024-01-15"))
	assert.Equal(t, "____", fatturapa.BaseName("///", ""))
}

func TestCodeLabels(t *testing.T) {
	assert.Equal(t, "TD01 - Fattura", fatturapa.DocumentTypeLabel("TD01"))
	assert.Equal(t, "TD99 - Documento", fatturapa.DocumentTypeLabel("TD99"))
	assert.Equal(t, "Documento", fatturapa.DocumentTypeLabel(""))
	assert.Equal(t, "MP05 - Bonifico", fatturapa.PaymentMethodLabel("MP05"))
	assert.Equal(t, "Non specificato", fatturapa.PaymentMethodLabel("MP99"))
	assert.Equal(t, "Non specificato", fatturapa.PaymentMethodLabel(""))
}
