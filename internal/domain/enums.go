package domain

// InvoiceStatus represents the print lifecycle of an invoice record.
type InvoiceStatus string

const (
	StatusNotPrinted InvoiceStatus = "not_printed"
	StatusPrinted    InvoiceStatus = "printed"
)

// Legacy status values still found in older records. They are accepted on
// read and normalized; they are never written back.
const (
	legacyStatusReceived InvoiceStatus = "received"
	legacyStatusPaid     InvoiceStatus = "paid"
	legacyStatusOverdue  InvoiceStatus = "overdue"
)

// NormalizeStatus maps legacy status values onto the current enum. Unknown
// values normalize to not_printed.
func NormalizeStatus(s InvoiceStatus) InvoiceStatus {
	switch s {
	case StatusNotPrinted, StatusPrinted:
		return s
	case legacyStatusPaid:
		return StatusPrinted
	case legacyStatusReceived, legacyStatusOverdue:
		return StatusNotPrinted
	default:
		return StatusNotPrinted
	}
}

// ValidStatus reports whether s is a value callers may write.
func ValidStatus(s InvoiceStatus) bool {
	return s == StatusNotPrinted || s == StatusPrinted
}

// ArtifactKind identifies one member of an invoice's artifact triple.
type ArtifactKind string

const (
	ArtifactXML  ArtifactKind = "xml"
	ArtifactHTML ArtifactKind = "html"
	ArtifactPDF  ArtifactKind = "pdf"
)

// ArtifactKinds lists the members of the triple in generation order.
var ArtifactKinds = []ArtifactKind{ArtifactXML, ArtifactHTML, ArtifactPDF}

// Valid reports whether k names a known artifact category.
func (k ArtifactKind) Valid() bool {
	switch k {
	case ArtifactXML, ArtifactHTML, ArtifactPDF:
		return true
	}
	return false
}

// Ext returns the file extension for the artifact kind, including the dot.
func (k ArtifactKind) Ext() string { return "." + string(k) }

// ContentType returns the MIME type served for the artifact kind.
func (k ArtifactKind) ContentType() string {
	switch k {
	case ArtifactXML:
		return "application/xml"
	case ArtifactHTML:
		return "text/html; charset=utf-8"
	case ArtifactPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// UploadExtension is the declared extension of an uploaded invoice file.
type UploadExtension string

const (
	UploadXML UploadExtension = "xml"
	UploadP7M UploadExtension = "p7m"
)

// AllowedUploadExtensions maps lowercase extensions (without dot) to the
// declared upload type.
var AllowedUploadExtensions = map[string]UploadExtension{
	"xml": UploadXML,
	"p7m": UploadP7M,
}

// JobStatus represents the lifecycle of an ingestion batch.
type JobStatus string

const (
	JobPreparing  JobStatus = "preparing"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the job has finished, successfully or not.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// FileStage labels the step a file's pipeline is currently executing.
type FileStage string

const (
	StagePending          FileStage = "pending"
	StageExtracting       FileStage = "extracting"
	StageParsing          FileStage = "parsing"
	StageDedupChecking    FileStage = "dedup-checking"
	StageWritingArtifacts FileStage = "writing-artifacts"
	StageCreatingRecord   FileStage = "creating-record"
	StageDone             FileStage = "done"
	StageFailed           FileStage = "failed"
)
