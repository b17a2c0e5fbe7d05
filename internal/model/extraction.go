package model

// Confidence is the extraction collaborator's self-assessed quality tier.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Error tags recorded on failed extraction results.
const (
	ErrNoContent        = "no_content"
	ErrExtractionFailed = "extraction_failed"
)

// ErrorTag returns a pointer suitable for ExtractionResult.Error.
func ErrorTag(tag string) *string { return &tag }

// Extraction is the structured insurance/payment record returned by the
// language model for one clinic website.
type Extraction struct {
	InsuranceProviders []string   `json:"insuranceProviders"`
	OtherInsurance     []string   `json:"otherInsurance"`
	PaymentMethods     []string   `json:"paymentMethods"`
	AcceptsNewPatients *bool      `json:"acceptsNewPatients"`
	Confidence         Confidence `json:"confidence"`
}

// ExtractionResult is the per-clinic crawler output, keyed by clinic ID in
// the checkpoint file so reruns skip already-processed clinics. Error is a
// pointer so successful results serialize with an explicit null, which
// downstream consumers key on.
type ExtractionResult struct {
	ClinicID   string      `json:"clinicId"`
	Title      string      `json:"title"`
	Website    string      `json:"website"`
	State      string      `json:"state"`
	Extraction *Extraction `json:"extraction"`
	Error      *string     `json:"error"`
}

// Failed reports whether the crawl recorded an error tag for this result.
func (r ExtractionResult) Failed() bool { return r.Error != nil }

// CrawledPage is a single fetched page in plaintext/markdown form.
type CrawledPage struct {
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	Content    string `json:"content"`
	StatusCode int    `json:"status_code,omitempty"`
}
