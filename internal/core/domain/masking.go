package domain

type MaskMode string

const (
	MaskBlur MaskMode = "blur"
	MaskHash MaskMode = "hash"
)

func (m MaskMode) Valid() bool {
	return m == MaskBlur || m == MaskHash
}

type MaskRequest struct {
	Mode     MaskMode `json:"mode"`
	Password string   `json:"password,omitempty"`
	Types    []string `json:"types,omitempty"`
}

// MaskResult carries either individual file URLs or one archive URL.
type MaskResult struct {
	Files      []MaskedFile `json:"files,omitempty"`
	ArchiveURL string       `json:"archive_url,omitempty"`
}

type MaskedFile struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type ArchiveProgress struct {
	Index    int    `json:"index"`
	Total    int    `json:"total"`
	Filename string `json:"filename"`
	OK       bool   `json:"ok"`
}

type ArchiveResult struct {
	Key      string   `json:"key"`
	Included []string `json:"included"`
	Skipped  []string `json:"skipped,omitempty"`
	Bytes    int64    `json:"bytes"`
}

type ExportRequest struct {
	Types    []string `json:"types,omitempty"`
	Password string   `json:"password,omitempty"`
}

// ExportPayload is the upstream export document, plaintext or encrypted.
type ExportPayload struct {
	Encrypted bool   `json:"encrypted"`
	Data      []byte `json:"-"`
}

type ExportResult struct {
	Key       string `json:"key"`
	Encrypted bool   `json:"encrypted"`
	Bytes     int    `json:"bytes"`
}
