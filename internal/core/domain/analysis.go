package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultConfidence is assumed for detections the upstream reports without a score.
const DefaultConfidence = 0.9

// BatchAnalysis is the upstream analysis result for one batch.
type BatchAnalysis struct {
	BatchID string       `json:"batch_id,omitempty"`
	Files   []FileRecord `json:"files"`
	Stats   BatchStats   `json:"stats"`
}

type BatchStats struct {
	Breakdown Breakdown `json:"breakdown"`
	PIIs      int       `json:"piis"`
}

type FileRecord struct {
	Filename  string      `json:"filename"`
	PIIs      []Detection `json:"piis,omitempty"`
	PageCount *int        `json:"page_count,omitempty"`
}

type Detection struct {
	Type       string   `json:"type"`
	Value      string   `json:"value,omitempty"`
	Match      string   `json:"match,omitempty"`
	Normalized string   `json:"normalized,omitempty"`
	Page       *int     `json:"page,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// TypeCount is one entry of a breakdown.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Breakdown maps PII type labels to counts. It keeps the order in which the
// upstream emitted the keys, which is the tie-break order for rankings.
type Breakdown []TypeCount

// NewBreakdown builds a breakdown from ordered pairs; later duplicates
// overwrite the count but keep the first position.
func NewBreakdown(pairs ...TypeCount) Breakdown {
	out := make(Breakdown, 0, len(pairs))
	index := make(map[string]int, len(pairs))
	for _, p := range pairs {
		if i, ok := index[p.Type]; ok {
			out[i].Count = p.Count
			continue
		}
		index[p.Type] = len(out)
		out = append(out, p)
	}
	return out
}

func (b Breakdown) Total() int {
	total := 0
	for _, tc := range b {
		if tc.Count > 0 {
			total += tc.Count
		}
	}
	return total
}

func (b Breakdown) Get(label string) (int, bool) {
	for _, tc := range b {
		if tc.Type == label {
			return tc.Count, true
		}
	}
	return 0, false
}

func (b Breakdown) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tc := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(tc.Type)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", tc.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (b *Breakdown) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode breakdown: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode breakdown: expected object")
	}

	pairs := make([]TypeCount, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode breakdown key: %w", err)
		}
		key, _ := keyTok.(string)

		var count int
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("decode breakdown count for %q: %w", key, err)
		}
		pairs = append(pairs, TypeCount{Type: key, Count: count})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode breakdown: %w", err)
	}

	*b = NewBreakdown(pairs...)
	return nil
}

// BatchSummary is a row of the batch listing.
type BatchSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	FileCount int    `json:"file_count"`
	PIIs      int    `json:"piis"`
	CreatedAt string `json:"created_at,omitempty"`
}
