package analytics

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

const (
	DefaultWeight = 3
	MinWeight     = 1
	MaxWeight     = 10
)

// WeightTable maps uppercased PII type labels to a severity weight.
type WeightTable map[string]int

func DefaultWeights() WeightTable {
	return WeightTable{
		"AADHAAR":         10,
		"PASSPORT":        10,
		"CREDIT_CARD":     10,
		"DEBIT_CARD":      10,
		"SSN":             10,
		"BIOMETRIC":       10,
		"PASSWORD":        10,
		"PAN":             9,
		"BANK_ACCOUNT":    9,
		"API_KEY":         9,
		"MEDICAL_RECORD":  9,
		"HEALTH_ID":       9,
		"VOTER_ID":        8,
		"DRIVING_LICENSE": 8,
		"CVV":             8,
		"UPI":             7,
		"UPI_ID":          7,
		"DOB":             6,
		"DATE_OF_BIRTH":   6,
		"ADDRESS":         6,
		"PHONE":           6,
		"MOBILE":          6,
		"EMAIL":           5,
		"GSTIN":           5,
		"IFSC":            4,
		"IP_ADDRESS":      4,
		"VEHICLE_NUMBER":  4,
		"PINCODE":         3,
		"NAME":            3,
		"GENDER":          3,
		"LOCATION":        3,
		"ORGANIZATION":    2,
		"URL":             2,
		"DATE":            2,
	}
}

// Weight returns the weight for a type label; unknown labels get DefaultWeight.
func (w WeightTable) Weight(label string) int {
	if weight, ok := w[normalizeLabel(label)]; ok {
		return weight
	}
	return DefaultWeight
}

// Merge returns a copy of w with overrides applied on top.
func (w WeightTable) Merge(overrides WeightTable) WeightTable {
	out := make(WeightTable, len(w)+len(overrides))
	for k, v := range w {
		out[k] = v
	}
	for k, v := range overrides {
		out[normalizeLabel(k)] = v
	}
	return out
}

func (w WeightTable) Validate() error {
	for label, weight := range w {
		if strings.TrimSpace(label) == "" {
			return domain.WrapError(domain.ErrInvalidInput, "validate weights", errors.New("empty type label"))
		}
		if weight < MinWeight || weight > MaxWeight {
			return domain.WrapError(
				domain.ErrInvalidInput,
				"validate weights",
				fmt.Errorf("weight for %s must be within [%d,%d], got %d", label, MinWeight, MaxWeight, weight),
			)
		}
	}
	return nil
}

// LoadWeights reads a YAML document of the form
//
//	weights:
//	  AADHAAR: 10
//	  EMAIL: 5
//
// and merges it over the defaults.
func LoadWeights(r io.Reader) (WeightTable, error) {
	var doc struct {
		Weights map[string]int `yaml:"weights"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return DefaultWeights(), nil
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode weights yaml", err)
	}

	overrides := WeightTable(doc.Weights)
	if err := overrides.Validate(); err != nil {
		return nil, err
	}
	return DefaultWeights().Merge(overrides), nil
}

func normalizeLabel(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}
