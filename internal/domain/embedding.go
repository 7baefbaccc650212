package domain

import (
	"math"
	"strconv"
	"strings"
)

// StoredVector holds an embedding in whichever shape the store returned it:
// an already-decoded float slice, or the serialized "[f1,f2,...]" text form
// pgvector emits. Floats normalizes either shape.
type StoredVector struct {
	Values []float32
	Raw    string
}

// Floats returns the numeric vector, parsing the serialized form when no
// decoded values are present. Returns ErrMalformedVector when neither shape
// yields a usable vector.
func (v StoredVector) Floats() ([]float32, error) {
	if len(v.Values) > 0 {
		return v.Values, nil
	}

	raw := strings.TrimSpace(v.Raw)
	if len(raw) < 2 || raw[0] != '[' || raw[len(raw)-1] != ']' {
		return nil, ErrMalformedVector
	}

	body := raw[1 : len(raw)-1]
	if strings.TrimSpace(body) == "" {
		return nil, ErrMalformedVector
	}

	parts := strings.Split(body, ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, ErrMalformedVector
		}
		out = append(out, float32(f))
	}
	return out, nil
}

// CosineSimilarity computes the normalized dot product of two vectors.
// The result lies in [-1, 1]. Vectors of differing dimensionality return
// ErrVectorDimensionMismatch; zero-magnitude vectors return ErrZeroVector.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrVectorDimensionMismatch
	}
	if len(a) == 0 {
		return 0, ErrZeroVector
	}

	var dot, magA, magB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		magA += av * av
		magB += bv * bv
	}

	if magA == 0 || magB == 0 {
		return 0, ErrZeroVector
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}
