package model

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

// SVD is a biased matrix-factorization model:
//
//	r̂(u,i) = μ + b_u + b_i + p_u · q_i
//
// Users or items unknown to the model contribute no bias and no factors, so
// the estimate falls back towards the global mean. Estimates are clipped to
// [MinRating, MaxRating] when that range is set.
type SVD struct {
	GlobalMean  float64           `json:"global_mean"`
	MinRating   float64           `json:"min_rating"`
	MaxRating   float64           `json:"max_rating"`
	UserBias    map[int]float64   `json:"user_bias"`
	ItemBias    map[int]float64   `json:"item_bias"`
	UserFactors map[int][]float64 `json:"user_factors"`
	ItemFactors map[int][]float64 `json:"item_factors"`
}

// Estimate implements Scorer.
func (m *SVD) Estimate(userID, itemID int) float64 {
	est := m.GlobalMean + m.UserBias[userID] + m.ItemBias[itemID]

	pu, okU := m.UserFactors[userID]
	qi, okI := m.ItemFactors[itemID]
	if okU && okI {
		n := min(len(pu), len(qi))
		for f := 0; f < n; f++ {
			est += pu[f] * qi[f]
		}
	}

	if m.MaxRating > m.MinRating {
		if est < m.MinRating {
			est = m.MinRating
		}
		if est > m.MaxRating {
			est = m.MaxRating
		}
	}
	return est
}

// Validate checks that every parameter is finite and that factor vectors
// share one dimension.
func (m *SVD) Validate() error {
	if !finite(m.GlobalMean) {
		return fmt.Errorf("global mean %v is not finite", m.GlobalMean)
	}
	for kind, bias := range map[string]map[int]float64{"user": m.UserBias, "item": m.ItemBias} {
		for id, b := range bias {
			if !finite(b) {
				return fmt.Errorf("%s %d: bias %v is not finite", kind, id, b)
			}
		}
	}

	dim := -1
	check := func(kind string, id int, v []float64) error {
		for f, x := range v {
			if !finite(x) {
				return fmt.Errorf("%s %d: factor %d is %v", kind, id, f, x)
			}
		}
		if dim == -1 {
			dim = len(v)
			return nil
		}
		if len(v) != dim {
			return fmt.Errorf("%s %d: factor length %d, want %d", kind, id, len(v), dim)
		}
		return nil
	}
	for id, v := range m.UserFactors {
		if err := check("user", id, v); err != nil {
			return err
		}
	}
	for id, v := range m.ItemFactors {
		if err := check("item", id, v); err != nil {
			return err
		}
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Load reads a model artifact; ".gob" and ".json" are supported.
func Load(path string) (*SVD, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m SVD
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gob":
		err = gob.NewDecoder(f).Decode(&m)
	case ".json":
		err = json.NewDecoder(f).Decode(&m)
	default:
		return nil, fmt.Errorf("%s: unsupported model format", path)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// Save writes m as a gob artifact.
func Save(path string, m *SVD) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
