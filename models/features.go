package models

import "sort"

// FeatureVector maps feature names to values in [0, 1]. Its canonical order
// is ascending by name; classifiers consume Values in that order.
type FeatureVector map[string]float64

// Names returns the feature names in canonical order.
func (fv FeatureVector) Names() []string {
	names := make([]string, 0, len(fv))
	for name := range fv {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values returns the feature values in canonical order.
func (fv FeatureVector) Values() []float64 {
	names := fv.Names()
	values := make([]float64, len(names))
	for i, name := range names {
		values[i] = fv[name]
	}
	return values
}
