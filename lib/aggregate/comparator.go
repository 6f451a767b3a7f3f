package aggregate

import "sort"

// Comparator abstracts two-party secure comparison. A cryptographically
// sound instance needs a dedicated protocol such as garbled circuits or
// oblivious transfer, which this module does not provide: the earlier
// noise-and-correct scheme leaked the comparison inputs and has been
// dropped rather than reproduced. The interface marks the seam where a
// real protocol can be plugged in.
type Comparator interface {
	// Less reports whether a sorts before b.
	Less(a, b float64) (bool, error)
}

// ClearComparator compares plaintext values. It offers no privacy at all
// and exists so that callers state explicitly that they accept ordering
// in the clear, as Percentile does.
type ClearComparator struct{}

// Less implements Comparator on clear values.
func (ClearComparator) Less(a, b float64) (bool, error) {
	return a < b, nil
}

// sortWith orders the values in place through the comparator. When a
// comparison fails the resulting order is meaningless, so the first
// failure is reported to the caller.
func sortWith(values []float64, cmp Comparator) error {
	var sortErr error
	sort.SliceStable(values, func(i, j int) bool {
		less, err := cmp.Less(values[i], values[j])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return less
	})
	return sortErr
}
