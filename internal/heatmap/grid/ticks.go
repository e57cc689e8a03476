package grid

import "math"

// TickIndices picks up to count evenly spaced positions out of n labels,
// always keeping the first and last.
func TickIndices(n, count int) []int {
	if n <= 0 || count <= 0 {
		return nil
	}
	if n <= count {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	if count == 1 {
		return []int{0}
	}

	out := make([]int, 0, count)
	step := float64(n-1) / float64(count-1)
	for k := 0; k < count; k++ {
		idx := int(math.Round(float64(k) * step))
		if len(out) > 0 && out[len(out)-1] == idx {
			continue
		}
		out = append(out, idx)
	}
	return out
}
