package embedding

const (
	// PoolingMean averages the token states of "last_hidden_state" over the attention mask.
	PoolingMean = "mean"
	// PoolingNone reads a model-pooled "output" tensor of shape [1, dimensions].
	PoolingNone = "none"
)

// meanPool averages the rows of hidden ([tokens x dims], row-major) whose mask is set.
// A mask with no set positions yields a zero vector.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	sums := make([]float64, dims)
	var n float64
	for t, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[t*dims : (t+1)*dims]
		for j, x := range row {
			sums[j] += float64(x)
		}
		n++
	}
	if n == 0 {
		return out
	}
	for j := range sums {
		out[j] = float32(sums[j] / n)
	}
	return out
}
