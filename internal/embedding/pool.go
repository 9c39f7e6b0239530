package embedding

// meanPool averages the token vectors in hidden (seqLen x dims, row-major) whose attention
// mask entry is set. All-zero masks yield a zero vector.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	vec := make([]float32, dims)
	var count float32
	for tok, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[tok*dims : (tok+1)*dims]
		for d, v := range row {
			vec[d] += v
		}
		count++
	}
	if count == 0 {
		return vec
	}
	for d := range vec {
		vec[d] /= count
	}
	return vec
}
