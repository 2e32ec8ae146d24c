package dispatch

// Chunk partitions recipients into contiguous sub-lists of the given size;
// the last chunk holds the remainder. Order is preserved within and across
// chunks and the sub-lists share the original backing array, so no addresses
// are copied. Returns nil for a non-positive size.
func Chunk(recipients []string, size int) [][]string {
	if size <= 0 {
		return nil
	}

	chunks := make([][]string, 0, (len(recipients)+size-1)/size)
	for start := 0; start < len(recipients); start += size {
		end := start + size
		if end > len(recipients) {
			end = len(recipients)
		}
		chunks = append(chunks, recipients[start:end])
	}
	return chunks
}
