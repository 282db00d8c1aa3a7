package chunker

// Windows splits text into windows of size characters whose starts advance by
// size-overlap. The stride is clamped to at least one so the loop always
// terminates. A window starts at every stride position below the text length,
// so the trailing windows may be shorter than size.
func Windows(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	stride := size - overlap
	if stride < 1 {
		stride = 1
	}

	var out []string
	for start := 0; start < len(runes); start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
