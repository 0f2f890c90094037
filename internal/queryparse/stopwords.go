package queryparse

// defaultStopwords returns the stop words stripped from lexical term lists.
// Deliberately small: over-aggressive stripping hurts exact-phrase overlap.
func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "or", "so", "what", "which",
		"about", "how", "does", "did", "do",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
