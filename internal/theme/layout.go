package theme

// DedupeLayoutPriorities returns a copy of values without empty strings or
// duplicates, keeping the first occurrence of each.
func DedupeLayoutPriorities(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ReorderLayoutPriorities moves promote to the front of current, keeping the
// relative order of everything else. promote is inserted when absent.
// The input slice is never modified.
func ReorderLayoutPriorities(current []string, promote string) []string {
	if promote == "" {
		return DedupeLayoutPriorities(current)
	}
	out := make([]string, 0, len(current)+1)
	out = append(out, promote)
	out = append(out, current...)
	return DedupeLayoutPriorities(out)
}
