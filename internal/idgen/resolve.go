package idgen

import "strings"

// Resolve finds the single candidate id matching query against the known
// ids: an exact match, else the unique id with query as a suffix, prefix, or
// internal substring. Returns the matched id, or the list of rivals when the
// query is ambiguous (len(rivals) > 1) or unmatched (rivals is empty).
func Resolve(query string, ids []string) (match string, rivals []string) {
	for _, id := range ids {
		if id == query {
			return id, nil
		}
	}

	seen := make(map[string]bool, len(ids))
	var candidates []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		if strings.Contains(id, query) {
			seen[id] = true
			candidates = append(candidates, id)
		}
	}

	if len(candidates) == 1 {
		return candidates[0], nil
	}
	return "", candidates
}
