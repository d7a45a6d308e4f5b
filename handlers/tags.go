package handlers

import "strings"

const tagSeparator = ", "

// splitTags turns the comma-joined tags field into a list. An empty field
// yields an empty list.
func splitTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, tagSeparator)
}

// distinctTags flattens the tag lists, keeps the first occurrence of every
// tag and stops after limit tags.
func distinctTags(lists [][]string, limit int) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, limit)
	for _, tags := range lists {
		for _, tag := range tags {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			out = append(out, tag)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}
