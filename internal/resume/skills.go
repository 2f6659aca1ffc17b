package resume

import "strings"

// BioSeparator joins appended strengths to an existing bio.
const BioSeparator = "\n"

// MergeSkills returns existing followed by every extracted skill not already
// present. Comparison ignores case and surrounding space; the first spelling
// wins.
func MergeSkills(existing, extracted []string) []string {
	out := make([]string, 0, len(existing)+len(extracted))
	seen := make(map[string]struct{}, len(existing)+len(extracted))

	add := func(skill string) {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			return
		}
		key := strings.ToLower(skill)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, skill)
	}

	for _, s := range existing {
		add(s)
	}
	for _, s := range extracted {
		add(s)
	}
	return out
}

// StrengthsToBio appends strengths to bio, one per line. Empty strengths are
// skipped and an empty bio is not prefixed with a separator.
func StrengthsToBio(bio string, strengths []string) string {
	parts := make([]string, 0, len(strengths)+1)
	if trimmed := strings.TrimSpace(bio); trimmed != "" {
		parts = append(parts, trimmed)
	}
	for _, s := range strengths {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, BioSeparator)
}
