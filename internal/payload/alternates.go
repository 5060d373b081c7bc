package payload

import (
	"encoding/json"
	"regexp"
	"strings"
)

// embeddedURLKeys are JSON fields observed to carry the real artifact
// URL when a download endpoint answers with a JSON envelope instead of
// the file.
var embeddedURLKeys = []string{"download_url", "url", "href", "location"}

var hrefPattern = regexp.MustCompile(`href="(https?://[^"]+)"`)

// ExtractEmbeddedURL looks inside a text payload for a literal download
// URL. JSON bodies are checked for known fields, HTML bodies for the
// first absolute href. The second return is false when nothing usable
// was found.
func ExtractEmbeddedURL(data []byte) (string, bool) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return "", false
	}
	if trimmed[0] == '{' {
		var fields map[string]any
		if err := json.Unmarshal([]byte(trimmed), &fields); err == nil {
			for _, key := range embeddedURLKeys {
				if v, ok := fields[key].(string); ok && strings.HasPrefix(v, "http") {
					return v, true
				}
			}
		}
		return "", false
	}
	if m := hrefPattern.FindStringSubmatch(trimmed); m != nil {
		return m[1], true
	}
	return "", false
}

// AlternateCandidates derives retry URLs from a submission URL by
// applying each configured suffix. Suffixes beginning with "?" become
// query additions; all others extend the path, keeping any existing
// query string after the new segment. Candidates equal to the original
// or already in tried are dropped. The result preserves suffix order
// so the ladder is deterministic.
func AlternateCandidates(original string, suffixes []string, tried func(string) bool) []string {
	base := strings.TrimRight(original, "/")
	path, query, hasQuery := strings.Cut(base, "?")
	path = strings.TrimRight(path, "/")
	candidates := make([]string, 0, len(suffixes))
	for _, suffix := range suffixes {
		var candidate string
		switch {
		case suffix == "":
			continue
		case strings.HasPrefix(suffix, "?"):
			if hasQuery {
				candidate = base + "&" + suffix[1:]
			} else {
				candidate = base + suffix
			}
		default:
			candidate = path + suffix
			if hasQuery {
				candidate += "?" + query
			}
		}
		if candidate == original || tried(candidate) {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}

// NextAlternate returns the first untried candidate, or "" when the
// ladder is exhausted.
func NextAlternate(original string, suffixes []string, tried func(string) bool) string {
	candidates := AlternateCandidates(original, suffixes, tried)
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
}
