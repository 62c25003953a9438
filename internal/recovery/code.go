package recovery

import (
	"regexp"
	"strings"
)

// fenceLanguages maps a file extension to the fence labels models use for it.
var fenceLanguages = map[string][]string{
	"js":   {"javascript", "js"},
	"py":   {"python", "py"},
	"html": {"html"},
	"css":  {"css"},
	"json": {"json"},
}

var genericFencePatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```(?:html|css|javascript|js|python|json)?\n(.*?)```"),
	regexp.MustCompile("(?s)```\n(.*?)```"),
}

// ExtractCode returns the largest fenced block in text. Fences labelled for
// ext are preferred; ext may be empty.
func ExtractCode(text, ext string) (string, bool) {
	var patterns []*regexp.Regexp
	for _, lang := range fenceLanguages[strings.ToLower(strings.TrimPrefix(ext, "."))] {
		patterns = append(patterns, regexp.MustCompile("(?s)```"+regexp.QuoteMeta(lang)+"\n(.*?)```"))
	}
	patterns = append(patterns, genericFencePatterns...)

	for _, re := range patterns {
		matches := re.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		best := matches[0][1]
		for _, m := range matches[1:] {
			if len(m[1]) > len(best) {
				best = m[1]
			}
		}
		return best, true
	}
	return "", false
}

// StripFences removes a wrapping markdown fence, keeping everything between
// the opening line and the last closing fence.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	end := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[1:end], "\n"))
}

// CodeBody extracts the file body from a generation: the largest fenced
// block if any, otherwise the text with wrapping fences removed.
func CodeBody(text, ext string) string {
	if code, ok := ExtractCode(text, ext); ok {
		return strings.TrimSpace(code)
	}
	return StripFences(text)
}
