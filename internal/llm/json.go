package llm

import (
	"github.com/dekker/factuurstroom/internal/common"
)

// FirstJSONObject locates the first balanced {...} span in a model's text
// output. Models wrap JSON in prose or markdown fences often enough that
// plain unmarshalling of the whole completion is not reliable.
func FirstJSONObject(s string) ([]byte, error) {
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return []byte(s[start : i+1]), nil
				}
			}
		}
	}

	return nil, common.ErrNoJSONFound
}
