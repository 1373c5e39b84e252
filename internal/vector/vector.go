package vector

import (
	"fmt"
	"strconv"
	"strings"
)

// ToLiteral renders a vector in pgvector's text form, e.g. [0.1,0.2].
func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, fmt.Sprintf("%f", x))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// ParseLiteral reads pgvector's text form back into a float32 slice.
func ParseLiteral(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("malformed vector literal %q", truncateForErr(s))
	}
	body := s[1 : len(s)-1]
	if strings.TrimSpace(body) == "" {
		return []float32{}, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("parse vector component %q: %w", strings.TrimSpace(p), err)
		}
		out = append(out, float32(f))
	}
	return out, nil
}

func truncateForErr(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
