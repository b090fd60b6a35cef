package fetch

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// SanitizeFilename strips directory components and characters that could
// escape the staging directory, leaving a flat safe name.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")

	var builder strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '.', r == '-', r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}

	cleaned := strings.Trim(builder.String(), "._")
	if cleaned == "" {
		return "upload"
	}
	return cleaned
}

// StagedName prefixes a sanitized filename with a nanosecond timestamp so
// concurrent submissions of the same name never collide.
func StagedName(name string) string {
	return fmt.Sprintf("%d_%s", time.Now().UnixNano(), SanitizeFilename(name))
}
