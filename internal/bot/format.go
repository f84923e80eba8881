package bot

import (
	"fmt"
	"strings"

	"github.com/lorebot/lore/internal/query"
)

// maxListedSources bounds the citation list under an answer.
const maxListedSources = 3

// FormatAnswer renders a query result as a chat message: the answer text
// followed by a separated "Sources" section listing at most the top three
// sources. Web URLs render as links, everything else as a code-styled
// path. Pure function; safe on any well-formed result.
func FormatAnswer(res *query.Result) string {
	if res == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(res.Answer))

	if len(res.Sources) == 0 {
		return b.String()
	}

	b.WriteString("\n\n**Sources**\n")
	for i, src := range res.Sources {
		if i == maxListedSources {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, formatSource(src))
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatSource(src query.Source) string {
	if isWebURL(src.SourcePath) {
		return fmt.Sprintf("[%s](%s)", src.SourcePath, src.SourcePath)
	}
	return "`" + src.SourcePath + "`"
}

func isWebURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
