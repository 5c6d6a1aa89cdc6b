package translation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var batchLinePattern = regexp.MustCompile(`^\s*\[(\d+)\]\s*(.*\S)\s*$`)

// BuildBatchPrompt renders a window of units as one numbered prompt. The
// provider is asked to echo each line with its bracketed tag so the reply
// can be matched back to the window regardless of line order.
func BuildBatchPrompt(texts []string, sourceLang, targetLang string) string {
	target := targetLanguageLabel(targetLang).english

	var b strings.Builder
	if normalizeLangCode(sourceLang) != "" {
		source := targetLanguageLabel(sourceLang).english
		fmt.Fprintf(&b, "Translate the following numbered sentences from %s into %s.\n", source, target)
	} else {
		fmt.Fprintf(&b, "Translate the following numbered sentences into %s.\n", target)
	}
	b.WriteString("Reply with one line per sentence, keeping the [n] tag of the source line. Output only the translations, no explanations.\n\n")
	for i, text := range texts {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, text)
	}
	return b.String()
}

// ParseBatchReply extracts per-unit translations from a tagged multi-line
// reply. Keys are zero-based window indexes. Lines without a valid bracketed
// tag, or whose tag falls outside 1..count, are dropped; the corresponding
// units simply stay untranslated for this attempt.
func ParseBatchReply(reply string, count int) map[int]string {
	results := make(map[int]string)
	if count <= 0 {
		return results
	}

	for _, line := range strings.Split(reply, "\n") {
		match := batchLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		tag, err := strconv.Atoi(match[1])
		if err != nil || tag < 1 || tag > count {
			continue
		}
		text := strings.TrimSpace(match[2])
		if text == "" {
			continue
		}
		results[tag-1] = text
	}
	return results
}
