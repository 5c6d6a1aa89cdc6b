package translation

import (
	"strings"
	"testing"
)

func TestBuildBatchPrompt(t *testing.T) {
	t.Parallel()

	prompt := BuildBatchPrompt([]string{"Hello.", "Goodbye."}, "en", "zh")

	if !strings.Contains(prompt, "from English into Chinese") {
		t.Fatalf("prompt missing language pair: %q", prompt)
	}
	if !strings.Contains(prompt, "[1] Hello.\n") || !strings.Contains(prompt, "[2] Goodbye.\n") {
		t.Fatalf("prompt missing numbered lines: %q", prompt)
	}
}

func TestBuildBatchPromptWithoutSourceLang(t *testing.T) {
	t.Parallel()

	prompt := BuildBatchPrompt([]string{"Hello."}, "", "zh")
	if !strings.Contains(prompt, "into Chinese") {
		t.Fatalf("prompt missing target language: %q", prompt)
	}
	if strings.Contains(prompt, "from ") {
		t.Fatalf("prompt must not name an unknown source language: %q", prompt)
	}
}

func TestParseBatchReply(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		reply string
		count int
		want  map[int]string
	}{
		{
			name:  "clean reply",
			reply: "[1] 你好。\n[2] 再见。\n",
			count: 2,
			want:  map[int]string{0: "你好。", 1: "再见。"},
		},
		{
			name:  "out of order",
			reply: "[2] 再见。\n[1] 你好。",
			count: 2,
			want:  map[int]string{0: "你好。", 1: "再见。"},
		},
		{
			name:  "leading whitespace and trailing spaces",
			reply: "  [1]  你好。  \n",
			count: 1,
			want:  map[int]string{0: "你好。"},
		},
		{
			name:  "chatter lines dropped",
			reply: "Here are your translations:\n[1] 你好。\nHope that helps!",
			count: 1,
			want:  map[int]string{0: "你好。"},
		},
		{
			name:  "out of range tags dropped",
			reply: "[0] 无\n[1] 你好。\n[3] 多余",
			count: 2,
			want:  map[int]string{0: "你好。"},
		},
		{
			name:  "blank translation dropped",
			reply: "[1]   \n[2] 再见。",
			count: 2,
			want:  map[int]string{1: "再见。"},
		},
		{
			name:  "missing unit stays absent",
			reply: "[1] 你好。",
			count: 3,
			want:  map[int]string{0: "你好。"},
		},
		{
			name:  "empty reply",
			reply: "",
			count: 2,
			want:  map[int]string{},
		},
		{
			name:  "zero count",
			reply: "[1] 你好。",
			count: 0,
			want:  map[int]string{},
		},
		{
			name:  "duplicate tag keeps last",
			reply: "[1] 初译\n[1] 复译",
			count: 1,
			want:  map[int]string{0: "复译"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseBatchReply(tc.reply, tc.count)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for idx, text := range tc.want {
				if got[idx] != text {
					t.Fatalf("index %d: got %q, want %q", idx, got[idx], text)
				}
			}
		})
	}
}

func TestPromptReplyRoundTrip(t *testing.T) {
	t.Parallel()

	texts := []string{"First.", "Second.", "Third."}
	prompt := BuildBatchPrompt(texts, "en", "zh")

	// A provider that echoes the numbered lines back verbatim.
	var echo []string
	for _, line := range strings.Split(prompt, "\n") {
		if batchLinePattern.MatchString(line) {
			echo = append(echo, line)
		}
	}
	parsed := ParseBatchReply(strings.Join(echo, "\n"), len(texts))
	if len(parsed) != len(texts) {
		t.Fatalf("expected every unit parsed, got %v", parsed)
	}
	for i, text := range texts {
		if parsed[i] != text {
			t.Fatalf("index %d: got %q, want %q", i, parsed[i], text)
		}
	}
}
