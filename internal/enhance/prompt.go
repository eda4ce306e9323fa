package enhance

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a helpful language assistant. Your job is to improve the clarity, grammar, and tone of short texts.
Instructions:
- First, correct any spelling or grammatical issues.
- Then, rewrite the sentence using the specified tone.
- Do not add or remove meaning from the original text.
- Only respond with the corrected sentence, no explanations.`

const grammarSystemPrompt = `You are a grammar correction assistant.
Instructions:
- Correct spelling, grammar and punctuation.
- Keep the wording and meaning as close to the original as possible.
- Only respond with the corrected sentence, no explanations.`

func systemPromptFor(m mode) string {
	if m == modeGrammar {
		return grammarSystemPrompt
	}
	return systemPrompt
}

// BuildUserPrompt carries the tone instruction and the text. Gesture captions
// arrive as bare label sequences ("your name what"), so the text is quoted.
func BuildUserPrompt(text string, tone Tone) string {
	instruction, ok := toneInstructions[tone]
	if !ok {
		instruction = toneInstructions[ToneFriendly]
	}
	return fmt.Sprintf("%s\n\nOriginal text: %q\nPlease correct grammar and make it %s.",
		instruction, text, strings.ToLower(string(tone)))
}

func buildGrammarPrompt(text string) string {
	return fmt.Sprintf("Correct grammar and improve clarity:\n%s", text)
}

// cleanOutput trims whitespace, surrounding quotes and markdown code fences.
func cleanOutput(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.Index(s, "\n"); i != -1 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
