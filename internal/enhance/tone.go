package enhance

import "strings"

// Tone selects the register the enhanced text is rewritten in.
type Tone string

const (
	ToneFriendly     Tone = "FRIENDLY"
	ToneProfessional Tone = "PROFESSIONAL"
	ToneCasual       Tone = "CASUAL"
	TonePersuasive   Tone = "PERSUASIVE"
)

var toneInstructions = map[Tone]string{
	ToneFriendly:     "Make this sound friendly and approachable: ",
	ToneProfessional: "Make this sound formal and professional: ",
	ToneCasual:       "Make this sound casual and conversational: ",
	TonePersuasive:   "Make this more persuasive and compelling: ",
}

// LookupTone matches name case-insensitively.
func LookupTone(name string) (Tone, bool) {
	t := Tone(strings.ToUpper(strings.TrimSpace(name)))
	_, ok := toneInstructions[t]
	return t, ok
}

// ParseTone returns the tone named by name, or def when name is empty or unknown.
func ParseTone(name string, def Tone) Tone {
	if t, ok := LookupTone(name); ok {
		return t
	}
	return def
}

func ToneNames() []string {
	return []string{string(ToneFriendly), string(ToneProfessional), string(ToneCasual), string(TonePersuasive)}
}
