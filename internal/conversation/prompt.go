package conversation

import (
	"fmt"
	"strings"
)

const (
	defaultLanguageCode = "en"
	defaultCEFRLevel    = "B1"
)

// greetingInstruction is what the model is asked on conversation start,
// before the learner has said anything.
const greetingInstruction = "Greet the learner warmly in the target language, " +
	"introduce yourself as their conversation partner and ask one simple " +
	"opening question that fits their level."

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"pl": "Polish",
	"ru": "Russian",
	"uk": "Ukrainian",
	"tr": "Turkish",
	"ar": "Arabic",
	"hi": "Hindi",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
}

// BuildSystemPrompt derives the tutor system prompt from the target language
// and CEFR level. Unknown inputs fall back to English / B1, so the result is
// never empty.
func BuildSystemPrompt(language, cefrLevel string) string {
	var b strings.Builder

	b.WriteString("You are a friendly, patient language tutor having a spoken conversation with a learner. ")
	b.WriteString("Keep replies short and conversational, as they will be read aloud. ")
	b.WriteString("Gently correct mistakes by restating the learner's idea correctly, then continue the conversation with a question.\n\n")
	b.WriteString(languageInstruction(language))
	b.WriteString("\n")
	b.WriteString(levelInstruction(cefrLevel))

	return b.String()
}

func languageInstruction(code string) string {
	name, ok := languageNames[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		name = languageNames[defaultLanguageCode]
	}
	return fmt.Sprintf("Respond only in %s, no matter what language the learner uses.", name)
}

func levelInstruction(level string) string {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "A1":
		return "The learner is a complete beginner (A1): use only the most common words, very short sentences and the present tense."
	case "A2":
		return "The learner is an elementary student (A2): use common everyday vocabulary and short, simple sentences."
	case "B1":
		return "The learner is intermediate (B1): use everyday vocabulary and straightforward sentence structure."
	case "B2":
		return "The learner is upper-intermediate (B2): speak naturally, with occasional idioms explained in passing."
	case "C1":
		return "The learner is advanced (C1): speak naturally and precisely, idioms and nuance are welcome."
	case "C2":
		return "The learner is near-native (C2): speak exactly as you would with a native speaker."
	default:
		return levelInstruction(defaultCEFRLevel)
	}
}
