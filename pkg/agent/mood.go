package agent

// Mood is the lightweight sentiment classification the Emotional agent
// runs before prompting, used to tag confidence and suggest actions.
type Mood string

const (
	MoodNeutral    Mood = "neutral"
	MoodFrustrated Mood = "frustrated"
	MoodSad        Mood = "sad"
	MoodStressed   Mood = "stressed"
	MoodHappy      Mood = "happy"
	MoodExcited    Mood = "excited"
)

var (
	frustratedWords = []string{"frustrated", "annoyed", "stuck", "damn", "argh", "ugh"}
	sadWords        = []string{"sad", "down", "depressed", "lonely", "tired"}
	stressedWords   = []string{"stressed", "overwhelmed", "anxious", "worried", "deadline"}
	happyWords      = []string{"great", "awesome", "excited", "happy", "amazing", "love"}
)

// DetectMood classifies text with keyword heuristics. Order matters:
// negative states are checked before positive ones so mixed messages
// err toward support.
func DetectMood(text string) Mood {
	switch {
	case containsAny(text, frustratedWords):
		return MoodFrustrated
	case containsAny(text, sadWords):
		return MoodSad
	case containsAny(text, stressedWords):
		return MoodStressed
	case containsAny(text, []string{"excited"}):
		return MoodExcited
	case containsAny(text, happyWords):
		return MoodHappy
	default:
		return MoodNeutral
	}
}
