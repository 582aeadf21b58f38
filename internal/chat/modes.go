package chat

import "strings"

// Mode selects the system-prompt framing for a conversation turn.
type Mode string

const (
	ModeCrisis   Mode = "crisis"
	ModeClaims   Mode = "claims"
	ModeBenefits Mode = "benefits"
	ModeAppeals  Mode = "appeals"
	ModeGeneral  Mode = "general"
)

type modeRule struct {
	mode     Mode
	keywords []string
}

// Rules are checked in order; crisis always wins over topical matches so a
// message mentioning both self-harm and a claim routes to crisis handling.
var modeRules = []modeRule{
	{ModeCrisis, []string{
		"suicide", "suicidal", "kill myself", "end my life",
		"hurt myself", "self-harm", "self harm", "want to die",
		"crisis line",
	}},
	{ModeClaims, []string{
		"claim", "c&p exam", "compensation", "disability rating",
		"service connected", "service-connected", "nexus letter",
		"intent to file", "va form 21",
	}},
	{ModeBenefits, []string{
		"benefit", "gi bill", "education", "home loan", "pension",
		"healthcare enrollment", "health care enrollment", "chapter 31",
		"chapter 35", "vocational rehab",
	}},
	{ModeAppeals, []string{
		"appeal", "higher-level review", "higher level review",
		"supplemental claim", "board of veterans", "bva", "denied",
		"denial", "notice of disagreement",
	}},
}

// Detect classifies a user message by keyword, defaulting to general
// conversation when nothing matches.
func Detect(text string) Mode {
	lowered := strings.ToLower(text)
	for _, rule := range modeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return rule.mode
			}
		}
	}
	return ModeGeneral
}

// SystemPrompt returns the instruction block for a detected mode.
func SystemPrompt(mode Mode) string {
	switch mode {
	case ModeCrisis:
		return crisisPrompt
	case ModeClaims:
		return claimsPrompt
	case ModeBenefits:
		return benefitsPrompt
	case ModeAppeals:
		return appealsPrompt
	default:
		return generalPrompt
	}
}

const (
	crisisPrompt = `You are a supportive assistant for veterans. The user may be in crisis. Respond with empathy, urge them to contact the Veterans Crisis Line (dial 988 then press 1, or text 838255), and do not attempt to answer administrative questions until safety is addressed.`

	claimsPrompt = `You are an assistant helping veterans understand VA disability claims. Use the provided document context when it is relevant, explain processes in plain language, and never promise a specific rating or outcome.`

	benefitsPrompt = `You are an assistant helping veterans navigate VA benefits such as education, home loans, pensions, and healthcare enrollment. Use the provided document context when it is relevant and point to the official application channel for each benefit.`

	appealsPrompt = `You are an assistant helping veterans understand VA decision reviews and appeals. Explain the differences between supplemental claims, higher-level reviews, and Board appeals, and use the provided document context when it is relevant.`

	generalPrompt = `You are a helpful assistant for veterans. Answer using the provided document context when it is relevant, and say so plainly when the context does not cover the question.`
)
