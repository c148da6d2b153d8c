package profile

import (
	"fmt"
	"strings"

	"github.com/oggyb/tubematch/internal/activity"
	"github.com/oggyb/tubematch/internal/db"
)

// Upper bounds on what is sent to the model per category.
const (
	promptSubscriptions = 200
	promptVideos        = 200
)

const profileSystemPrompt = `You build dating profiles from a person's YouTube and email activity.
Respond with a single JSON object with exactly these string fields:
"core_traits", "interests", "career_interests", "ideal_date", "ideal_partner", "summary".
Write in the second person, warm and specific, each field at most a few sentences.
Use concrete channel names and topics as evidence. Never invent facts that the activity does not support.`

const chatSystemPrompt = `You answer questions about a person using only the profile below.
Be specific and refer to the evidence in the profile. If the profile does not contain the answer,
say so and suggest what information would be needed.`

const compatibilitySystemPrompt = `You are a dating compatibility expert. Respond with ONLY a JSON object:
{"score": 0-100, "reasons": ["..."], "personality_match": 0-100, "interests_match": 0-100, "dating_goals_match": 0-100}
Reasons are short, specific compatibility factors.`

func activityPrompt(s activity.Snapshot) string {
	var b strings.Builder

	b.WriteString("YouTube subscriptions:\n")
	for i, ch := range s.Subscriptions {
		if i == promptSubscriptions {
			fmt.Fprintf(&b, "... and %d more\n", len(s.Subscriptions)-i)
			break
		}
		fmt.Fprintf(&b, "- %s\n", ch)
	}

	b.WriteString("\nLiked videos:\n")
	for i, v := range s.LikedVideos {
		if i == promptVideos {
			fmt.Fprintf(&b, "... and %d more\n", len(s.LikedVideos)-i)
			break
		}
		fmt.Fprintf(&b, "- %s (%s)\n", v.Title, v.Channel)
	}

	if len(s.SentEmails) > 0 {
		b.WriteString("\nRecently sent emails:\n")
		for _, e := range s.SentEmails {
			fmt.Fprintf(&b, "- Subject: %s | %s\n", e.Subject, e.Snippet)
		}
	}
	return b.String()
}

func profilePrompt(p db.Profile) string {
	return fmt.Sprintf(`Core traits: %s
Interests: %s
Career interests: %s
Ideal date: %s
Ideal partner: %s
Summary: %s
Subscriptions: %s`,
		orUnknown(p.CoreTraits),
		orUnknown(p.Interests),
		orUnknown(p.CareerInterests),
		orUnknown(p.IdealDate),
		orUnknown(p.IdealPartner),
		orUnknown(p.Summary),
		orUnknown(strings.Join(first(p.Subscriptions, 50), ", ")),
	)
}

func compatibilityPrompt(me, them db.Profile) string {
	return fmt.Sprintf("Person 1:\n%s\n\nPerson 2:\n%s", profilePrompt(me), profilePrompt(them))
}

// embeddingText is what the preference vector is computed from.
func embeddingText(g generated) string {
	return strings.TrimSpace(string(g.Summary) + "\n" + string(g.Interests))
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not provided"
	}
	return s
}

func first(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
