// Package prompt renders the system prompt for each coaching turn and
// holds the canned fallbacks used when the model misbehaves.
package prompt

import (
	"fmt"
	"strings"

	"github.com/careerpilot/backend/internal/models"
)

const (
	// HistoryWindow is how many trailing chat turns are forwarded to the
	// model per call. Older turns are invisible for that turn.
	HistoryWindow = 15

	// MemoryWindow is how many recent memories are rendered into context.
	MemoryWindow = 15

	// NoMemoriesPlaceholder replaces the memory section when the user has
	// no stored memories yet.
	NoMemoriesPlaceholder = "No memories recorded yet."

	// FallbackReply is shown when the model returns an empty reply.
	FallbackReply = "Sorry, I had trouble responding. Please try again."
)

const coachPreamble = `You are a career-growth coach. Be concrete and encouraging.

You may embed at most one memory block and at most one action block in a reply.
To record a durable fact about the user, emit:
` + "```" + `[MEMORY]
{"type": "BLOCKER|INSIGHT|ACHIEVEMENT|PREFERENCE", "content": "...", "category": "...", "relevance": 1-5}
` + "```" + `
To propose a roadmap action that the user must approve, emit:
` + "```" + `[ACTION]
{"type": "ADD_TASK", "data": {"title": "...", "description": "...", "difficulty": "Easy|Medium|Hard", "estimatedMinutes": 30}}
` + "```" + `
or:
` + "```" + `[ACTION]
{"type": "COMPLETE_MILESTONE", "data": {"title": "..."}}
` + "```"

// Context is everything fetched about the user for one turn.
type Context struct {
	Profile  *models.Profile
	Roadmap  *models.Roadmap
	Memories []models.Memory
}

// System renders the full system prompt for a chat turn.
func System(c Context) string {
	var b strings.Builder
	b.WriteString(coachPreamble)

	b.WriteString("\n\n## User profile\n")
	if c.Profile == nil {
		b.WriteString("Not onboarded yet.\n")
	} else {
		fmt.Fprintf(&b, "Current role: %s\nTarget role: %s\nExperience: %s\n",
			c.Profile.CurrentRole, c.Profile.TargetRole, c.Profile.ExperienceLevel)
		if len(c.Profile.Skills) > 0 {
			fmt.Fprintf(&b, "Skills: %s\n", strings.Join(c.Profile.Skills, ", "))
		}
		fmt.Fprintf(&b, "XP: %d, streak: %d days\n", c.Profile.XP, c.Profile.Streak)
	}

	b.WriteString("\n## Active roadmap\n")
	if c.Roadmap == nil {
		b.WriteString("No roadmap yet.\n")
	} else {
		fmt.Fprintf(&b, "%s — %s\n", c.Roadmap.Title, c.Roadmap.Description)
		for _, m := range c.Roadmap.Milestones {
			fmt.Fprintf(&b, "%d. [%s] %s\n", m.SortOrder, m.Status, m.Title)
		}
	}

	b.WriteString("\n## Memories\n")
	if len(c.Memories) == 0 {
		b.WriteString(NoMemoriesPlaceholder + "\n")
	} else {
		for _, m := range c.Memories {
			fmt.Fprintf(&b, "- (%s/%s, relevance %d) %s\n", m.Type, m.Category, m.Relevance, m.Content)
		}
	}

	return b.String()
}

// ConcludeSystem asks the model to distill a finished conversation into a
// JSON array of memory payloads plus a short summary line.
const ConcludeSystem = `The coaching session is over. From the conversation, extract the durable facts worth remembering.
Reply with ONLY a JSON object of the form:
{"summary": "one sentence", "memories": [{"type": "BLOCKER|INSIGHT|ACHIEVEMENT|PREFERENCE", "content": "...", "category": "...", "relevance": 1-5}]}`

// RoadmapSystem asks the model for a fresh roadmap as strict JSON.
const RoadmapSystem = `Design a career roadmap for the user described below.
Reply with ONLY a JSON object of the form:
{"title": "...", "description": "...", "milestones": [{"title": "...", "description": "..."}], "tasks": [{"title": "...", "description": "...", "difficulty": "Easy|Medium|Hard", "estimatedMinutes": 30}]}`
