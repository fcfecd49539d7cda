package services

import (
	"fmt"
	"strings"

	"github.com/openhealth/shared-backend/internal/types"
)

// assistantSystemPrompt frames every reply generation call.
const assistantSystemPrompt = `You are OpenHealth AI, an expert healthcare venture assistant.
You help healthcare entrepreneurs, founders, and innovators explore ideas,
refine business models, and navigate the healthcare landscape.

Key principles:
- Focus on healthcare innovation and patient impact
- Consider regulatory requirements (FDA, HIPAA, etc.)
- Emphasize evidence-based approaches
- Be encouraging but realistic about challenges
- Ask thoughtful follow-up questions
- Suggest next steps and resources`

// extractionSystemPrompt frames every extraction call. Extraction replies
// must be machine-readable, so the prompt forbids prose.
const extractionSystemPrompt = `You extract structured facts about a healthcare venture from a conversation.
Respond with a single JSON object and nothing else. Only include attributes
the conversation explicitly supports; omit anything not mentioned. Never
guess or invent values.`

// meetingIntentSystemPrompt frames meeting-request classification.
const meetingIntentSystemPrompt = `Analyze if the user is requesting a meeting or expressing
interest in scheduling one. Look for explicit requests or implicit interest.
Respond with a single JSON object and nothing else.`

// fallbackReply is returned to the user when reply generation fails.
const fallbackReply = `I apologize, but I'm experiencing some technical difficulties right now.
Let me connect you with a member of our team who can help you with your healthcare venture.
In the meantime, feel free to share more details about your project.`

// buildExtractionPrompt renders the schema's attributes into the instruction
// that accompanies the conversation transcript.
func buildExtractionPrompt(schema *types.ExtractionSchema) string {
	var b strings.Builder
	b.WriteString("Extract the following attributes about the venture being discussed.\n")
	b.WriteString("Return JSON with only these keys:\n\n")
	for _, attr := range schema.Attributes {
		switch attr.Type {
		case types.AttrTypeEnum:
			fmt.Fprintf(&b, "- %q: one of %s", attr.Name, strings.Join(quoteAll(attr.Enum), ", "))
		case types.AttrTypeInteger:
			fmt.Fprintf(&b, "- %q: integer", attr.Name)
		case types.AttrTypeObject:
			fmt.Fprintf(&b, "- %q: JSON object", attr.Name)
		default:
			fmt.Fprintf(&b, "- %q: string", attr.Name)
		}
		if attr.Description != "" {
			fmt.Fprintf(&b, " (%s)", attr.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nOmit any attribute the conversation does not mention.")
	return b.String()
}

// buildReplyContext renders what is already known about the venture so the
// assistant does not re-ask answered questions.
func buildReplyContext(user *types.User, venture *types.Venture) string {
	var parts []string
	if user != nil {
		parts = append(parts, fmt.Sprintf("User context:\n- Name: %s\n- Company: %s", orUnknown(user.Name), orUnknown(user.Company)))
	}
	if venture != nil && len(venture.ExtractedData) > 0 {
		var b strings.Builder
		b.WriteString("What we know about the venture so far:\n")
		for key, value := range venture.ExtractedData {
			fmt.Fprintf(&b, "- %s: %v\n", key, value)
		}
		if venture.Score != nil {
			fmt.Fprintf(&b, "- current screening score: %d/100\n", *venture.Score)
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	return strings.Join(parts, "\n\n")
}

func buildMeetingIntentPrompt(message string) string {
	return fmt.Sprintf(`Analyze this message to determine if the user wants to schedule a meeting.
Return JSON format:
{
    "requested": true/false,
    "urgency": "low|medium|high",
    "preferred_times": ["time expressions found"],
    "meeting_type": "discovery|pitch|follow_up",
    "duration": estimated_minutes,
    "agenda_items": ["item1", "item2"]
}

Message: %q`, message)
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
