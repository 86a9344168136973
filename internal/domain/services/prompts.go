package services

import (
	"fmt"
	"strings"
)

// extractionSystemPrompt is the system message for fact extraction. It
// front-loads the rules the model most often gets wrong: user requests,
// Q&A merging, perspective, and relative-date resolution.
const extractionSystemPrompt = "Extract ALL meaningful content. " +
	"NEVER MISS USER REQUESTS - if the user asks the assistant to do something ('write...', 'create...', 'help me...'), extract BOTH the request AND the response as separate assistant facts. " +
	"COMBINE simple informational Q&A into one fact. " +
	"Assistant facts: use 'I' for assistant actions ('I recommended'), use 'user' or their name for user actions ('User requested', 'Marcus said'). " +
	"CONVERT RELATIVE DATES TO SPECIFIC DATES ('last week' becomes 'around Aug 16', NOT 'in August'). " +
	"factual_core = WHAT was said, not THAT something was said. " +
	"fact_kind is one of 'conversation', 'event', 'other'; only 'event' gets occurred_start/occurred_end. " +
	"Optional fields ('entities', 'causal_relations', 'occurred_start', 'occurred_end', 'emotional_significance', 'reasoning_motivation', 'preferences_opinions', 'sensory_details', 'observations') should only be included when they have meaningful values."

// buildExtractionPrompt assembles the per-chunk user prompt: the output
// schema, the context and agent name, the fact_type classification rule,
// and the opinion/non-opinion mode selector.
func buildExtractionPrompt(chunk, contextText, agentName string, extractOpinions bool) string {
	var b strings.Builder

	b.WriteString("You are extracting comprehensive, narrative facts from conversations or documents for an AI memory system.\n\n")

	if extractOpinions {
		b.WriteString("Extract ONLY 'opinion' type facts (formed opinions, beliefs, and perspectives). DO NOT extract 'world' or 'assistant' facts.\n\n")
	} else {
		b.WriteString("Extract ONLY 'world' and 'assistant' type facts. DO NOT extract opinions - those are extracted separately.\n\n")
	}

	b.WriteString("## CONTEXT INFORMATION\n")
	if contextText != "" {
		fmt.Fprintf(&b, "- Context: %s\n", contextText)
	} else {
		b.WriteString("- Context: no additional context provided\n")
	}
	if agentName != "" {
		fmt.Fprintf(&b, "- Your name: %s\n", agentName)
	}
	b.WriteString("\n")

	b.WriteString(`## OUTPUT SCHEMA

Respond with a JSON object: {"facts": [...]}. Each fact has:
- "factual_core" (REQUIRED): what literally happened or was said, as a complete sentence with subject and verb. Capture WHAT was said, not just THAT something was said. Preserve compliments, assessments, descriptions, and key phrases.
- "fact_type" (REQUIRED): 'world' = facts independent of the assistant (user's background, skills, other people's lives, events). 'assistant' = interactions BY or TO the assistant in this conversation. If it would still be true had this conversation never happened, it is 'world'.
- "fact_kind": 'conversation' = general info, preferences, ongoing things (no occurred dates). 'event' = a specific datable occurrence (MUST set occurred_start/occurred_end). 'other' = anything else.
- "occurred_start"/"occurred_end": ISO timestamps, only for 'event' facts. Resolve relative time expressions to absolute dates using the reference date from the context.
- Optional dimensions, each a complete standalone sentence with its subject: "emotional_significance" (emotions, feelings, personal meaning), "reasoning_motivation" (why it happened), "preferences_opinions" (likes, dislikes, beliefs, ideals, favorites), "sensory_details" (visual/auditory/physical descriptions, using the EXACT adjectives from the text), "observations" (inferred facts: travel, possessions, capabilities).
- "entities": ONLY specific named entities worth tracking: people's names, organizations, specific places. DO NOT include generic relations (mom, friend, boss), common nouns, pronouns, or vague references.
- "causal_relations": links to other facts in this response, each {"target_fact_index": <0-based index>, "relation_type": "causes"|"caused_by"|"enables"|"prevents", "strength": 0.0-1.0}. Only link on explicit or clear implicit causation ("because", "so", "therefore").

## RULES

1. Split conversation facts from event facts: ongoing activities and a dated occurrence mentioned together become two facts, causally linked when appropriate.
2. Always write resolved absolute dates into the fact text itself ("in January 2023", "around August 16, 2023").
3. Merge a simple question with its answer into one fact, but extract a user request and the assistant's response as two separate facts.
4. Skip pure filler, greetings, and structural statements ("sounds good", "let's get started").
5. Never lose individual preferences, participants, modifiers ("new", "first", "favorite"), or possessive relationships.

## TEXT TO EXTRACT FROM:
`)
	b.WriteString(chunk)
	return b.String()
}
