package openai

import (
	"fmt"
	"strings"
)

const rerankResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "scores": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "index": {
            "type": "integer",
            "minimum": 0
          },
          "score": {
            "type": "number",
            "minimum": 0,
            "maximum": 10
          }
        },
        "required": ["index", "score"],
        "additionalProperties": false
      }
    }
  },
  "required": ["scores"],
  "additionalProperties": false
}`

const rerankPromptTemplate = `You grade how relevant Magic: The Gathering cards are to a search query and return the grades as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Every card is given as "[index] card text". Card text is the rules text followed by the type line and mana cost.
- Return exactly one entry per card, using the card's index.
- Score is a number from 0 (unrelated) to 10 (exactly what the query asks for).
- When the query is itself a card's text, score how similar each card plays to that card: same effect,
  same kind of permanent, similar cost.
- Judge each card on its own against the query. Do not rank them relative to each other.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Query: "deal damage to any target"
Cards:
[0] Deal 3 damage to any target. Instant {R}
[1] Draw two cards. Sorcery {1}{U}
Output:
{
  "scores": [
    {"index":0,"score":9},
    {"index":1,"score":0}
  ]
}`

func buildSystemPrompt() string {
	return fmt.Sprintf(rerankPromptTemplate, rerankResponseSchema)
}

func buildUserPrompt(query string, candidates []string) string {
	var sb strings.Builder
	sb.WriteString("Query: ")
	sb.WriteString(flattenLines(query))
	sb.WriteString("\nCards:\n")
	for i, c := range candidates {
		fmt.Fprintf(&sb, "[%d] %s\n", i, flattenLines(c))
	}
	return sb.String()
}
