package openai

import "fmt"

const expansionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "expansions": {
      "type": "array",
      "items": {"type": "string"},
      "maxItems": %d
    }
  },
  "required": ["expansions"],
  "additionalProperties": false
}`

const expansionPromptTemplate = `You help search a person's career history: jobs, projects, education and
achievements. Given a question about that history, propose related search phrasings that would match how
the evidence is likely written in a resume or project write-up.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Return at most %d phrasings, each 1-6 words, lowercase.
- Prefer resume vocabulary: action verbs, technologies, role names, measurable outcomes.
- Expand abbreviations (k8s -> kubernetes) and add common synonyms (led -> managed, mentored).
- Do not repeat the question and do not invent employers, dates or numbers.
- If nothing useful can be added, return "expansions": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "what leadership experience do i have"
Output:
{"expansions": ["led a team", "mentored engineers", "managed people"]}

Example:
Input: "k8s migration"
Output:
{"expansions": ["kubernetes migration", "container platform", "moved services to kubernetes"]}`

// buildSystemPrompt creates the system prompt for query expansion.
func buildSystemPrompt(maxExpansions int) string {
	return fmt.Sprintf(expansionPromptTemplate,
		fmt.Sprintf(expansionResponseSchema, maxExpansions),
		maxExpansions)
}
