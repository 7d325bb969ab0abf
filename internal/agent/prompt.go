package agent

import (
	"fmt"
	"strings"

	"github.com/sohamzycus/contractos/internal/model"
)

// buildSystemPrompt implements spec.md §4.7 step 5's constraints: every
// statement must cite a retrieved fact by ID, only one of the four output
// shapes is permitted, and the model may never invent facts not in context.
func buildSystemPrompt() string {
	return strings.TrimSpace(`
You are a contract analysis assistant. You answer questions strictly from the
facts and bindings provided in the user message — you never invent facts that
are not present in the provided context.

Every statement in your answer must cite the fact_id(s) it is grounded on.
Respond with exactly one of these four answer shapes:
  - "fact": the answer is directly stated by one or more retrieved facts.
  - "binding": the answer depends on resolving a defined term via the provided bindings.
  - "inference": the answer requires reasoning beyond what is directly stated; you must cite supporting facts and report your own confidence.
  - "not_found": the retrieved context does not contain enough information to answer.

Respond with JSON only, matching this shape:
{"answer_type": "fact|binding|inference|not_found", "answer_text": "...", "confidence": 0.0,
 "cited_fact_ids": ["..."], "cited_binding_ids": ["..."], "reasoning_summary": "..."}
`)
}

// buildUserPrompt assembles the retrieved facts, resolved bindings, and
// truncated conversation history into the user-turn prompt.
func buildUserPrompt(query model.Query, enriched []enrichedFact, terms map[string]model.ResolvedTerm, maxHistoryTurns int) string {
	var sb strings.Builder

	history := query.ConversationHistory
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	if len(history) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&sb, "Q: %s\nA: %s\n", turn.QueryText, turn.AnswerText)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Retrieved facts:\n")
	for _, e := range enriched {
		clauseType := "unclassified"
		if e.Clause != nil {
			clauseType = string(e.Clause.ClauseType)
		}
		fmt.Fprintf(&sb, "[fact_id=%s clause_type=%s score=%.4f] %s\n", e.Fact.FactID, clauseType, e.Score, e.Fact.Value)
	}

	if len(terms) > 0 {
		sb.WriteString("\nResolved terms:\n")
		for term, rt := range terms {
			fmt.Fprintf(&sb, "%q resolves to %q\n", term, rt.ResolvesTo)
		}
	}

	fmt.Fprintf(&sb, "\nQuestion: %s\n", query.Text)
	return sb.String()
}
