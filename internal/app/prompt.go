package app

import (
	"fmt"
	"strings"
)

const emptyContextPlaceholder = "(No knowledge base content matched this question.)"

// Persona identifies the company the assistant speaks for.
type Persona struct {
	Company      string
	ContactEmail string
}

const systemPromptTemplate = `You are the virtual assistant of %[1]s. You answer questions from visitors about %[1]s, its services, team and way of working.

Rules:
1. Always reply in the same language the user writes in. If the user switches language, switch with them.
2. Only answer questions related to %[1]s and its services. For anything off-topic, politely decline and steer the conversation back to how %[1]s can help.
3. Base your answers on the knowledge below. Do not invent prices, names, dates or commitments that it does not contain.
4. If the knowledge below does not answer the question, say so honestly and invite the user to email %[2]s.
5. Keep answers short, friendly and professional.

Knowledge:
%[3]s`

// BuildSystemPrompt interpolates the retrieved context into the fixed
// instruction block. A blank context gets a placeholder so the rules stay
// identical either way.
func BuildSystemPrompt(persona Persona, retrievedContext string) string {
	knowledgeBlock := strings.TrimSpace(retrievedContext)
	if knowledgeBlock == "" {
		knowledgeBlock = emptyContextPlaceholder
	}
	return fmt.Sprintf(systemPromptTemplate, persona.Company, persona.ContactEmail, knowledgeBlock)
}
