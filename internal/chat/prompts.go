package chat

import "fmt"

// chatSystemPrompt sets the assistant persona for question answering.
const chatSystemPrompt = `You are a chatbot with vast knowledge of all Congress bills, with real time updates of the latest events.
Your answers are to be concise and to the point.
Your answers should be authoritative and factual, yet not boring or dry. Try to make them interesting and engaging.
When the bill doesn't contain information about the specific question, you should just use your knowledge to answer the question.
Strive for your answers to contain up to date info and if possible make them interesting and engaging.`

// summarySystemPrompt sets the persona for bill summarization.
const summarySystemPrompt = `You are a legislative assistant that provides extremely concise bill summaries. Keep summaries to 2-3 sentences maximum, focusing only on the core purpose and most important provisions.`

// buildQuestion composes the user message, embedding retrieved context
// when available.
func buildQuestion(subject, question, context string) string {
	if context == "" {
		if subject == "" {
			return question
		}
		return fmt.Sprintf("%s. %s", subject, question)
	}
	return fmt.Sprintf(`Here's a question about %s:
%s

Here's some relevant context from the bill text:
%s

Please provide a detailed answer based on this context.`, subject, question, context)
}

// buildSummaryPrompt composes the user message for summarization.
func buildSummaryPrompt(billText string) string {
	return fmt.Sprintf(`Provide a brief, one-paragraph summary of this bill's main purpose and key provisions. Be extremely concise and focus only on the most important points:

%s

Summary:`, billText)
}
