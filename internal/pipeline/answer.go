package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mbaizhakyp/floodwise/internal/llm"
	"github.com/mbaizhakyp/floodwise/internal/selection"
)

const answerSystemPrompt = `You are an expert flood information assistant. You have access to flood-related data including:
- Precipitation forecasts and historical data
- Historical flood events with locations and dates
- Social Vulnerability Index (SVI) data indicating community risk factors
- County-level geographic information

Your task is to provide clear, accurate, and helpful answers based on the provided data.
If the data doesn't contain enough information to fully answer the question, acknowledge what you can answer and what information is missing.
Always cite specific data points when making claims.`

const answerPromptTemplate = `User Question: %s

Available Data:
%s

Please provide a comprehensive answer to the user's question based on the available data above.
Structure your response clearly and include specific numbers, dates, and locations when relevant.`

const answerTemperature = 0.2

// generateAnswer produces a natural-language answer from the selected
// context. The low temperature keeps the answer grounded in the data.
func generateAnswer(ctx context.Context, completer llm.Completer, sel *selection.Selection) (string, error) {
	contextJSON, err := json.MarshalIndent(sel.FilteredData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode filtered context: %w", err)
	}

	temp := answerTemperature
	answer, err := completer.Complete(ctx, llm.CompletionRequest{
		System:      answerSystemPrompt,
		User:        fmt.Sprintf(answerPromptTemplate, sel.Query, contextJSON),
		Temperature: &temp,
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}
