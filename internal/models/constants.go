package models

const (
	DefaultCollection     = "documents_collection"
	DefaultChunkSize      = 500
	DefaultChunkOverlap   = 50
	DefaultTopK           = 5
	DefaultScoreThreshold = 0.3
	DefaultTokenBudget    = 4800
	DefaultTokenEncoding  = "cl100k_base"

	SummaryTemperature = 0.4

	// NoResultsSummary is the summary text for the empty-search terminal case.
	NoResultsSummary = "No relevant information found."

	// EmptyExcerptsWarning is returned when no excerpt fits the token budget.
	EmptyExcerptsWarning = "No document excerpts fit within the summarization token budget."
)

const (
	SummarySystemPrompt = "You are a helpful legal summarizer AI."

	SummaryPromptHeader = "You are a helpful AI assistant. Analyze the following excerpts from multiple documents " +
		"and identify 1-3 key themes. Group supporting citations and explain them clearly.\n\n"
)
