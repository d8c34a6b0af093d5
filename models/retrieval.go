package models

// Chunk is one knowledge-base fragment returned by the retriever, ranked by
// similarity score descending.
type Chunk struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// CompletionRequest is the structured prompt handed to the language model:
// bounded recent history, retrieved grounding context, the current state and
// the set of actions legal from it.
type CompletionRequest struct {
	ClientID     string
	Profile      *ClientProfile
	History      []Turn
	Context      []Chunk
	State        SessionState
	LegalActions []ActionType
	// ErrorContext carries a rejected-action note back to the model instead
	// of executing an illegal proposal.
	ErrorContext string
}
