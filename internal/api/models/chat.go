package models

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse is the reply to a farmer question.
type ChatResponse struct {
	Response string `json:"response"`
	Source   string `json:"source"`
}
