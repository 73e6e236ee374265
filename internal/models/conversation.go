package models

// ConversationTurn is one question/answer exchange kept in a user's history.
type ConversationTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuestionRequest is the body of POST /ask.
type QuestionRequest struct {
	Question           string `json:"question"`
	IsGeneralKnowledge bool   `json:"is_general_knowledge"`
	UserID             *int64 `json:"user_id"`
}

// HasUser reports whether the request carries a usable identity. Zero is
// treated the same as an absent id.
func (r QuestionRequest) HasUser() bool {
	return r.UserID != nil && *r.UserID != 0
}

// User returns the caller identity, or 0 when none was supplied.
func (r QuestionRequest) User() int64 {
	if !r.HasUser() {
		return 0
	}
	return *r.UserID
}

// Answer is the body returned by POST /ask.
type Answer struct {
	Status             string  `json:"status"`
	Conversation       string  `json:"conversation"`
	Summary            string  `json:"ai_summary"`
	SQL                *string `json:"ai_sql_generated"`
	IsGeneralKnowledge bool    `json:"is_general_knowledge"`
}
