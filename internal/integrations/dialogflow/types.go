package dialogflow

import (
	"encoding/json"
	"fmt"
)

// QueryRequest is the body of a single query turn.
type QueryRequest struct {
	Lang      string `json:"lang"`
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
	Timezone  string `json:"timezone"`
}

// QueryResponse is the subset of the query response the assistant reads.
type QueryResponse struct {
	ID     string  `json:"id,omitempty"`
	Result *Result `json:"result,omitempty"`
	Status *Status `json:"status,omitempty"`
}

type Result struct {
	ResolvedQuery string       `json:"resolvedQuery,omitempty"`
	Action        string       `json:"action,omitempty"`
	Fulfillment   *Fulfillment `json:"fulfillment,omitempty"`
}

type Fulfillment struct {
	Speech   Speech    `json:"speech,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

// Message is one unit of a fulfillment.
type Message struct {
	Type    json.RawMessage `json:"type,omitempty"`
	Speech  Speech          `json:"speech,omitempty"`
	Payload *Payload        `json:"payload,omitempty"`
}

type Payload struct {
	Response *PayloadResponse `json:"response,omitempty"`
}

// PayloadResponse carries structured data. A nil slice means the field was
// absent; an empty non-nil slice means it was sent empty.
type PayloadResponse struct {
	Types           []string `json:"types,omitempty"`
	PossibleAnswers []string `json:"possibleAnswers,omitempty"`
}

type Status struct {
	Code      int    `json:"code"`
	ErrorType string `json:"errorType,omitempty"`
}

// Speech is speech text. The backend sends either a string or a list of
// variants; for a list the first non-empty variant is used.
type Speech string

func (s *Speech) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*s = Speech(single)
		return nil
	}
	var variants []string
	if err := json.Unmarshal(b, &variants); err != nil {
		return fmt.Errorf("dialogflow: speech must be a string or list of strings: %w", err)
	}
	*s = ""
	for _, v := range variants {
		if v != "" {
			*s = Speech(v)
			break
		}
	}
	return nil
}

// Messages returns the fulfillment message units, or nil when the response
// carries no fulfillment.
func (r *QueryResponse) Messages() []Message {
	if r == nil || r.Result == nil || r.Result.Fulfillment == nil {
		return nil
	}
	return r.Result.Fulfillment.Messages
}

// Speech returns the top-level fulfillment speech, or "".
func (r *QueryResponse) Speech() string {
	if r == nil || r.Result == nil || r.Result.Fulfillment == nil {
		return ""
	}
	return string(r.Result.Fulfillment.Speech)
}

// Types returns the payload selection list and whether it was present.
func (m Message) Types() ([]string, bool) {
	if m.Payload == nil || m.Payload.Response == nil || m.Payload.Response.Types == nil {
		return nil, false
	}
	return m.Payload.Response.Types, true
}

// PossibleAnswers returns the payload suggestion list and whether it was
// present.
func (m Message) PossibleAnswers() ([]string, bool) {
	if m.Payload == nil || m.Payload.Response == nil || m.Payload.Response.PossibleAnswers == nil {
		return nil, false
	}
	return m.Payload.Response.PossibleAnswers, true
}
