package usecase

import (
	"events-assistant/internal/domain"
	"events-assistant/internal/integrations/dialogflow"
)

// applyResponse turns each message unit of a reply into transcript entries
// and suggestion updates, in the order the units were received. A reply
// with no units changes nothing.
//
// Per unit:
//   - speech alone becomes a bot entry;
//   - a types list becomes a bot entry carrying the unit's speech (possibly
//     empty) and the list as its selection list;
//   - a possibleAnswers list replaces the suggestions, so the last unit that
//     carries one wins.
func (s *Session) applyResponse(resp *dialogflow.QueryResponse) {
	for _, msg := range resp.Messages() {
		speech := string(msg.Speech)
		types, hasTypes := msg.Types()

		if speech != "" && (!hasTypes || s.cfg.EchoSpeechBeforeSelection) {
			s.AddEntry(domain.EntryFields{Text: speech, IsBot: true})
		}
		if hasTypes {
			s.AddEntry(domain.EntryFields{
				Text:          speech,
				IsBot:         true,
				SelectionList: types,
			})
		}
		if answers, ok := msg.PossibleAnswers(); ok {
			s.suggestions.Replace(answers)
		}
	}
}
