package domain

import "time"

// Entry is one rendered unit of the chat transcript, authored either by the
// user or by the assistant.
type Entry struct {
	ID             string     `json:"id"`
	Text           string     `json:"text,omitempty"`
	RichText       string     `json:"richText,omitempty"`
	IsBot          bool       `json:"isBot"`
	Timestamp      time.Time  `json:"timestamp"`
	SelectionList  []string   `json:"selectionList,omitempty"`
	LocationList   []Location `json:"locationList,omitempty"`
	LocationDetail *Location  `json:"locationDetail,omitempty"`
	Title          string     `json:"title,omitempty"`
}

// EntryFields is the caller-supplied part of an Entry. ID and Timestamp are
// assigned when the entry is appended.
type EntryFields struct {
	Text           string
	RichText       string
	IsBot          bool
	SelectionList  []string
	LocationList   []Location
	LocationDetail *Location
	Title          string
}

// Clone returns a deep copy so the stored entry can't be changed through
// shared slices.
func (e Entry) Clone() Entry {
	out := e
	if e.SelectionList != nil {
		out.SelectionList = append([]string(nil), e.SelectionList...)
	}
	out.LocationList = CloneLocations(e.LocationList)
	if e.LocationDetail != nil {
		d := e.LocationDetail.Clone()
		out.LocationDetail = &d
	}
	return out
}
