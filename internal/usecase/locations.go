package usecase

import (
	"context"
	"fmt"
	"strings"

	"events-assistant/internal/domain"
	"events-assistant/internal/observability/metrics"
	"events-assistant/internal/state"
)

const favoritesTitle = "Favorites"

// SelectCategory handles a pick from a selection list: it records the pick
// as a user entry, looks up matching places and shows the first page. A
// failed lookup is treated as no results.
func (s *Session) SelectCategory(ctx context.Context, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return newError(ErrorInvalidInput, "empty_category", nil)
	}

	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.suggestions.Clear()
	s.AddEntry(domain.EntryFields{Text: category, IsBot: false})

	locs := s.lookup(ctx, category)
	s.resetLocations(locs)
	if len(locs) == 0 {
		s.AddEntry(domain.EntryFields{
			Text:  fmt.Sprintf("No places found for %q.", category),
			IsBot: true,
			Title: category,
		})
		return nil
	}
	s.AddEntry(domain.EntryFields{
		IsBot:        true,
		Title:        category,
		LocationList: s.pager.Visible(),
	})
	return nil
}

func (s *Session) lookup(ctx context.Context, query string) []domain.Location {
	var (
		locs []domain.Location
		err  error
	)
	state.Track(s.loading.Suggestions, func() {
		locs, err = s.places.Search(ctx, query)
	})
	if err != nil {
		s.metrics.PlaceLookups.WithLabelValues(metrics.OutcomeFailure).Inc()
		s.logger.Warn("place lookup failed", "query", query, "err", err)
		return nil
	}
	s.metrics.PlaceLookups.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return locs
}

func (s *Session) resetLocations(locs []domain.Location) {
	s.pager.Reset(locs)
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// NextLocations shows the next page of the current results. It reports
// whether a new page was shown; at the last page nothing is appended.
func (s *Session) NextLocations() bool {
	return s.page(s.pager.Next)
}

// PreviousLocations shows the previous page of the current results.
func (s *Session) PreviousLocations() bool {
	return s.page(s.pager.Previous)
}

func (s *Session) page(move func() bool) bool {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	if !move() {
		return false
	}
	visible := s.pager.Visible()
	offset := s.pager.Offset()
	s.AddEntry(domain.EntryFields{
		Text:         fmt.Sprintf("Results %d-%d of %d", offset+1, offset+len(visible), s.pager.Len()),
		IsBot:        true,
		LocationList: visible,
	})
	return true
}

// LocationPage describes the visible window over the current results.
type LocationPage struct {
	Offset      int               `json:"offset"`
	PageSize    int               `json:"pageSize"`
	Total       int               `json:"total"`
	Items       []domain.Location `json:"items"`
	HasNext     bool              `json:"hasNext"`
	HasPrevious bool              `json:"hasPrevious"`
}

func (s *Session) Page() LocationPage {
	return LocationPage{
		Offset:      s.pager.Offset(),
		PageSize:    s.pager.PageSize(),
		Total:       s.pager.Len(),
		Items:       s.pager.Visible(),
		HasNext:     s.pager.HasNext(),
		HasPrevious: s.pager.HasPrevious(),
	}
}

// ShowLocation expands the index-th location of the visible page into a
// detail entry and makes it the current location.
func (s *Session) ShowLocation(index int) (domain.Location, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	visible := s.pager.Visible()
	if index < 0 || index >= len(visible) {
		return domain.Location{}, newError(ErrorNotFound, "location_index_out_of_range", nil)
	}
	loc := visible[index]

	s.mu.Lock()
	cur := loc.Clone()
	s.current = &cur
	s.mu.Unlock()

	detail := loc.Clone()
	s.AddEntry(domain.EntryFields{
		Text:           loc.Address,
		IsBot:          true,
		Title:          loc.Name,
		LocationDetail: &detail,
	})
	return loc, nil
}

// CurrentLocation returns the location last expanded with ShowLocation.
func (s *Session) CurrentLocation() (domain.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.Location{}, false
	}
	return s.current.Clone(), true
}

func (s *Session) SaveFavorite(ctx context.Context, userID string, loc domain.Location) error {
	if err := s.favorites.Add(ctx, userID, loc); err != nil {
		return newError(ErrorUpstream, "favorites_add_error", err)
	}
	return nil
}

func (s *Session) RemoveFavorite(ctx context.Context, userID, placeID string) error {
	if err := s.favorites.Remove(ctx, userID, placeID); err != nil {
		return newError(ErrorUpstream, "favorites_remove_error", err)
	}
	return nil
}

// ShowFavorites lists userID's saved places as a bot entry and pages over
// them like search results.
func (s *Session) ShowFavorites(ctx context.Context, userID string) ([]domain.Location, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	locs, err := s.favorites.List(ctx, userID)
	if err != nil {
		return nil, newError(ErrorUpstream, "favorites_list_error", err)
	}
	s.resetLocations(locs)
	if len(locs) == 0 {
		s.AddEntry(domain.EntryFields{Text: "You have no saved places yet.", IsBot: true, Title: favoritesTitle})
		return locs, nil
	}
	s.AddEntry(domain.EntryFields{IsBot: true, Title: favoritesTitle, LocationList: s.pager.Visible()})
	return locs, nil
}
