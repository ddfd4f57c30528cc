package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"events-assistant/internal/domain"
)

func makeLocations(n int) []domain.Location {
	out := make([]domain.Location, n)
	for i := range out {
		out[i] = domain.Location{
			PlaceID: fmt.Sprintf("p%d", i),
			Name:    fmt.Sprintf("Place %d", i),
			Address: fmt.Sprintf("%d Main St", i),
		}
	}
	return out
}

func TestSelectCategory_ShowsFirstPage(t *testing.T) {
	env := newTestSession(t, Config{})
	env.places.locs = makeLocations(10)
	s := env.session

	var loading []bool
	s.SuggestionLoading().Subscribe(func(v bool) { loading = append(loading, v) })
	env.places.onQuery = func() { require.True(t, s.SuggestionLoading().Current()) }

	require.NoError(t, s.SelectCategory(context.Background(), " Cafe "))
	require.Equal(t, []string{"Cafe"}, env.places.queries)
	require.Equal(t, []bool{false, true, false}, loading)
	require.False(t, s.PrimaryLoading().Current())

	entries := s.Transcript().Current()
	require.Len(t, entries, 2)
	require.False(t, entries[0].IsBot)
	require.Equal(t, "Cafe", entries[0].Text)
	require.True(t, entries[1].IsBot)
	require.Equal(t, "Cafe", entries[1].Title)
	require.Len(t, entries[1].LocationList, 4)
	require.Equal(t, "p0", entries[1].LocationList[0].PlaceID)

	page := s.Page()
	require.Equal(t, 0, page.Offset)
	require.Equal(t, 10, page.Total)
	require.True(t, page.HasNext)
	require.False(t, page.HasPrevious)
}

func TestSelectCategory_LookupFailureMeansNoResults(t *testing.T) {
	env := newTestSession(t, Config{})
	env.places.err = errors.New("quota exceeded")

	require.NoError(t, env.session.SelectCategory(context.Background(), "Bar"))
	entries := env.session.Transcript().Current()
	require.Len(t, entries, 2)
	require.Equal(t, `No places found for "Bar".`, entries[1].Text)
	require.Empty(t, entries[1].LocationList)
	require.False(t, env.session.SuggestionLoading().Current())
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PlaceLookups.WithLabelValues("failure")))
}

func TestSelectCategory_RejectsEmpty(t *testing.T) {
	env := newTestSession(t, Config{})
	err := env.session.SelectCategory(context.Background(), "")
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, ErrorInvalidInput, usecaseErr.Code)
	require.Empty(t, env.places.queries)
}

func TestSelectCategory_ResetsPagerAndCurrentLocation(t *testing.T) {
	env := newTestSession(t, Config{})
	s := env.session
	env.places.locs = makeLocations(10)
	require.NoError(t, s.SelectCategory(context.Background(), "Cafe"))
	require.True(t, s.NextLocations())
	_, err := s.ShowLocation(1)
	require.NoError(t, err)
	_, ok := s.CurrentLocation()
	require.True(t, ok)

	env.places.locs = makeLocations(3)
	require.NoError(t, s.SelectCategory(context.Background(), "Bar"))
	require.Equal(t, 0, s.Page().Offset)
	require.Equal(t, 3, s.Page().Total)
	_, ok = s.CurrentLocation()
	require.False(t, ok)
}

func TestLocations_PagingAppendsEntries(t *testing.T) {
	env := newTestSession(t, Config{})
	s := env.session
	env.places.locs = makeLocations(10)
	require.NoError(t, s.SelectCategory(context.Background(), "Cafe"))
	base := len(s.Transcript().Current())

	require.True(t, s.NextLocations())
	require.True(t, s.NextLocations())
	require.False(t, s.NextLocations())

	entries := s.Transcript().Current()
	require.Len(t, entries, base+2)
	require.Equal(t, "Results 5-8 of 10", entries[base].Text)
	require.Equal(t, "Results 9-10 of 10", entries[base+1].Text)
	require.Len(t, entries[base+1].LocationList, 2)
	require.Equal(t, 8, s.Page().Offset)

	require.True(t, s.PreviousLocations())
	require.Equal(t, 4, s.Page().Offset)
	require.True(t, s.PreviousLocations())
	require.False(t, s.PreviousLocations())
	require.Equal(t, 0, s.Page().Offset)
}

func TestLocations_CustomPageSize(t *testing.T) {
	env := newTestSession(t, Config{PageSize: 3})
	env.places.locs = makeLocations(7)
	require.NoError(t, env.session.SelectCategory(context.Background(), "Cafe"))
	last := lastEntry(t, env.session)
	require.Len(t, last.LocationList, 3)
	require.Equal(t, 3, env.session.Page().PageSize)
}

func TestShowLocation(t *testing.T) {
	env := newTestSession(t, Config{})
	s := env.session
	env.places.locs = makeLocations(6)
	require.NoError(t, s.SelectCategory(context.Background(), "Cafe"))
	require.True(t, s.NextLocations())

	loc, err := s.ShowLocation(1)
	require.NoError(t, err)
	require.Equal(t, "p5", loc.PlaceID)

	last := lastEntry(t, s)
	require.Equal(t, "Place 5", last.Title)
	require.Equal(t, "5 Main St", last.Text)
	require.NotNil(t, last.LocationDetail)
	require.Equal(t, "p5", last.LocationDetail.PlaceID)

	cur, ok := s.CurrentLocation()
	require.True(t, ok)
	require.Equal(t, "p5", cur.PlaceID)

	_, err = s.ShowLocation(2)
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, ErrorNotFound, usecaseErr.Code)
}

func TestFavorites_SaveListRemove(t *testing.T) {
	env := newTestSession(t, Config{})
	s := env.session
	ctx := context.Background()

	locs, err := s.ShowFavorites(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, locs)
	last := lastEntry(t, s)
	require.Equal(t, "You have no saved places yet.", last.Text)

	for _, l := range makeLocations(5) {
		require.NoError(t, s.SaveFavorite(ctx, "user-1", l))
	}
	locs, err = s.ShowFavorites(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, locs, 5)
	last = lastEntry(t, s)
	require.Equal(t, "Favorites", last.Title)
	require.Len(t, last.LocationList, 4)
	require.True(t, s.Page().HasNext)

	require.NoError(t, s.RemoveFavorite(ctx, "user-1", "p2"))
	require.Equal(t, "p2", env.favorites.removedID)
}

func TestFavorites_ErrorsAreUpstream(t *testing.T) {
	env := newTestSession(t, Config{})
	env.favorites.err = errors.New("dynamo down")
	ctx := context.Background()

	for _, err := range []error{
		env.session.SaveFavorite(ctx, "u", makeLocations(1)[0]),
		env.session.RemoveFavorite(ctx, "u", "p0"),
		func() error { _, err := env.session.ShowFavorites(ctx, "u"); return err }(),
	} {
		var usecaseErr *Error
		require.ErrorAs(t, err, &usecaseErr)
		require.Equal(t, ErrorUpstream, usecaseErr.Code)
		require.ErrorContains(t, err, "dynamo down")
	}
	require.Empty(t, env.session.Transcript().Current())
}
