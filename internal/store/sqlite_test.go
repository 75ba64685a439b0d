package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chefatlas/atlas-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func mustChef(t *testing.T, st *SQLiteStore, name string) *model.Chef {
	t.Helper()
	c, err := st.CreateChef(context.Background(), model.Chef{Name: name})
	require.NoError(t, err)
	return c
}

func mustSeason(t *testing.T, st *SQLiteStore, country string, number int) *model.Season {
	t.Helper()
	se, err := st.CreateSeason(context.Background(), model.Season{Country: country, Number: number})
	require.NoError(t, err)
	return se
}

func mustRestaurant(t *testing.T, st *SQLiteStore, r model.Restaurant) *model.Restaurant {
	t.Helper()
	created, err := st.CreateRestaurant(context.Background(), r)
	require.NoError(t, err)
	return created
}

// --- Chefs ---

func TestSQLite_Chef_Roundtrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateChef(ctx, model.Chef{
		Name:   "Stéphanie Le Quellec",
		Bio:    strPtr("Winner of season 2."),
		Status: strPtr("Chef at La Scène"),
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := st.GetChef(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Stéphanie Le Quellec", got.Name)
	require.NotNil(t, got.Bio)
	assert.Equal(t, "Winner of season 2.", *got.Bio)
}

func TestSQLite_Chef_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetChef(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_GetChefByName_ExactAndNormalized(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	mustChef(t, st, "Hélène Darroze")

	exact, err := st.GetChefByName(ctx, "Hélène Darroze")
	require.NoError(t, err)
	require.NotNil(t, exact)

	// Lookup with diacritics stripped and case folded still matches.
	loose, err := st.GetChefByName(ctx, "helene darroze")
	require.NoError(t, err)
	require.NotNil(t, loose)
	assert.Equal(t, exact.ID, loose.ID)

	missing, err := st.GetChefByName(ctx, "Nobody Here")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_UpdateChef_Partial(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := mustChef(t, st, "Pierre Sang Boyer")

	updated, err := st.UpdateChef(ctx, c.ID, model.ChefUpdate{Status: strPtr("Owner of Pierre Sang")})
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.NotNil(t, updated.Status)
	assert.Equal(t, "Owner of Pierre Sang", *updated.Status)
	assert.Nil(t, updated.Bio)
	assert.NotNil(t, updated.LastUpdated)
}

func TestSQLite_UpdateChef_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	updated, err := st.UpdateChef(context.Background(), 404, model.ChefUpdate{Bio: strPtr("x")})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestSQLite_SetChefBio(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := mustChef(t, st, "Jorick Dorignac")
	at := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, st.SetChefBio(ctx, c.ID, strPtr("Finalist of season 15."), at))

	got, err := st.GetChef(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Bio)
	assert.Equal(t, "Finalist of season 15.", *got.Bio)
	require.NotNil(t, got.LastUpdated)
	assert.WithinDuration(t, at, *got.LastUpdated, time.Second)

	err = st.SetChefBio(ctx, 404, strPtr("x"), at)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chef not found")
}

// --- Seasons ---

func TestSQLite_Season_Roundtrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateSeason(ctx, model.Season{
		Country:    "France",
		Number:     15,
		Year:       intPtr(2024),
		WinnerName: strPtr("Jorick Dorignac"),
	})
	require.NoError(t, err)

	byID, err := st.GetSeason(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, 15, byID.Number)

	byNumber, err := st.GetSeasonByNumber(ctx, "France", 15)
	require.NoError(t, err)
	require.NotNil(t, byNumber)
	assert.Equal(t, created.ID, byNumber.ID)

	missing, err := st.GetSeasonByNumber(ctx, "France", 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_ListSeasonsByCountry_OrderedByNumber(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	mustSeason(t, st, "France", 15)
	mustSeason(t, st, "France", 1)
	mustSeason(t, st, "USA", 21)

	seasons, err := st.ListSeasonsByCountry(ctx, "France")
	require.NoError(t, err)
	require.Len(t, seasons, 2)
	assert.Equal(t, 1, seasons[0].Number)
	assert.Equal(t, 15, seasons[1].Number)
}

// --- Participations ---

func TestSQLite_UpsertParticipation_FillsGapsOnly(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := mustChef(t, st, "Romain Tischenko")
	se := mustSeason(t, st, "France", 1)

	first, err := st.UpsertParticipation(ctx, model.Participation{
		ChefID:    c.ID,
		SeasonID:  se.ID,
		Placement: intPtr(1),
		IsWinner:  true,
	})
	require.NoError(t, err)
	require.NotNil(t, first.Placement)
	assert.Equal(t, 1, *first.Placement)

	// A second upsert keeps existing values and only fills what was null.
	second, err := st.UpsertParticipation(ctx, model.Participation{
		ChefID:    c.ID,
		SeasonID:  se.ID,
		Placement: intPtr(5),
		IsWinner:  false,
		Notes:     strPtr("fan favorite"),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.Placement)
	assert.Equal(t, 1, *second.Placement)
	assert.True(t, second.IsWinner)
	require.NotNil(t, second.Notes)
	assert.Equal(t, "fan favorite", *second.Notes)

	n, err := st.CountParticipants(ctx, se.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_CountParticipants_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)
	se := mustSeason(t, st, "France", 2)

	n, err := st.CountParticipants(context.Background(), se.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// --- Restaurants ---

func TestSQLite_Restaurant_Roundtrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := mustChef(t, st, "Romain Tischenko")
	se := mustSeason(t, st, "France", 1)
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	created := mustRestaurant(t, st, model.Restaurant{
		ChefID:        c.ID,
		Name:          "Le Galopin",
		Lat:           48.8721,
		Lng:           2.3698,
		Address:       strPtr("34 Rue Sainte-Marthe, 75010 Paris"),
		SeasonID:      &se.ID,
		City:          "Paris",
		Country:       "France",
		IsCurrent:     true,
		LastUpdated:   &now,
		NameUpdatedAt: &now,
	})
	require.NotZero(t, created.ID)

	got, err := st.GetRestaurant(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Le Galopin", got.Name)
	assert.Equal(t, c.ID, got.ChefID)
	require.NotNil(t, got.Address)
	require.NotNil(t, got.SeasonID)
	assert.Equal(t, se.ID, *got.SeasonID)
	require.NotNil(t, got.NameUpdatedAt)
	assert.WithinDuration(t, now, *got.NameUpdatedAt, time.Second)
	assert.Nil(t, got.AddressUpdatedAt)
}

func TestSQLite_Restaurant_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetRestaurant(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_UpdateRestaurant_Partial(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := mustChef(t, st, "Brice Morvent")
	r := mustRestaurant(t, st, model.Restaurant{
		ChefID: c.ID, Name: "Yaya", Lat: 48.9, Lng: 2.35,
		City: "Saint-Ouen", Country: "France", IsCurrent: true,
	})

	updated, err := st.UpdateRestaurant(ctx, r.ID, model.RestaurantUpdate{
		Description: strPtr("Greek sharing plates."),
		IsCurrent:   boolPtr(false),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "Greek sharing plates.", *updated.Description)
	assert.False(t, updated.IsCurrent)
	assert.Equal(t, "Yaya", updated.Name)
	assert.NotNil(t, updated.LastUpdated)
}

func boolPtr(b bool) *bool { return &b }

func TestSQLite_UpdateRestaurant_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	updated, err := st.UpdateRestaurant(context.Background(), 404, model.RestaurantUpdate{Name: strPtr("x")})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestSQLite_FieldWrites_SetTimestamps(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := mustChef(t, st, "Clotaire Poirier")
	c2 := mustChef(t, st, "Mory Sacko")
	r := mustRestaurant(t, st, model.Restaurant{
		ChefID: c.ID, Name: "Datsha", Lat: 49.18, Lng: -0.36,
		City: "Caen", Country: "France", IsCurrent: true,
	})
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.SetRestaurantName(ctx, r.ID, "Datsha Underground", at))
	require.NoError(t, st.SetRestaurantAddress(ctx, r.ID, strPtr("7 Rue Vaubenard, Caen"), at))
	require.NoError(t, st.SetRestaurantChef(ctx, r.ID, c2.ID, at))

	got, err := st.GetRestaurant(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Datsha Underground", got.Name)
	require.NotNil(t, got.Address)
	assert.Equal(t, c2.ID, got.ChefID)
	for _, ts := range []*time.Time{got.NameUpdatedAt, got.AddressUpdatedAt, got.ChefAssociationUpdatedAt, got.LastUpdated} {
		require.NotNil(t, ts)
		assert.WithinDuration(t, at, *ts, time.Second)
	}
}

func TestSQLite_SetRestaurantAddress_NullClears(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := mustChef(t, st, "Pierre Sang Boyer")
	r := mustRestaurant(t, st, model.Restaurant{
		ChefID: c.ID, Name: "Pierre Sang in Oberkampf", Lat: 48.865, Lng: 2.374,
		Address: strPtr("55 Rue Oberkampf, 75011 Paris"),
		City:    "Paris", Country: "France", IsCurrent: true,
	})
	at := time.Now().UTC()

	require.NoError(t, st.SetRestaurantAddress(ctx, r.ID, nil, at))

	got, err := st.GetRestaurant(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Address)
	require.NotNil(t, got.AddressUpdatedAt)
}

func TestSQLite_TouchRestaurantField(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := mustChef(t, st, "Romain Tischenko")
	r := mustRestaurant(t, st, model.Restaurant{
		ChefID: c.ID, Name: "Le Galopin", Lat: 48.87, Lng: 2.37,
		City: "Paris", Country: "France", IsCurrent: true,
	})
	at := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, st.TouchRestaurantField(ctx, r.ID, model.FieldAddress, at))

	got, err := st.GetRestaurant(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AddressUpdatedAt)
	assert.WithinDuration(t, at, *got.AddressUpdatedAt, time.Second)
	// Touch does not move last_updated; only real value writes do.
	assert.Nil(t, got.LastUpdated)

	err = st.TouchRestaurantField(ctx, r.ID, model.Field("bogus"), at)
	require.Error(t, err)
}

func TestSQLite_ListRestaurants_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := mustChef(t, st, "Pierre Sang Boyer")
	s1 := mustSeason(t, st, "France", 1)
	s15 := mustSeason(t, st, "France", 15)

	mustRestaurant(t, st, model.Restaurant{
		ChefID: c.ID, Name: "Pierre Sang in Oberkampf", Lat: 48.865, Lng: 2.374,
		SeasonID: &s1.ID, City: "Paris", Country: "France", IsCurrent: true,
	})
	mustRestaurant(t, st, model.Restaurant{
		ChefID: c.ID, Name: "Pierre Sang on Gambey", Lat: 48.866, Lng: 2.372,
		SeasonID: &s15.ID, City: "Paris", Country: "France", IsCurrent: true,
	})
	mustRestaurant(t, st, model.Restaurant{
		ChefID: c.ID, Name: "Elsewhere", Lat: 40.7, Lng: -74.0,
		City: "New York", Country: "USA", IsCurrent: true,
	})

	all, err := st.ListRestaurants(ctx, RestaurantFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "Pierre Sang Boyer", all[0].ChefName)

	france, err := st.ListRestaurants(ctx, RestaurantFilter{Country: "France"})
	require.NoError(t, err)
	assert.Len(t, france, 2)

	seasonOne, err := st.ListRestaurants(ctx, RestaurantFilter{Country: "France", Season: 1})
	require.NoError(t, err)
	require.Len(t, seasonOne, 1)
	assert.Equal(t, "Pierre Sang in Oberkampf", seasonOne[0].Name)
	require.NotNil(t, seasonOne[0].SeasonNumber)
	assert.Equal(t, 1, *seasonOne[0].SeasonNumber)
}

func TestSQLite_ListRestaurantsMissingAddress(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := mustChef(t, st, "Brice Morvent")

	mustRestaurant(t, st, model.Restaurant{
		ChefID: c.ID, Name: "With Address", Lat: 48.86, Lng: 2.35,
		Address: strPtr("1 Rue de Rivoli, Paris"),
		City:    "Paris", Country: "France", IsCurrent: true,
	})
	mustRestaurant(t, st, model.Restaurant{
		ChefID: c.ID, Name: "No Address", Lat: 48.87, Lng: 2.36,
		City: "Paris", Country: "France", IsCurrent: true,
	})

	missing, err := st.ListRestaurantsMissingAddress(ctx, "France")
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "No Address", missing[0].Name)
}

func TestSQLite_GetCountries(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := mustChef(t, st, "Someone")

	mustRestaurant(t, st, model.Restaurant{
		ChefID: c.ID, Name: "A", Lat: 1, Lng: 1, City: "Paris", Country: "France", IsCurrent: true,
	})
	mustRestaurant(t, st, model.Restaurant{
		ChefID: c.ID, Name: "B", Lat: 2, Lng: 2, City: "Lyon", Country: "France", IsCurrent: true,
	})
	mustRestaurant(t, st, model.Restaurant{
		ChefID: c.ID, Name: "C", Lat: 3, Lng: 3, City: "Austin", Country: "USA", IsCurrent: true,
	})

	countries, err := st.GetCountries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"France", "USA"}, countries)
}

// --- Detail joins ---

func TestSQLite_GetRestaurantDetail(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := mustChef(t, st, "Stéphanie Le Quellec")
	se := mustSeason(t, st, "France", 2)
	r := mustRestaurant(t, st, model.Restaurant{
		ChefID: c.ID, Name: "La Scène", Lat: 48.871, Lng: 2.303,
		SeasonID: &se.ID, City: "Paris", Country: "France", IsCurrent: true,
	})

	detail, err := st.GetRestaurantDetail(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "La Scène", detail.Restaurant.Name)
	require.NotNil(t, detail.Chef)
	assert.Equal(t, c.ID, detail.Chef.ID)
	require.NotNil(t, detail.Season)
	assert.Equal(t, 2, detail.Season.Number)

	missing, err := st.GetRestaurantDetail(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_GetChefDetail(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := mustChef(t, st, "Romain Tischenko")
	se := mustSeason(t, st, "France", 1)
	mustRestaurant(t, st, model.Restaurant{
		ChefID: c.ID, Name: "Le Galopin", Lat: 48.87, Lng: 2.37,
		SeasonID: &se.ID, City: "Paris", Country: "France", IsCurrent: true,
	})
	_, err := st.UpsertParticipation(ctx, model.Participation{
		ChefID: c.ID, SeasonID: se.ID, Placement: intPtr(1), IsWinner: true,
	})
	require.NoError(t, err)

	detail, err := st.GetChefDetail(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "Romain Tischenko", detail.Chef.Name)
	require.Len(t, detail.Restaurants, 1)
	require.Len(t, detail.Participations, 1)
	assert.True(t, detail.Participations[0].IsWinner)
	require.Len(t, detail.Seasons, 1)
	assert.Equal(t, 1, detail.Seasons[0].Number)

	missing, err := st.GetChefDetail(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
