package enrich

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/chefatlas/atlas-cli/internal/model"
	"github.com/chefatlas/atlas-cli/internal/names"
	"github.com/chefatlas/atlas-cli/internal/store"
)

// fakeLLM pops scripted responses in order and records every user prompt.
// failOn marks zero-based call indexes that should fail like a gateway error.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	failOn    map[int]bool
	prompts   []string
}

func (f *fakeLLM) Complete(_ context.Context, _, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.prompts)
	f.prompts = append(f.prompts, user)
	if f.failOn[call] {
		return "", eris.New("fakeLLM: scripted gateway failure")
	}
	if len(f.responses) == 0 {
		return "", eris.New("fakeLLM: no scripted response")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// fakeStore is an in-memory store.Store for orchestrator tests.
type fakeStore struct {
	mu             sync.Mutex
	restaurants    map[int]*model.Restaurant
	chefs          map[int]*model.Chef
	seasons        map[int]*model.Season
	participations map[[2]int]*model.Participation
	nextID         int
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		restaurants:    map[int]*model.Restaurant{},
		chefs:          map[int]*model.Chef{},
		seasons:        map[int]*model.Season{},
		participations: map[[2]int]*model.Participation{},
		nextID:         100,
	}
}

func (s *fakeStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) GetRestaurant(_ context.Context, id int) (*model.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.restaurants[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) GetRestaurantDetail(_ context.Context, id int) (*model.RestaurantDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.restaurants[id]
	if !ok {
		return nil, nil
	}
	d := &model.RestaurantDetail{Restaurant: *r}
	if chef, ok := s.chefs[r.ChefID]; ok {
		cp := *chef
		d.Chef = &cp
	}
	if r.SeasonID != nil {
		if season, ok := s.seasons[*r.SeasonID]; ok {
			cp := *season
			d.Season = &cp
		}
	}
	return d, nil
}

func (s *fakeStore) ListRestaurants(_ context.Context, f store.RestaurantFilter) ([]model.RestaurantWithContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RestaurantWithContext
	for _, r := range s.restaurants {
		if f.Country != "" && r.Country != f.Country {
			continue
		}
		rc := model.RestaurantWithContext{Restaurant: *r}
		if chef, ok := s.chefs[r.ChefID]; ok {
			rc.ChefName = chef.Name
		}
		out = append(out, rc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) ListRestaurantsMissingAddress(_ context.Context, country string) ([]model.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Restaurant
	for _, r := range s.restaurants {
		if r.Country == country && r.Address == nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateRestaurant(_ context.Context, r model.Restaurant) (*model.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id()
	s.restaurants[r.ID] = &r
	cp := r
	return &cp, nil
}

func (s *fakeStore) UpdateRestaurant(_ context.Context, id int, upd model.RestaurantUpdate) (*model.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.restaurants[id]
	if !ok {
		return nil, nil
	}
	if upd.Name != nil {
		r.Name = *upd.Name
	}
	if upd.Description != nil {
		r.Description = upd.Description
	}
	if upd.Address != nil {
		r.Address = upd.Address
	}
	if upd.City != nil {
		r.City = *upd.City
	}
	if upd.Country != nil {
		r.Country = *upd.Country
	}
	if upd.OpenDate != nil {
		r.OpenDate = upd.OpenDate
	}
	if upd.CloseDate != nil {
		r.CloseDate = upd.CloseDate
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) SetRestaurantName(_ context.Context, id int, name string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.restaurants[id]
	r.Name = name
	r.NameUpdatedAt = &at
	return nil
}

func (s *fakeStore) SetRestaurantAddress(_ context.Context, id int, address *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.restaurants[id]
	r.Address = address
	r.AddressUpdatedAt = &at
	return nil
}

func (s *fakeStore) SetRestaurantChef(_ context.Context, id, chefID int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.restaurants[id]
	r.ChefID = chefID
	r.ChefAssociationUpdatedAt = &at
	return nil
}

func (s *fakeStore) TouchRestaurantField(_ context.Context, id int, field model.Field, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.restaurants[id]
	switch field {
	case model.FieldRestaurantName:
		r.NameUpdatedAt = &at
	case model.FieldAddress:
		r.AddressUpdatedAt = &at
	case model.FieldCurrentChefName:
		r.ChefAssociationUpdatedAt = &at
	}
	return nil
}

func (s *fakeStore) GetChef(_ context.Context, id int) (*model.Chef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chefs[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *fakeStore) GetChefByName(_ context.Context, name string) (*model.Chef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chefs {
		if names.Equal(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetChefDetail(_ context.Context, id int) (*model.ChefDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chefs[id]
	if !ok {
		return nil, nil
	}
	return &model.ChefDetail{Chef: *c}, nil
}

func (s *fakeStore) CreateChef(_ context.Context, c model.Chef) (*model.Chef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.chefs[c.ID] = &c
	cp := c
	return &cp, nil
}

func (s *fakeStore) UpdateChef(_ context.Context, id int, upd model.ChefUpdate) (*model.Chef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chefs[id]
	if !ok {
		return nil, nil
	}
	if upd.Bio != nil {
		c.Bio = upd.Bio
	}
	if upd.Status != nil {
		c.Status = upd.Status
	}
	if upd.ImageURL != nil {
		c.ImageURL = upd.ImageURL
	}
	cp := *c
	return &cp, nil
}

func (s *fakeStore) SetChefBio(_ context.Context, id int, bio *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.chefs[id]
	c.Bio = bio
	c.LastUpdated = &at
	return nil
}

func (s *fakeStore) GetSeason(_ context.Context, id int) (*model.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ssn, ok := s.seasons[id]
	if !ok {
		return nil, nil
	}
	cp := *ssn
	return &cp, nil
}

func (s *fakeStore) GetSeasonByNumber(_ context.Context, country string, number int) (*model.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ssn := range s.seasons {
		if ssn.Country == country && ssn.Number == number {
			cp := *ssn
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListSeasonsByCountry(_ context.Context, country string) ([]model.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Season
	for _, ssn := range s.seasons {
		if ssn.Country == country {
			out = append(out, *ssn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *fakeStore) CreateSeason(_ context.Context, ssn model.Season) (*model.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ssn.ID = s.id()
	s.seasons[ssn.ID] = &ssn
	cp := ssn
	return &cp, nil
}

func (s *fakeStore) CountParticipants(_ context.Context, seasonID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.participations {
		if key[1] == seasonID {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) UpsertParticipation(_ context.Context, p model.Participation) (*model.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int{p.ChefID, p.SeasonID}
	if existing, ok := s.participations[key]; ok {
		if existing.Placement == nil && p.Placement != nil {
			existing.Placement = p.Placement
		}
		existing.IsWinner = existing.IsWinner || p.IsWinner
		cp := *existing
		return &cp, nil
	}
	p.ID = s.id()
	s.participations[key] = &p
	cp := p
	return &cp, nil
}

func (s *fakeStore) GetCountries(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	for _, r := range s.restaurants {
		seen[r.Country] = true
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (s *fakeStore) Migrate(context.Context) error { return nil }
func (s *fakeStore) Close() error                  { return nil }
