package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/chefatlas/atlas-cli/internal/model"
	"github.com/chefatlas/atlas-cli/internal/names"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// development and tests; deployments use PostgresStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// SQLite allows one writer, and a :memory: dsn is per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS chefs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL UNIQUE,
	name_normalized TEXT NOT NULL,
	bio             TEXT,
	status          TEXT,
	image_url       TEXT,
	last_updated    DATETIME,
	raw_data        TEXT
);

CREATE INDEX IF NOT EXISTS idx_chefs_name_normalized ON chefs(name_normalized);

CREATE TABLE IF NOT EXISTS seasons (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	country       TEXT NOT NULL,
	number        INTEGER NOT NULL,
	year          INTEGER,
	title         TEXT,
	episode_count INTEGER,
	winner_name   TEXT,
	UNIQUE (country, number)
);

CREATE TABLE IF NOT EXISTS participations (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	chef_id             INTEGER NOT NULL REFERENCES chefs(id),
	season_id           INTEGER NOT NULL REFERENCES seasons(id),
	placement           INTEGER,
	is_winner           BOOLEAN NOT NULL DEFAULT 0,
	eliminated          BOOLEAN NOT NULL DEFAULT 0,
	elimination_episode INTEGER,
	win_count           INTEGER NOT NULL DEFAULT 0,
	notes               TEXT,
	UNIQUE (chef_id, season_id)
);

CREATE TABLE IF NOT EXISTS restaurants (
	id                          INTEGER PRIMARY KEY AUTOINCREMENT,
	chef_id                     INTEGER NOT NULL REFERENCES chefs(id),
	name                        TEXT NOT NULL,
	description                 TEXT,
	lat                         REAL NOT NULL,
	lng                         REAL NOT NULL,
	address                     TEXT,
	season_id                   INTEGER REFERENCES seasons(id),
	city                        TEXT NOT NULL,
	country                     TEXT NOT NULL,
	is_current                  BOOLEAN NOT NULL DEFAULT 1,
	open_date                   TEXT,
	close_date                  TEXT,
	last_updated                DATETIME,
	name_updated_at             DATETIME,
	address_updated_at          DATETIME,
	chef_association_updated_at DATETIME,
	UNIQUE (chef_id, name)
);

CREATE INDEX IF NOT EXISTS idx_restaurants_country ON restaurants(country);
CREATE INDEX IF NOT EXISTS idx_restaurants_chef_id ON restaurants(chef_id);
CREATE INDEX IF NOT EXISTS idx_restaurants_season_id ON restaurants(season_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// --- Restaurants ---

func scanRestaurantRow(row rowScanner) (*model.Restaurant, error) {
	var r model.Restaurant
	err := row.Scan(&r.ID, &r.ChefID, &r.Name, &r.Description, &r.Lat, &r.Lng,
		&r.Address, &r.SeasonID, &r.City, &r.Country, &r.IsCurrent,
		&r.OpenDate, &r.CloseDate, &r.LastUpdated, &r.NameUpdatedAt,
		&r.AddressUpdatedAt, &r.ChefAssociationUpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) GetRestaurant(ctx context.Context, id int) (*model.Restaurant, error) {
	r, err := scanRestaurantRow(s.db.QueryRowContext(ctx,
		`SELECT `+restaurantCols+` FROM restaurants WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get restaurant %d", id)
	}
	return r, nil
}

func (s *SQLiteStore) GetRestaurantDetail(ctx context.Context, id int) (*model.RestaurantDetail, error) {
	r, err := s.GetRestaurant(ctx, id)
	if err != nil || r == nil {
		return nil, err
	}

	detail := &model.RestaurantDetail{Restaurant: *r}

	detail.Chef, err = s.GetChef(ctx, r.ChefID)
	if err != nil {
		return nil, err
	}
	if r.SeasonID != nil {
		detail.Season, err = s.GetSeason(ctx, *r.SeasonID)
		if err != nil {
			return nil, err
		}
	}
	return detail, nil
}

func (s *SQLiteStore) ListRestaurants(ctx context.Context, filter RestaurantFilter) ([]model.RestaurantWithContext, error) {
	query := `SELECT r.id, r.chef_id, r.name, r.description, r.lat, r.lng, r.address,
		r.season_id, r.city, r.country, r.is_current, r.open_date, r.close_date,
		r.last_updated, r.name_updated_at, r.address_updated_at, r.chef_association_updated_at,
		s.number, c.name
	FROM restaurants r
	JOIN chefs c ON c.id = r.chef_id
	LEFT JOIN seasons s ON s.id = r.season_id
	WHERE 1=1`
	args := []any{}

	if filter.Country != "" {
		query += ` AND r.country = ?`
		args = append(args, filter.Country)
	}
	if filter.Season > 0 {
		query += ` AND s.number = ?`
		args = append(args, filter.Season)
	}
	query += ` ORDER BY r.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list restaurants")
	}
	defer rows.Close()

	var out []model.RestaurantWithContext
	for rows.Next() {
		var rc model.RestaurantWithContext
		if err := rows.Scan(&rc.ID, &rc.ChefID, &rc.Name, &rc.Description, &rc.Lat, &rc.Lng,
			&rc.Address, &rc.SeasonID, &rc.City, &rc.Country, &rc.IsCurrent,
			&rc.OpenDate, &rc.CloseDate, &rc.LastUpdated, &rc.NameUpdatedAt,
			&rc.AddressUpdatedAt, &rc.ChefAssociationUpdatedAt,
			&rc.SeasonNumber, &rc.ChefName); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan restaurant row")
		}
		out = append(out, rc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list restaurants rows")
}

func (s *SQLiteStore) ListRestaurantsMissingAddress(ctx context.Context, country string) ([]model.Restaurant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+restaurantCols+` FROM restaurants WHERE address IS NULL AND country = ? ORDER BY id`,
		country)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list restaurants missing address")
	}
	defer rows.Close()

	var out []model.Restaurant
	for rows.Next() {
		r, err := scanRestaurantRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan restaurant row")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: restaurant rows")
}

func (s *SQLiteStore) CreateRestaurant(ctx context.Context, r model.Restaurant) (*model.Restaurant, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO restaurants (chef_id, name, description, lat, lng, address, season_id, city, country, is_current, open_date, close_date, last_updated, name_updated_at, address_updated_at, chef_association_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ChefID, r.Name, r.Description, r.Lat, r.Lng, r.Address, r.SeasonID,
		r.City, r.Country, r.IsCurrent, r.OpenDate, r.CloseDate,
		r.LastUpdated, r.NameUpdatedAt, r.AddressUpdatedAt, r.ChefAssociationUpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert restaurant %q", r.Name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last insert id")
	}
	r.ID = int(id)
	return &r, nil
}

func (s *SQLiteStore) UpdateRestaurant(ctx context.Context, id int, upd model.RestaurantUpdate) (*model.Restaurant, error) {
	query := `UPDATE restaurants SET last_updated = ?`
	args := []any{time.Now().UTC()}

	set := func(col string, val any) {
		query += fmt.Sprintf(`, %s = ?`, col)
		args = append(args, val)
	}
	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.Lat != nil {
		set("lat", *upd.Lat)
	}
	if upd.Lng != nil {
		set("lng", *upd.Lng)
	}
	if upd.Address != nil {
		set("address", *upd.Address)
	}
	if upd.City != nil {
		set("city", *upd.City)
	}
	if upd.Country != nil {
		set("country", *upd.Country)
	}
	if upd.IsCurrent != nil {
		set("is_current", *upd.IsCurrent)
	}
	if upd.OpenDate != nil {
		set("open_date", *upd.OpenDate)
	}
	if upd.CloseDate != nil {
		set("close_date", *upd.CloseDate)
	}

	query += ` WHERE id = ?`
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update restaurant %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetRestaurant(ctx, id)
}

func (s *SQLiteStore) SetRestaurantName(ctx context.Context, id int, name string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE restaurants SET name = ?, name_updated_at = ?, last_updated = ? WHERE id = ?`,
		name, at, at, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set restaurant name %d", id)
	}
	return checkAffected(res, "restaurant", id)
}

func (s *SQLiteStore) SetRestaurantAddress(ctx context.Context, id int, address *string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE restaurants SET address = ?, address_updated_at = ?, last_updated = ? WHERE id = ?`,
		address, at, at, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set restaurant address %d", id)
	}
	return checkAffected(res, "restaurant", id)
}

func (s *SQLiteStore) SetRestaurantChef(ctx context.Context, id, chefID int, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE restaurants SET chef_id = ?, chef_association_updated_at = ?, last_updated = ? WHERE id = ?`,
		chefID, at, at, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set restaurant chef %d", id)
	}
	return checkAffected(res, "restaurant", id)
}

func (s *SQLiteStore) TouchRestaurantField(ctx context.Context, id int, field model.Field, at time.Time) error {
	col, err := touchColumn(field)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE restaurants SET %s = ? WHERE id = ?`, col), at, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: touch %s on restaurant %d", field, id)
	}
	return checkAffected(res, "restaurant", id)
}

// --- Chefs ---

func scanChefRow(row rowScanner) (*model.Chef, error) {
	var c model.Chef
	var raw sql.NullString
	err := row.Scan(&c.ID, &c.Name, &c.Bio, &c.Status, &c.ImageURL, &c.LastUpdated, &raw)
	if err != nil {
		return nil, err
	}
	if raw.Valid {
		c.RawData = []byte(raw.String)
	}
	return &c, nil
}

func (s *SQLiteStore) GetChef(ctx context.Context, id int) (*model.Chef, error) {
	c, err := scanChefRow(s.db.QueryRowContext(ctx,
		`SELECT `+chefCols+` FROM chefs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get chef %d", id)
	}
	return c, nil
}

func (s *SQLiteStore) GetChefByName(ctx context.Context, name string) (*model.Chef, error) {
	c, err := scanChefRow(s.db.QueryRowContext(ctx,
		`SELECT `+chefCols+` FROM chefs WHERE name = ? OR name_normalized = ? LIMIT 1`,
		name, names.Normalize(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get chef by name %q", name)
	}
	return c, nil
}

func (s *SQLiteStore) GetChefDetail(ctx context.Context, id int) (*model.ChefDetail, error) {
	c, err := s.GetChef(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}

	detail := &model.ChefDetail{Chef: *c}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+restaurantCols+` FROM restaurants WHERE chef_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list restaurants for chef %d", id)
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanRestaurantRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan restaurant row")
		}
		detail.Restaurants = append(detail.Restaurants, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: restaurant rows")
	}

	prows, err := s.db.QueryContext(ctx,
		`SELECT `+participationCols+` FROM participations WHERE chef_id = ? ORDER BY season_id`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list participations for chef %d", id)
	}
	defer prows.Close()
	var seasonIDs []int
	for prows.Next() {
		var p model.Participation
		if err := prows.Scan(&p.ID, &p.ChefID, &p.SeasonID, &p.Placement, &p.IsWinner,
			&p.Eliminated, &p.EliminationEpisode, &p.WinCount, &p.Notes); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan participation row")
		}
		detail.Participations = append(detail.Participations, p)
		seasonIDs = append(seasonIDs, p.SeasonID)
	}
	if err := prows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: participation rows")
	}

	for _, sid := range seasonIDs {
		season, err := s.GetSeason(ctx, sid)
		if err != nil {
			return nil, err
		}
		if season != nil {
			detail.Seasons = append(detail.Seasons, *season)
		}
	}
	return detail, nil
}

func (s *SQLiteStore) CreateChef(ctx context.Context, c model.Chef) (*model.Chef, error) {
	var raw any
	if c.RawData != nil {
		raw = string(c.RawData)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chefs (name, name_normalized, bio, status, image_url, last_updated, raw_data)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Name, names.Normalize(c.Name), c.Bio, c.Status, c.ImageURL, c.LastUpdated, raw)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert chef %q", c.Name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last insert id")
	}
	c.ID = int(id)
	return &c, nil
}

func (s *SQLiteStore) UpdateChef(ctx context.Context, id int, upd model.ChefUpdate) (*model.Chef, error) {
	query := `UPDATE chefs SET last_updated = ?`
	args := []any{time.Now().UTC()}

	set := func(col string, val any) {
		query += fmt.Sprintf(`, %s = ?`, col)
		args = append(args, val)
	}
	if upd.Bio != nil {
		set("bio", *upd.Bio)
	}
	if upd.Status != nil {
		set("status", *upd.Status)
	}
	if upd.ImageURL != nil {
		set("image_url", *upd.ImageURL)
	}

	query += ` WHERE id = ?`
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update chef %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetChef(ctx, id)
}

func (s *SQLiteStore) SetChefBio(ctx context.Context, id int, bio *string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chefs SET bio = ?, last_updated = ? WHERE id = ?`,
		bio, at, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set chef bio %d", id)
	}
	return checkAffected(res, "chef", id)
}

// --- Seasons ---

func scanSeasonRow(row rowScanner) (*model.Season, error) {
	var se model.Season
	err := row.Scan(&se.ID, &se.Country, &se.Number, &se.Year, &se.Title, &se.EpisodeCount, &se.WinnerName)
	if err != nil {
		return nil, err
	}
	return &se, nil
}

func (s *SQLiteStore) GetSeason(ctx context.Context, id int) (*model.Season, error) {
	se, err := scanSeasonRow(s.db.QueryRowContext(ctx,
		`SELECT `+seasonCols+` FROM seasons WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get season %d", id)
	}
	return se, nil
}

func (s *SQLiteStore) GetSeasonByNumber(ctx context.Context, country string, number int) (*model.Season, error) {
	se, err := scanSeasonRow(s.db.QueryRowContext(ctx,
		`SELECT `+seasonCols+` FROM seasons WHERE country = ? AND number = ?`,
		country, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get season %s/%d", country, number)
	}
	return se, nil
}

func (s *SQLiteStore) ListSeasonsByCountry(ctx context.Context, country string) ([]model.Season, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+seasonCols+` FROM seasons WHERE country = ? ORDER BY number`, country)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list seasons for %s", country)
	}
	defer rows.Close()

	var out []model.Season
	for rows.Next() {
		se, err := scanSeasonRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan season row")
		}
		out = append(out, *se)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: season rows")
}

func (s *SQLiteStore) CreateSeason(ctx context.Context, se model.Season) (*model.Season, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO seasons (country, number, year, title, episode_count, winner_name)
		VALUES (?, ?, ?, ?, ?, ?)`,
		se.Country, se.Number, se.Year, se.Title, se.EpisodeCount, se.WinnerName)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert season %s/%d", se.Country, se.Number)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last insert id")
	}
	se.ID = int(id)
	return &se, nil
}

// --- Participations ---

func (s *SQLiteStore) CountParticipants(ctx context.Context, seasonID int) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM participations WHERE season_id = ?`, seasonID).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: count participants for season %d", seasonID)
	}
	return n, nil
}

func (s *SQLiteStore) UpsertParticipation(ctx context.Context, p model.Participation) (*model.Participation, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO participations (chef_id, season_id, placement, is_winner, eliminated, elimination_episode, win_count, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (chef_id, season_id) DO UPDATE SET
			placement           = COALESCE(participations.placement, excluded.placement),
			is_winner           = participations.is_winner OR excluded.is_winner,
			eliminated          = participations.eliminated OR excluded.eliminated,
			elimination_episode = COALESCE(participations.elimination_episode, excluded.elimination_episode),
			win_count           = MAX(participations.win_count, excluded.win_count),
			notes               = COALESCE(participations.notes, excluded.notes)
		RETURNING `+participationCols,
		p.ChefID, p.SeasonID, p.Placement, p.IsWinner, p.Eliminated,
		p.EliminationEpisode, p.WinCount, p.Notes,
	).Scan(&p.ID, &p.ChefID, &p.SeasonID, &p.Placement, &p.IsWinner,
		&p.Eliminated, &p.EliminationEpisode, &p.WinCount, &p.Notes)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert participation chef=%d season=%d", p.ChefID, p.SeasonID)
	}
	return &p, nil
}

// --- Countries ---

func (s *SQLiteStore) GetCountries(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT country FROM restaurants ORDER BY country`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get countries")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan country")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: country rows")
}

func checkAffected(res sql.Result, entity string, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %d", entity, id)
	}
	return nil
}
