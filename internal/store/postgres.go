package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/chefatlas/atlas-cli/internal/db"
	"github.com/chefatlas/atlas-cli/internal/model"
	"github.com/chefatlas/atlas-cli/internal/names"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const restaurantCols = `id, chef_id, name, description, lat, lng, address, season_id, city, country, is_current, open_date, close_date, last_updated, name_updated_at, address_updated_at, chef_association_updated_at`

const chefCols = `id, name, bio, status, image_url, last_updated, raw_data`

const seasonCols = `id, country, number, year, title, episode_count, winner_name`

const participationCols = `id, chef_id, season_id, placement, is_winner, eliminated, elimination_episode, win_count, notes`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_restaurant":       `SELECT ` + restaurantCols + ` FROM restaurants WHERE id = $1`,
	"get_chef":             `SELECT ` + chefCols + ` FROM chefs WHERE id = $1`,
	"get_chef_by_name":     `SELECT ` + chefCols + ` FROM chefs WHERE name = $1 OR name_normalized = $2 LIMIT 1`,
	"get_season":           `SELECT ` + seasonCols + ` FROM seasons WHERE id = $1`,
	"touch_name":           `UPDATE restaurants SET name_updated_at = $1 WHERE id = $2`,
	"touch_address":        `UPDATE restaurants SET address_updated_at = $1 WHERE id = $2`,
	"touch_chef":           `UPDATE restaurants SET chef_association_updated_at = $1 WHERE id = $2`,
	"set_restaurant_name":  `UPDATE restaurants SET name = $1, name_updated_at = $2, last_updated = $2 WHERE id = $3`,
	"set_restaurant_addr":  `UPDATE restaurants SET address = $1, address_updated_at = $2, last_updated = $2 WHERE id = $3`,
	"set_restaurant_chef":  `UPDATE restaurants SET chef_id = $1, chef_association_updated_at = $2, last_updated = $2 WHERE id = $3`,
	"set_chef_bio":         `UPDATE chefs SET bio = $1, last_updated = $2 WHERE id = $3`,
	"count_participants":   `SELECT count(*) FROM participations WHERE season_id = $1`,
	"get_season_by_number": `SELECT ` + seasonCols + ` FROM seasons WHERE country = $1 AND number = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., the seed loader's bulk upsert).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS chefs (
	id              SERIAL PRIMARY KEY,
	name            TEXT NOT NULL UNIQUE,
	name_normalized TEXT NOT NULL,
	bio             TEXT,
	status          TEXT,
	image_url       TEXT,
	last_updated    TIMESTAMPTZ,
	raw_data        JSONB
);

CREATE INDEX IF NOT EXISTS idx_chefs_name_normalized ON chefs(name_normalized);

CREATE TABLE IF NOT EXISTS seasons (
	id            SERIAL PRIMARY KEY,
	country       TEXT NOT NULL,
	number        INTEGER NOT NULL,
	year          INTEGER,
	title         TEXT,
	episode_count INTEGER,
	winner_name   TEXT,
	UNIQUE (country, number)
);

CREATE INDEX IF NOT EXISTS idx_seasons_country ON seasons(country);

CREATE TABLE IF NOT EXISTS participations (
	id                  SERIAL PRIMARY KEY,
	chef_id             INTEGER NOT NULL REFERENCES chefs(id),
	season_id           INTEGER NOT NULL REFERENCES seasons(id),
	placement           INTEGER,
	is_winner           BOOLEAN NOT NULL DEFAULT FALSE,
	eliminated          BOOLEAN NOT NULL DEFAULT FALSE,
	elimination_episode INTEGER,
	win_count           INTEGER NOT NULL DEFAULT 0,
	notes               TEXT,
	UNIQUE (chef_id, season_id)
);

CREATE INDEX IF NOT EXISTS idx_participations_season_id ON participations(season_id);
CREATE INDEX IF NOT EXISTS idx_participations_chef_id ON participations(chef_id);

CREATE TABLE IF NOT EXISTS restaurants (
	id                          SERIAL PRIMARY KEY,
	chef_id                     INTEGER NOT NULL REFERENCES chefs(id),
	name                        TEXT NOT NULL,
	description                 TEXT,
	lat                         DOUBLE PRECISION NOT NULL,
	lng                         DOUBLE PRECISION NOT NULL,
	address                     TEXT,
	season_id                   INTEGER REFERENCES seasons(id),
	city                        TEXT NOT NULL,
	country                     TEXT NOT NULL,
	is_current                  BOOLEAN NOT NULL DEFAULT TRUE,
	open_date                   TEXT,
	close_date                  TEXT,
	last_updated                TIMESTAMPTZ,
	name_updated_at             TIMESTAMPTZ,
	address_updated_at          TIMESTAMPTZ,
	chef_association_updated_at TIMESTAMPTZ,
	UNIQUE (chef_id, name)
);

CREATE INDEX IF NOT EXISTS idx_restaurants_country ON restaurants(country);
CREATE INDEX IF NOT EXISTS idx_restaurants_chef_id ON restaurants(chef_id);
CREATE INDEX IF NOT EXISTS idx_restaurants_season_id ON restaurants(season_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Restaurants ---

func scanRestaurant(row pgx.Row) (*model.Restaurant, error) {
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

func (s *PostgresStore) GetRestaurant(ctx context.Context, id int) (*model.Restaurant, error) {
	r, err := scanRestaurant(s.pool.QueryRow(ctx,
		`SELECT `+restaurantCols+` FROM restaurants WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get restaurant %d", id)
	}
	return r, nil
}

func (s *PostgresStore) GetRestaurantDetail(ctx context.Context, id int) (*model.RestaurantDetail, error) {
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

func (s *PostgresStore) ListRestaurants(ctx context.Context, filter RestaurantFilter) ([]model.RestaurantWithContext, error) {
	query := `SELECT r.id, r.chef_id, r.name, r.description, r.lat, r.lng, r.address,
		r.season_id, r.city, r.country, r.is_current, r.open_date, r.close_date,
		r.last_updated, r.name_updated_at, r.address_updated_at, r.chef_association_updated_at,
		s.number, c.name
	FROM restaurants r
	JOIN chefs c ON c.id = r.chef_id
	LEFT JOIN seasons s ON s.id = r.season_id
	WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Country != "" {
		query += fmt.Sprintf(` AND r.country = $%d`, argIdx)
		args = append(args, filter.Country)
		argIdx++
	}
	if filter.Season > 0 {
		query += fmt.Sprintf(` AND s.number = $%d`, argIdx)
		args = append(args, filter.Season)
		argIdx++
	}
	query += ` ORDER BY r.id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list restaurants")
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
			return nil, eris.Wrap(err, "postgres: scan restaurant row")
		}
		out = append(out, rc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list restaurants rows")
}

func (s *PostgresStore) ListRestaurantsMissingAddress(ctx context.Context, country string) ([]model.Restaurant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+restaurantCols+` FROM restaurants WHERE address IS NULL AND country = $1 ORDER BY id`,
		country)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list restaurants missing address")
	}
	defer rows.Close()

	var out []model.Restaurant
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan restaurant row")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list restaurants missing address rows")
}

func (s *PostgresStore) CreateRestaurant(ctx context.Context, r model.Restaurant) (*model.Restaurant, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO restaurants (chef_id, name, description, lat, lng, address, season_id, city, country, is_current, open_date, close_date, last_updated, name_updated_at, address_updated_at, chef_association_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		r.ChefID, r.Name, r.Description, r.Lat, r.Lng, r.Address, r.SeasonID,
		r.City, r.Country, r.IsCurrent, r.OpenDate, r.CloseDate,
		r.LastUpdated, r.NameUpdatedAt, r.AddressUpdatedAt, r.ChefAssociationUpdatedAt,
	).Scan(&r.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert restaurant %q", r.Name)
	}
	return &r, nil
}

func (s *PostgresStore) UpdateRestaurant(ctx context.Context, id int, upd model.RestaurantUpdate) (*model.Restaurant, error) {
	query := `UPDATE restaurants SET last_updated = $1`
	args := []any{time.Now().UTC()}
	argIdx := 2

	set := func(col string, val any) {
		query += fmt.Sprintf(`, %s = $%d`, col, argIdx)
		args = append(args, val)
		argIdx++
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

	query += fmt.Sprintf(` WHERE id = $%d RETURNING `+restaurantCols, argIdx)
	args = append(args, id)

	r, err := scanRestaurant(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update restaurant %d", id)
	}
	return r, nil
}

func (s *PostgresStore) SetRestaurantName(ctx context.Context, id int, name string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE restaurants SET name = $1, name_updated_at = $2, last_updated = $2 WHERE id = $3`,
		name, at, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set restaurant name %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("restaurant not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) SetRestaurantAddress(ctx context.Context, id int, address *string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE restaurants SET address = $1, address_updated_at = $2, last_updated = $2 WHERE id = $3`,
		address, at, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set restaurant address %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("restaurant not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) SetRestaurantChef(ctx context.Context, id, chefID int, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE restaurants SET chef_id = $1, chef_association_updated_at = $2, last_updated = $2 WHERE id = $3`,
		chefID, at, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set restaurant chef %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("restaurant not found: %d", id)
	}
	return nil
}

func touchColumn(field model.Field) (string, error) {
	switch field {
	case model.FieldRestaurantName:
		return "name_updated_at", nil
	case model.FieldAddress:
		return "address_updated_at", nil
	case model.FieldCurrentChefName:
		return "chef_association_updated_at", nil
	default:
		return "", eris.Errorf("store: no restaurant timestamp column for field %q", field)
	}
}

func (s *PostgresStore) TouchRestaurantField(ctx context.Context, id int, field model.Field, at time.Time) error {
	col, err := touchColumn(field)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE restaurants SET %s = $1 WHERE id = $2`, col), at, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: touch %s on restaurant %d", field, id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("restaurant not found: %d", id)
	}
	return nil
}

// --- Chefs ---

func scanChef(row pgx.Row) (*model.Chef, error) {
	var c model.Chef
	err := row.Scan(&c.ID, &c.Name, &c.Bio, &c.Status, &c.ImageURL, &c.LastUpdated, &c.RawData)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) GetChef(ctx context.Context, id int) (*model.Chef, error) {
	c, err := scanChef(s.pool.QueryRow(ctx,
		`SELECT `+chefCols+` FROM chefs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get chef %d", id)
	}
	return c, nil
}

func (s *PostgresStore) GetChefByName(ctx context.Context, name string) (*model.Chef, error) {
	c, err := scanChef(s.pool.QueryRow(ctx,
		`SELECT `+chefCols+` FROM chefs WHERE name = $1 OR name_normalized = $2 LIMIT 1`,
		name, names.Normalize(name)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get chef by name %q", name)
	}
	return c, nil
}

func (s *PostgresStore) GetChefDetail(ctx context.Context, id int) (*model.ChefDetail, error) {
	c, err := s.GetChef(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}

	detail := &model.ChefDetail{Chef: *c}

	rows, err := s.pool.Query(ctx,
		`SELECT `+restaurantCols+` FROM restaurants WHERE chef_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list restaurants for chef %d", id)
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan restaurant row")
		}
		detail.Restaurants = append(detail.Restaurants, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: restaurant rows")
	}

	prows, err := s.pool.Query(ctx,
		`SELECT `+participationCols+` FROM participations WHERE chef_id = $1 ORDER BY season_id`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list participations for chef %d", id)
	}
	defer prows.Close()
	var seasonIDs []int
	for prows.Next() {
		var p model.Participation
		if err := prows.Scan(&p.ID, &p.ChefID, &p.SeasonID, &p.Placement, &p.IsWinner,
			&p.Eliminated, &p.EliminationEpisode, &p.WinCount, &p.Notes); err != nil {
			return nil, eris.Wrap(err, "postgres: scan participation row")
		}
		detail.Participations = append(detail.Participations, p)
		seasonIDs = append(seasonIDs, p.SeasonID)
	}
	if err := prows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: participation rows")
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

func (s *PostgresStore) CreateChef(ctx context.Context, c model.Chef) (*model.Chef, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO chefs (name, name_normalized, bio, status, image_url, last_updated, raw_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		c.Name, names.Normalize(c.Name), c.Bio, c.Status, c.ImageURL, c.LastUpdated, c.RawData,
	).Scan(&c.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert chef %q", c.Name)
	}
	return &c, nil
}

func (s *PostgresStore) UpdateChef(ctx context.Context, id int, upd model.ChefUpdate) (*model.Chef, error) {
	query := `UPDATE chefs SET last_updated = $1`
	args := []any{time.Now().UTC()}
	argIdx := 2

	set := func(col string, val any) {
		query += fmt.Sprintf(`, %s = $%d`, col, argIdx)
		args = append(args, val)
		argIdx++
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

	query += fmt.Sprintf(` WHERE id = $%d RETURNING `+chefCols, argIdx)
	args = append(args, id)

	c, err := scanChef(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update chef %d", id)
	}
	return c, nil
}

func (s *PostgresStore) SetChefBio(ctx context.Context, id int, bio *string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE chefs SET bio = $1, last_updated = $2 WHERE id = $3`,
		bio, at, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set chef bio %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("chef not found: %d", id)
	}
	return nil
}

// --- Seasons ---

func scanSeason(row pgx.Row) (*model.Season, error) {
	var se model.Season
	err := row.Scan(&se.ID, &se.Country, &se.Number, &se.Year, &se.Title, &se.EpisodeCount, &se.WinnerName)
	if err != nil {
		return nil, err
	}
	return &se, nil
}

func (s *PostgresStore) GetSeason(ctx context.Context, id int) (*model.Season, error) {
	se, err := scanSeason(s.pool.QueryRow(ctx,
		`SELECT `+seasonCols+` FROM seasons WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get season %d", id)
	}
	return se, nil
}

func (s *PostgresStore) GetSeasonByNumber(ctx context.Context, country string, number int) (*model.Season, error) {
	se, err := scanSeason(s.pool.QueryRow(ctx,
		`SELECT `+seasonCols+` FROM seasons WHERE country = $1 AND number = $2`,
		country, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get season %s/%d", country, number)
	}
	return se, nil
}

func (s *PostgresStore) ListSeasonsByCountry(ctx context.Context, country string) ([]model.Season, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+seasonCols+` FROM seasons WHERE country = $1 ORDER BY number`, country)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list seasons for %s", country)
	}
	defer rows.Close()

	var out []model.Season
	for rows.Next() {
		se, err := scanSeason(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan season row")
		}
		out = append(out, *se)
	}
	return out, eris.Wrap(rows.Err(), "postgres: season rows")
}

func (s *PostgresStore) CreateSeason(ctx context.Context, se model.Season) (*model.Season, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO seasons (country, number, year, title, episode_count, winner_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		se.Country, se.Number, se.Year, se.Title, se.EpisodeCount, se.WinnerName,
	).Scan(&se.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert season %s/%d", se.Country, se.Number)
	}
	return &se, nil
}

// --- Participations ---

func (s *PostgresStore) CountParticipants(ctx context.Context, seasonID int) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM participations WHERE season_id = $1`, seasonID).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: count participants for season %d", seasonID)
	}
	return n, nil
}

// UpsertParticipation inserts a (chef, season) link. On conflict, fields that
// already hold non-null values are kept; only gaps are filled.
func (s *PostgresStore) UpsertParticipation(ctx context.Context, p model.Participation) (*model.Participation, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO participations (chef_id, season_id, placement, is_winner, eliminated, elimination_episode, win_count, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (chef_id, season_id) DO UPDATE SET
			placement           = COALESCE(participations.placement, EXCLUDED.placement),
			is_winner           = participations.is_winner OR EXCLUDED.is_winner,
			eliminated          = participations.eliminated OR EXCLUDED.eliminated,
			elimination_episode = COALESCE(participations.elimination_episode, EXCLUDED.elimination_episode),
			win_count           = GREATEST(participations.win_count, EXCLUDED.win_count),
			notes               = COALESCE(participations.notes, EXCLUDED.notes)
		RETURNING `+participationCols,
		p.ChefID, p.SeasonID, p.Placement, p.IsWinner, p.Eliminated,
		p.EliminationEpisode, p.WinCount, p.Notes,
	).Scan(&p.ID, &p.ChefID, &p.SeasonID, &p.Placement, &p.IsWinner,
		&p.Eliminated, &p.EliminationEpisode, &p.WinCount, &p.Notes)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert participation chef=%d season=%d", p.ChefID, p.SeasonID)
	}
	return &p, nil
}

// --- Countries ---

func (s *PostgresStore) GetCountries(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT country FROM restaurants ORDER BY country`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get countries")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, eris.Wrap(err, "postgres: scan country")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: country rows")
}
