package model

// Season is one edition of the show within a country. Seasons are immutable
// after creation; there is no update path.
type Season struct {
	ID           int     `json:"id"`
	Country      string  `json:"country"`
	Number       int     `json:"number"`
	Year         *int    `json:"year"`
	Title        *string `json:"title"`
	EpisodeCount *int    `json:"episodeCount"`
	WinnerName   *string `json:"winnerName"`
}

// Participation links a chef to a season. Uniqueness of (chef, season) is
// enforced by a database constraint.
type Participation struct {
	ID                 int     `json:"id"`
	ChefID             int     `json:"chefId"`
	SeasonID           int     `json:"seasonId"`
	Placement          *int    `json:"placement"`
	IsWinner           bool    `json:"isWinner"`
	Eliminated         bool    `json:"eliminated"`
	EliminationEpisode *int    `json:"eliminationEpisode"`
	WinCount           int     `json:"winCount"`
	Notes              *string `json:"notes"`
}
