package domain

type Movie struct {
	ID          int64   `db:"id"`
	Title       string  `db:"title"`
	Genre       string  `db:"genre"`
	DurationMin int     `db:"duration_min"`
	Rating      float64 `db:"rating"`
	PosterEmoji string  `db:"poster_emoji"`
}
