package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwrk-planet/watchparty/internal/domain"
)

type Catalog struct {
	db *pgxpool.Pool
}

func NewCatalog(db *pgxpool.Pool) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) Rooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := c.db.Query(ctx, queryListRooms)
	if err != nil {
		return nil, unavailable("list rooms", err)
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, unavailable("scan room", err)
		}
		rooms = append(rooms, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list rooms", err)
	}
	return rooms, nil
}

func (c *Catalog) Room(ctx context.Context, id int64) (domain.Room, error) {
	rm, err := scanRoom(c.db.QueryRow(ctx, queryGetRoom, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Room{}, domain.ErrRoomNotFound
		}
		return domain.Room{}, unavailable("get room", err)
	}
	return rm, nil
}

func (c *Catalog) Users(ctx context.Context) ([]domain.User, error) {
	rows, err := c.db.Query(ctx, queryListUsers)
	if err != nil {
		return nil, unavailable("list users", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.User, error) {
		var u domain.User
		err := row.Scan(&u.ID, &u.Name, &u.AvatarEmoji)
		return u, err
	})
	if err != nil {
		return nil, unavailable("list users", err)
	}
	return users, nil
}

func (c *Catalog) User(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := c.db.QueryRow(ctx, queryGetUser, id).Scan(&u.ID, &u.Name, &u.AvatarEmoji)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, unavailable("get user", err)
	}
	return u, nil
}

func (c *Catalog) Movies(ctx context.Context) ([]domain.Movie, error) {
	rows, err := c.db.Query(ctx, queryListMovies)
	if err != nil {
		return nil, unavailable("list movies", err)
	}
	movies, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Movie])
	if err != nil {
		return nil, unavailable("list movies", err)
	}
	return movies, nil
}

func (c *Catalog) Movie(ctx context.Context, id int64) (domain.Movie, error) {
	rows, err := c.db.Query(ctx, queryGetMovie, id)
	if err != nil {
		return domain.Movie{}, unavailable("get movie", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[domain.Movie])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, domain.ErrMovieNotFound
		}
		return domain.Movie{}, unavailable("get movie", err)
	}
	return m, nil
}

func scanRoom(row pgx.Row) (domain.Room, error) {
	var (
		rm     domain.Room
		status string
	)
	if err := row.Scan(&rm.ID, &rm.Name, &rm.MovieID, &rm.PosterEmoji, &status, &rm.CreatedAt); err != nil {
		return domain.Room{}, err
	}
	rm.Status = domain.RoomStatus(status)
	return rm, nil
}
