package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/cwrk-planet/watchparty/internal/domain"
)

// Catalog — справочник фильмов, комнат и пользователей в памяти.
type Catalog struct {
	mu     sync.RWMutex
	movies map[int64]domain.Movie
	rooms  map[int64]domain.Room
	users  map[int64]domain.User
}

func NewCatalog(movies []domain.Movie, rooms []domain.Room, users []domain.User) *Catalog {
	c := &Catalog{
		movies: make(map[int64]domain.Movie, len(movies)),
		rooms:  make(map[int64]domain.Room, len(rooms)),
		users:  make(map[int64]domain.User, len(users)),
	}
	for _, m := range movies {
		c.movies[m.ID] = m
	}
	for _, r := range rooms {
		if r.Status == "" {
			r.Status = domain.RoomActive
		}
		c.rooms[r.ID] = r
	}
	for _, u := range users {
		c.users[u.ID] = u
	}
	return c
}

// Rooms: новые комнаты первыми.
func (c *Catalog) Rooms(_ context.Context) ([]domain.Room, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b domain.Room) int {
		if n := b.CreatedAt.Compare(a.CreatedAt); n != 0 {
			return n
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (c *Catalog) Room(_ context.Context, id int64) (domain.Room, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return r, nil
}

func (c *Catalog) Users(_ context.Context) ([]domain.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.User, 0, len(c.users))
	for _, u := range c.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b domain.User) int {
		if n := strings.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (c *Catalog) User(_ context.Context, id int64) (domain.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	u, ok := c.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (c *Catalog) Movies(_ context.Context) ([]domain.Movie, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Movie, 0, len(c.movies))
	for _, m := range c.movies {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b domain.Movie) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (c *Catalog) Movie(_ context.Context, id int64) (domain.Movie, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.movies[id]
	if !ok {
		return domain.Movie{}, domain.ErrMovieNotFound
	}
	return m, nil
}
