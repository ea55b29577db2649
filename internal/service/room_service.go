package service

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/watchparty/internal/domain"
	"github.com/cwrk-planet/watchparty/internal/presence"
)

// RoomService — реестр комнат. Число зрителей не хранится, а считается из presence при каждом чтении.
type RoomService struct {
	catalog Catalog
	tracker *presence.Tracker
}

func NewRoomService(catalog Catalog, tracker *presence.Tracker) *RoomService {
	return &RoomService{catalog: catalog, tracker: tracker}
}

// ListActive возвращает активные комнаты, новые первыми.
func (s *RoomService) ListActive(ctx context.Context) ([]domain.RoomView, error) {
	rooms, err := s.catalog.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog.Rooms: %w", err)
	}
	titles, err := s.movieTitles(ctx)
	if err != nil {
		return nil, err
	}

	occupancy := s.tracker.Occupancy()
	out := make([]domain.RoomView, 0, len(rooms))
	for _, r := range rooms {
		if !r.Active() {
			continue
		}
		out = append(out, domain.RoomView{
			Room:        r,
			MovieTitle:  titles[r.MovieID],
			ViewerCount: occupancy[r.ID],
		})
	}
	return out, nil
}

// Get возвращает комнату по ID, в том числе закрытую.
func (s *RoomService) Get(ctx context.Context, id int64) (domain.RoomView, error) {
	r, err := s.catalog.Room(ctx, id)
	if err != nil {
		return domain.RoomView{}, err
	}
	view := domain.RoomView{
		Room:        r,
		ViewerCount: len(s.tracker.Snapshot(id)),
	}
	if m, err := s.catalog.Movie(ctx, r.MovieID); err == nil {
		view.MovieTitle = m.Title
	}
	return view, nil
}

func (s *RoomService) ListMovies(ctx context.Context) ([]domain.Movie, error) {
	movies, err := s.catalog.Movies(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog.Movies: %w", err)
	}
	return movies, nil
}

// WatchingTitles: название фильма для каждой комнаты.
func (s *RoomService) WatchingTitles(ctx context.Context) (map[int64]string, error) {
	rooms, err := s.catalog.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog.Rooms: %w", err)
	}
	titles, err := s.movieTitles(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(rooms))
	for _, r := range rooms {
		out[r.ID] = titles[r.MovieID]
	}
	return out, nil
}

func (s *RoomService) movieTitles(ctx context.Context) (map[int64]string, error) {
	movies, err := s.catalog.Movies(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog.Movies: %w", err)
	}
	out := make(map[int64]string, len(movies))
	for _, m := range movies {
		out[m.ID] = m.Title
	}
	return out, nil
}
