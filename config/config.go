package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cwrk-planet/watchparty/internal/domain"
)

type HTTP struct {
	Addr            string        `yaml:"addr"`            // ":8080"
	ReadTimeout     time.Duration `yaml:"readTimeout"`     // "15s"
	WriteTimeout    time.Duration `yaml:"writeTimeout"`    // "30s"
	IdleTimeout     time.Duration `yaml:"idleTimeout"`     // "60s"
	RequestTimeout  time.Duration `yaml:"requestTimeout"`  // "30s"
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"` // "10s"
	CORSOrigins     []string      `yaml:"corsOrigins"`     // ["*"]
	WSPingEvery     time.Duration `yaml:"wsPingEvery"`     // "15s"
}

type GRPC struct {
	Addr     string        `yaml:"addr"`     // пусто: gRPC выключен
	Deadline time.Duration `yaml:"deadline"` // "10s", для вызовов без deadline
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // watchparty
	Version   string `yaml:"version"`   // v0.1.0
	Level     string `yaml:"level"`     // debug|info|warn|error
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Storage struct {
	Backend string `yaml:"backend"` // memory|postgres|redis
}

type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"maxConns"`
	MinConns        int32         `yaml:"minConns"`
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime time.Duration `yaml:"maxConnIdleTime"`
	Migrate         bool          `yaml:"migrate"` // применить схему и справочники при старте
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"` // "watchparty:"
}

type NATS struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subjectPrefix"` // "watchparty"
}

type Events struct {
	Backend string `yaml:"backend"` // local|nats
	NATS    NATS   `yaml:"nats"`
}

type Presence struct {
	Timeout       time.Duration `yaml:"timeout"`       // "60s"
	SweepInterval time.Duration `yaml:"sweepInterval"` // "5s"
}

type Chat struct {
	PollLimit        int `yaml:"pollLimit"`        // 50
	MaxMessageLength int `yaml:"maxMessageLength"` // 4000
}

type Movie struct {
	ID          int64   `yaml:"id"`
	Title       string  `yaml:"title"`
	Genre       string  `yaml:"genre"`
	DurationMin int     `yaml:"durationMin"`
	Rating      float64 `yaml:"rating"`
	PosterEmoji string  `yaml:"posterEmoji"`
}

type Room struct {
	ID          int64     `yaml:"id"`
	Name        string    `yaml:"name"`
	MovieID     int64     `yaml:"movieId"`
	PosterEmoji string    `yaml:"posterEmoji"`
	Status      string    `yaml:"status"` // active|closed
	CreatedAt   time.Time `yaml:"createdAt"`
}

type User struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	AvatarEmoji string `yaml:"avatarEmoji"`
}

// Catalog: справочники, заливаются в память или в Postgres.
type Catalog struct {
	Movies []Movie `yaml:"movies"`
	Rooms  []Room  `yaml:"rooms"`
	Users  []User  `yaml:"users"`
}

type Config struct {
	// Instances: сколько процессов обслуживают один и тот же набор комнат. Presence живёт
	// в памяти процесса, поэтому поддерживается только 1; шина NATS нужна внешним подписчикам.
	Instances int `yaml:"instances"`

	HTTP     HTTP     `yaml:"http"`
	GRPC     GRPC     `yaml:"grpc"`
	Logging  Logging  `yaml:"logging"`
	Storage  Storage  `yaml:"storage"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Events   Events   `yaml:"events"`
	Presence Presence `yaml:"presence"`
	Chat     Chat     `yaml:"chat"`
	Catalog  Catalog  `yaml:"catalog"`
}

func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	// установка дефолтов, если значения не указаны
	if c.Instances == 0 {
		c.Instances = 1
	}
	if c.Instances != 1 {
		return fmt.Errorf("instances=%d: presence is kept in process memory, run exactly one instance", c.Instances)
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.HTTP.RequestTimeout == 0 {
		c.HTTP.RequestTimeout = 30 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.HTTP.WSPingEvery == 0 {
		c.HTTP.WSPingEvery = 15 * time.Second
	}
	if len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = []string{"*"}
	}
	if c.GRPC.Deadline == 0 {
		c.GRPC.Deadline = 10 * time.Second
	}

	if c.Logging.Service == "" {
		c.Logging.Service = "watchparty"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}

	switch c.Storage.Backend {
	case "":
		c.Storage.Backend = "memory"
	case "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for storage.backend=postgres")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for storage.backend=redis")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "watchparty:"
	}

	switch c.Events.Backend {
	case "":
		c.Events.Backend = "local"
	case "local":
	case "nats":
		if c.Events.NATS.URL == "" {
			return errors.New("events.nats.url is required for events.backend=nats")
		}
	default:
		return fmt.Errorf("unknown events.backend %q", c.Events.Backend)
	}
	if c.Events.NATS.SubjectPrefix == "" {
		c.Events.NATS.SubjectPrefix = "watchparty"
	}

	if c.Presence.Timeout == 0 {
		c.Presence.Timeout = 60 * time.Second
	}
	if c.Presence.SweepInterval == 0 {
		c.Presence.SweepInterval = 5 * time.Second
	}
	if c.Presence.SweepInterval >= c.Presence.Timeout {
		return errors.New("presence.sweepInterval must be shorter than presence.timeout")
	}

	if c.Chat.PollLimit <= 0 {
		c.Chat.PollLimit = 50
	}
	if c.Chat.MaxMessageLength <= 0 {
		c.Chat.MaxMessageLength = 4000
	}

	return c.Catalog.validate()
}

func (c Catalog) validate() error {
	movies := make(map[int64]bool, len(c.Movies))
	for _, m := range c.Movies {
		if m.ID <= 0 || m.Title == "" {
			return fmt.Errorf("catalog.movies: invalid movie %+v", m)
		}
		movies[m.ID] = true
	}
	seen := make(map[int64]bool, len(c.Rooms))
	for _, r := range c.Rooms {
		if r.ID <= 0 || seen[r.ID] {
			return fmt.Errorf("catalog.rooms: invalid or duplicate id %d", r.ID)
		}
		seen[r.ID] = true
		if !movies[r.MovieID] {
			return fmt.Errorf("catalog.rooms: room %d references unknown movie %d", r.ID, r.MovieID)
		}
		switch domain.RoomStatus(r.Status) {
		case "", domain.RoomActive, domain.RoomClosed:
		default:
			return fmt.Errorf("catalog.rooms: room %d has unknown status %q", r.ID, r.Status)
		}
	}
	for _, u := range c.Users {
		if u.ID <= 0 || u.Name == "" {
			return fmt.Errorf("catalog.users: invalid user %+v", u)
		}
	}
	return nil
}

// Domain переводит справочники в доменные типы.
func (c Catalog) Domain() ([]domain.Movie, []domain.Room, []domain.User) {
	movies := make([]domain.Movie, 0, len(c.Movies))
	for _, m := range c.Movies {
		movies = append(movies, domain.Movie{
			ID:          m.ID,
			Title:       m.Title,
			Genre:       m.Genre,
			DurationMin: m.DurationMin,
			Rating:      m.Rating,
			PosterEmoji: m.PosterEmoji,
		})
	}
	rooms := make([]domain.Room, 0, len(c.Rooms))
	for _, r := range c.Rooms {
		status := domain.RoomStatus(r.Status)
		if status == "" {
			status = domain.RoomActive
		}
		rooms = append(rooms, domain.Room{
			ID:          r.ID,
			Name:        r.Name,
			MovieID:     r.MovieID,
			PosterEmoji: r.PosterEmoji,
			Status:      status,
			CreatedAt:   r.CreatedAt,
		})
	}
	users := make([]domain.User, 0, len(c.Users))
	for _, u := range c.Users {
		users = append(users, domain.User{ID: u.ID, Name: u.Name, AvatarEmoji: u.AvatarEmoji})
	}
	return movies, rooms, users
}
