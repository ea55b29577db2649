package postgres

const (
	queryLockRoom = `SELECT status FROM rooms WHERE id = $1 FOR UPDATE`
	queryNextSeq  = `
		UPDATE rooms
		SET last_seq = last_seq + 1
		WHERE id = $1
		RETURNING last_seq`
	queryInsertMessage = `
		INSERT INTO messages (room_id, seq, user_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	queryRoomExists = `SELECT EXISTS(SELECT 1 FROM rooms WHERE id = $1)`
	queryReadSince  = `
		SELECT seq, room_id, user_id, body, created_at
		FROM messages
		WHERE room_id = $1 AND seq > $2
		ORDER BY seq
		LIMIT $3`

	queryListRooms = `
		SELECT id, name, movie_id, poster_emoji, status, created_at
		FROM rooms
		ORDER BY created_at DESC, id DESC`
	queryGetRoom = `
		SELECT id, name, movie_id, poster_emoji, status, created_at
		FROM rooms
		WHERE id = $1`
	queryListUsers = `SELECT id, name, avatar_emoji FROM users ORDER BY name, id`
	queryGetUser   = `SELECT id, name, avatar_emoji FROM users WHERE id = $1`
	queryListMovies = `
		SELECT id, title, genre, duration_min, rating, poster_emoji
		FROM movies
		ORDER BY id`
	queryGetMovie = `
		SELECT id, title, genre, duration_min, rating, poster_emoji
		FROM movies
		WHERE id = $1`

	querySeedMovie = `
		INSERT INTO movies (id, title, genre, duration_min, rating, poster_emoji)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`
	querySeedRoom = `
		INSERT INTO rooms (id, name, movie_id, poster_emoji, status, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
		ON CONFLICT (id) DO NOTHING`
	querySeedUser = `
		INSERT INTO users (id, name, avatar_emoji)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`
)
