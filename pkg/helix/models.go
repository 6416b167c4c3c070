package helix

// Response is the envelope shared by every Helix collection endpoint.
type Response[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination carries the continuation cursor. An empty cursor ends a sequence.
type Pagination struct {
	Cursor string `json:"cursor,omitempty"`
}

// Stream is a live broadcast returned by /streams.
type Stream struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	UserLogin   string   `json:"user_login"`
	UserName    string   `json:"user_name"`
	GameID      string   `json:"game_id"`
	GameName    string   `json:"game_name"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	ViewerCount int      `json:"viewer_count"`
	StartedAt   string   `json:"started_at"`
	Language    string   `json:"language"`
	Tags        []string `json:"tags,omitempty"`
}

// Channel is a /search/channels result.
type Channel struct {
	ID                  string `json:"id"`
	BroadcasterLogin    string `json:"broadcaster_login"`
	DisplayName         string `json:"display_name"`
	BroadcasterLanguage string `json:"broadcaster_language"`
	GameID              string `json:"game_id"`
	GameName            string `json:"game_name"`
	IsLive              bool   `json:"is_live"`
	Title               string `json:"title"`
	StartedAt           string `json:"started_at,omitempty"`
}

// User is a /users record.
type User struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	Type            string `json:"type"`
	BroadcasterType string `json:"broadcaster_type"`
	Description     string `json:"description"`
	ProfileImageURL string `json:"profile_image_url"`
	CreatedAt       string `json:"created_at"`
}

// ChannelInfo is a /channels record.
type ChannelInfo struct {
	BroadcasterID       string `json:"broadcaster_id"`
	BroadcasterLogin    string `json:"broadcaster_login"`
	BroadcasterName     string `json:"broadcaster_name"`
	BroadcasterLanguage string `json:"broadcaster_language"`
	GameID              string `json:"game_id"`
	GameName            string `json:"game_name"`
	Title               string `json:"title"`
}

// Game is a category from /games or /search/categories.
type Game struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoxArtURL string `json:"box_art_url"`
}
