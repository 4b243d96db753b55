package models

// Post is a language-learning post. MediaURL is either absolute or a path
// relative to the backend base URL.
type Post struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MediaURL    string `json:"media_url"`
	CreatedAt   string `json:"created_at"`
}

type Comment struct {
	ID          int64  `json:"id"`
	PostID      int64  `json:"post_id"`
	UserID      int64  `json:"user_id"`
	CommentText string `json:"comment_text"`
	CreatedAt   string `json:"created_at"`
}

type User struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profile_picture"`
	Bio            string `json:"bio"`
	CreatedAt      string `json:"created_at"`
}

// ChatMessage is one AI interaction as returned by /chat, /speech-to-text
// and /chat/history.
type ChatMessage struct {
	ID               int64  `json:"id"`
	UserID           int64  `json:"user_id"`
	UserInput        string `json:"user_input"`
	Action           string `json:"action"`
	Response         string `json:"response"`
	AudioPath        string `json:"audio_path"`
	DetectedLanguage string `json:"detected_language"`
	CreatedAt        string `json:"created_at"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type PostCreated struct {
	Message  string `json:"message"`
	PostID   int64  `json:"postId"`
	FilePath string `json:"filePath"`
}

type PostUpdated struct {
	Message string `json:"message"`
	Post    Post   `json:"post"`
}

type CommentCreated struct {
	Message   string `json:"message"`
	CommentID int64  `json:"commentId"`
}

type ExtractedDocument struct {
	Text string `json:"text"`
}
