package models

// Document is an uploaded PDF after text extraction.
type Document struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	PageCount int    `json:"pageCount"`
	FileSize  string `json:"fileSize"`

	// Data holds the original file bytes for visual rendering.
	Data []byte `json:"-"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type ChatMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
