package studyhall

import "encoding/json"

// ============================================================================
// Shared Types
// ============================================================================

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// Result is the generic API response envelope.
type Result struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Meta  map[string]any  `json:"meta,omitempty"`
	Error *APIError       `json:"error,omitempty"`
}

// Decode unmarshals the Data field into the provided type.
func (r *Result) Decode(v interface{}) error {
	if r.Data == nil {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// Err returns the embedded APIError as an error, or nil when the result is OK.
func (r *Result) Err() error {
	if r.OK {
		return nil
	}
	if r.Error != nil {
		return r.Error
	}
	return &APIError{Code: "UNKNOWN", Message: "request failed"}
}

// ============================================================================
// Auth Types
// ============================================================================

// User is a StudyHall account.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// LoginOptions are the credentials for a password login.
type LoginOptions struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginData is returned by a successful login.
type LoginData struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    string `json:"expiresIn,omitempty"`
	User         User   `json:"user"`
}

// TokenData is returned by a token refresh.
type TokenData struct {
	Token     string `json:"token"`
	ExpiresIn string `json:"expiresIn,omitempty"`
}

// ============================================================================
// Group Types
// ============================================================================

// Group is a study group.
type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Subject     string `json:"subject,omitempty"`
	OwnerID     string `json:"ownerId"`
	MemberCount int    `json:"memberCount,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// GroupMember is a member of a study group.
type GroupMember struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role"`
	JoinedAt    string `json:"joinedAt,omitempty"`
}

// CreateGroupOptions configures group creation.
type CreateGroupOptions struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Subject     string `json:"subject,omitempty"`
}

// Message is a chat message in a group room.
type Message struct {
	ID         string `json:"id"`
	GroupID    string `json:"groupId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName,omitempty"`
	Content    string `json:"content"`
	Type       string `json:"type,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

// ============================================================================
// Task / Note / Resource Types
// ============================================================================

// Task is a group task.
type Task struct {
	ID          string `json:"id"`
	GroupID     string `json:"groupId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Priority    string `json:"priority,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	AssigneeID  string `json:"assigneeId,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// TaskOptions configures task creation and updates.
type TaskOptions struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	AssigneeID  string `json:"assigneeId,omitempty"`
}

// Note is a shared study note.
type Note struct {
	ID        string   `json:"id"`
	GroupID   string   `json:"groupId"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	AuthorID  string   `json:"authorId"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

// NoteOptions configures note creation and updates.
type NoteOptions struct {
	Title   string   `json:"title,omitempty"`
	Content string   `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Resource is a shared learning resource (link or uploaded file).
type Resource struct {
	ID          string `json:"id"`
	GroupID     string `json:"groupId"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description,omitempty"`
	UploaderID  string `json:"uploaderId"`
	CreatedAt   string `json:"createdAt"`
}

// ResourceOptions configures resource creation.
type ResourceOptions struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description,omitempty"`
}

// ============================================================================
// Notification Types
// ============================================================================

// Notification is a single delivered notification.
type Notification struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	Link      string `json:"link,omitempty"`
	Category  string `json:"category,omitempty"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt"`
}

// NotificationPage is one page of notifications, most recent first.
type NotificationPage struct {
	Items    []Notification `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

// UnreadCountData is the independently fetched unread counter.
type UnreadCountData struct {
	Count int `json:"count"`
}

// ChannelFlags are the delivery channels enabled for one notification category.
type ChannelFlags struct {
	InApp bool `json:"inApp"`
	Email bool `json:"email"`
}

// PreferenceSet maps a notification category to its delivery channels.
type PreferenceSet map[string]ChannelFlags

// ============================================================================
// Pagination
// ============================================================================

// PaginationOptions selects a page of a list endpoint.
type PaginationOptions struct {
	Page  int
	Limit int
}
