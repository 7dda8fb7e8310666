package model

import "time"

type Profile struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:191;uniqueIndex" json:"email"`
	Password     string    `json:"-"`
	DisplayName  string    `gorm:"size:100" json:"display_name"`
	FullName     string    `gorm:"size:200" json:"full_name,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Phone        string    `gorm:"size:50" json:"phone,omitempty"`
	Position     string    `gorm:"size:100" json:"position,omitempty"`
	IsSuperAdmin bool      `gorm:"default:false" json:"is_super_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

type Space struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	JoinCode    string    `gorm:"size:16;uniqueIndex" json:"join_code"`
	OwnerID     int64     `gorm:"index;not null" json:"owner_id"`
	Description string    `json:"description,omitempty"`
	Theme       string    `gorm:"size:50" json:"theme,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Members     []int64   `gorm:"-" json:"members"`
}

// SpaceMember is the authoritative per-space role. Space.Members is derived from it.
type SpaceMember struct {
	SpaceID  int64     `gorm:"primaryKey;autoIncrement:false" json:"space_id"`
	UserID   int64     `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	Role     Role      `gorm:"size:20;not null;default:member" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

type List struct {
	ID      int64  `gorm:"primaryKey" json:"id"`
	SpaceID int64  `gorm:"index;not null" json:"space_id"`
	Name    string `gorm:"size:100;not null" json:"name"`
	Color   string `gorm:"size:20" json:"color"`
}

type Task struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	SpaceID        int64      `gorm:"index;not null" json:"space_id"`
	ListID         *int64     `gorm:"index" json:"list_id"`
	Title          string     `gorm:"size:255;not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	AssigneeID     *int64     `gorm:"index" json:"assignee_id"`
	CreatorID      int64      `json:"creator_id"`
	DueDate        Date       `gorm:"type:date" json:"due_date"`
	Status         Status     `gorm:"size:20;not null;default:todo" json:"status"`
	Priority       Priority   `gorm:"size:20;not null;default:medium" json:"priority"`
	Tags           []string   `gorm:"serializer:json;type:text" json:"tags"`
	Subtasks       []Subtask  `gorm:"foreignKey:TaskID" json:"subtasks"`
	Comments       []Comment  `gorm:"foreignKey:TaskID" json:"comments"`
	TimeLogs       []TimeLog  `gorm:"foreignKey:TaskID" json:"time_logs"`
	TimerStartTime *time.Time `json:"timer_start_time"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	BlockedByID    *int64     `json:"blocked_by_id"`
	Version        int64      `gorm:"not null;default:1" json:"version"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type Subtask struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	TaskID    int64  `gorm:"index;not null" json:"-"`
	Title     string `gorm:"size:255;not null" json:"title"`
	Completed bool   `json:"completed"`
}

type Comment struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	TaskID    int64     `gorm:"index;not null" json:"task_id"`
	AuthorID  int64     `json:"author_id"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type TimeLog struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	TaskID     int64     `gorm:"index;not null" json:"task_id"`
	UserID     int64     `json:"user_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	DurationMs int64     `json:"duration_ms"`
}

type DailyTask struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	Text      string    `gorm:"type:text" json:"text"`
	Status    Status    `gorm:"size:20;not null;default:todo" json:"status"`
	Priority  Priority  `gorm:"size:20;not null;default:medium" json:"priority"`
	Schedule  string    `gorm:"size:100" json:"schedule,omitempty"`
	Unplanned bool      `json:"unplanned"`
	CreatedAt time.Time `json:"created_at"`
}

type Scratchpad struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Content   string    `gorm:"type:text" json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Notification struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	Kind      string    `gorm:"size:40" json:"kind"`
	Message   string    `json:"message"`
	TaskID    *int64    `json:"task_id,omitempty"`
	SpaceID   *int64    `json:"space_id,omitempty"`
	Read      bool      `gorm:"column:is_read" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type Preferences struct {
	UserID           int64  `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Theme            string `gorm:"size:20;default:system" json:"theme"`
	DefaultView      string `gorm:"size:20;default:board" json:"default_view"`
	WeekStartsMonday bool   `json:"week_starts_monday"`
}

const (
	NotifyTaskAssigned = "task_assigned"
	NotifyComment      = "comment"
	NotifyMemberJoined = "member_joined"
)

func (Profile) TableName() string      { return "profiles" }
func (Space) TableName() string        { return "spaces" }
func (SpaceMember) TableName() string  { return "space_members" }
func (List) TableName() string         { return "lists" }
func (Task) TableName() string         { return "tasks" }
func (Subtask) TableName() string      { return "subtasks" }
func (Comment) TableName() string      { return "comments" }
func (TimeLog) TableName() string      { return "time_logs" }
func (DailyTask) TableName() string    { return "daily_tasks" }
func (Scratchpad) TableName() string   { return "scratchpads" }
func (Notification) TableName() string { return "notifications" }
func (Preferences) TableName() string  { return "preferences" }

// All lists every table for AutoMigrate.
func All() []any {
	return []any{
		&Profile{}, &Space{}, &SpaceMember{}, &List{}, &Task{}, &Subtask{}, &Comment{},
		&TimeLog{}, &DailyTask{}, &Scratchpad{}, &Notification{}, &Preferences{},
	}
}
