package model

// TaskPatch carries an upsert. With ID set only the present fields are written.
type TaskPatch struct {
	ID          *int64          `json:"id,omitempty"`
	SpaceID     *int64          `json:"space_id,omitempty"`
	ListID      Nullable[int64] `json:"list_id,omitzero"`
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	AssigneeID  Nullable[int64] `json:"assignee_id,omitzero"`
	DueDate     *Date           `json:"due_date,omitempty"`
	Status      *Status         `json:"status,omitempty"`
	Priority    *Priority       `json:"priority,omitempty"`
	Tags        *[]string       `json:"tags,omitempty"`
	Subtasks    *[]Subtask      `json:"subtasks,omitempty"`
	BlockedByID Nullable[int64] `json:"blocked_by_id,omitzero"`
	Version     *int64          `json:"version,omitempty"`
}

// Apply copies the present fields onto t. It does not touch status; callers use ApplyStatus.
func (p TaskPatch) Apply(t *Task) {
	if p.SpaceID != nil {
		t.SpaceID = *p.SpaceID
	}
	if p.ListID.Set {
		t.ListID = p.ListID.Ptr()
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.AssigneeID.Set {
		t.AssigneeID = p.AssigneeID.Ptr()
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Subtasks != nil {
		t.Subtasks = append([]Subtask(nil), (*p.Subtasks)...)
	}
	if p.BlockedByID.Set {
		t.BlockedByID = p.BlockedByID.Ptr()
	}
}

type DailyTaskPatch struct {
	Text      *string   `json:"text,omitempty"`
	Status    *Status   `json:"status,omitempty"`
	Priority  *Priority `json:"priority,omitempty"`
	Schedule  *string   `json:"schedule,omitempty"`
	Unplanned *bool     `json:"unplanned,omitempty"`
}

type ProfilePatch struct {
	DisplayName *string `json:"display_name,omitempty"`
	FullName    *string `json:"full_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Position    *string `json:"position,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name" binding:"required"`
	FullName    string `json:"full_name"`
}

type LoginResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

type CreateSpaceRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Theme       string `json:"theme"`
}

type JoinSpaceRequest struct {
	Code string `json:"code" binding:"required"`
}

type CreateListRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

type StatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

type RoleRequest struct {
	Role Role `json:"role" binding:"required"`
}

type ScratchpadRequest struct {
	Content string `json:"content"`
}

// MemberEntry is one row of the member directory.
type MemberEntry struct {
	Profile
	Role    Role `json:"role"`
	IsOwner bool `json:"is_owner"`
}

// TaskDraft is an AI-proposed task before it is saved.
type TaskDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	DueInDays   int      `json:"due_in_days"`
	Subtasks    []string `json:"subtasks"`
	Tags        []string `json:"tags"`
}

type GenerateTasksRequest struct {
	SpaceID int64  `json:"space_id"`
	Prompt  string `json:"prompt" binding:"required"`
	Create  bool   `json:"create"`
}

type GenerateTasksResponse struct {
	Drafts  []TaskDraft `json:"drafts"`
	Created []Task      `json:"created,omitempty"`
}

type SummarizeRequest struct {
	SpaceID int64 `json:"space_id" binding:"required"`
}

type SummarizeResponse struct {
	Summary string `json:"summary"`
}
