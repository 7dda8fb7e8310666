package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"taskflow/internal/logger"
	"taskflow/internal/model"

	"gorm.io/gorm"
)

const (
	joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	joinCodeLength   = 6
)

// Access is a user's resolved standing in one space.
type Access struct {
	Space *model.Space
	User  *model.Profile
	Role  model.Role
}

func (a *Access) IsAdmin() bool { return a.Role == model.RoleAdmin }

// loadAccess resolves userID's role in spaceID. Non-members other than super-admins get ForbiddenError.
func loadAccess(ctx context.Context, db *gorm.DB, userID, spaceID int64) (*Access, error) {
	space, err := first[model.Space](ctx, db, "space", spaceID)
	if err != nil {
		return nil, err
	}
	user, err := first[model.Profile](ctx, db, "profile", userID)
	if err != nil {
		return nil, err
	}
	var rows []model.SpaceMember
	if err := db.WithContext(ctx).Where("space_id = ? AND user_id = ?", spaceID, userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query membership: %w", err)
	}
	if !user.IsSuperAdmin && !model.IsMember(userID, space, rows) {
		return nil, model.ForbiddenError{Action: "access space"}
	}
	return &Access{Space: space, User: user, Role: model.ResolveRole(user, space, rows)}, nil
}

type SpaceService struct {
	db     *gorm.DB
	notify *NotificationService
}

func NewSpaceService(db *gorm.DB, notify *NotificationService) *SpaceService {
	return &SpaceService{db: db, notify: notify}
}

func (s *SpaceService) Access(ctx context.Context, userID, spaceID int64) (*Access, error) {
	return loadAccess(ctx, s.db, userID, spaceID)
}

// GetSpaces returns the spaces userID belongs to (all spaces for a super-admin), with Members filled.
func (s *SpaceService) GetSpaces(ctx context.Context, userID int64) ([]model.Space, error) {
	user, err := first[model.Profile](ctx, s.db, "profile", userID)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&model.Space{})
	if !user.IsSuperAdmin {
		q = q.Where("owner_id = ? OR id IN (?)", userID,
			s.db.Model(&model.SpaceMember{}).Select("space_id").Where("user_id = ?", userID))
	}
	var spaces []model.Space
	if err := q.Order("created_at, id").Find(&spaces).Error; err != nil {
		return nil, fmt.Errorf("query spaces: %w", err)
	}
	if err := s.fillMembers(ctx, spaces); err != nil {
		return nil, err
	}
	return spaces, nil
}

func (s *SpaceService) fillMembers(ctx context.Context, spaces []model.Space) error {
	if len(spaces) == 0 {
		return nil
	}
	ids := make([]int64, len(spaces))
	for i := range spaces {
		ids[i] = spaces[i].ID
	}
	var rows []model.SpaceMember
	if err := s.db.WithContext(ctx).Where("space_id IN ?", ids).Order("joined_at, user_id").Find(&rows).Error; err != nil {
		return fmt.Errorf("query members: %w", err)
	}
	bySpace := make(map[int64][]int64, len(spaces))
	for _, r := range rows {
		bySpace[r.SpaceID] = append(bySpace[r.SpaceID], r.UserID)
	}
	for i := range spaces {
		members := bySpace[spaces[i].ID]
		if !containsID(members, spaces[i].OwnerID) {
			members = append([]int64{spaces[i].OwnerID}, members...)
		}
		spaces[i].Members = members
	}
	return nil
}

func (s *SpaceService) CreateSpace(ctx context.Context, ownerID int64, req model.CreateSpaceRequest) (*model.Space, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, model.ErrNameRequired
	}
	space := &model.Space{
		Name:        name,
		OwnerID:     ownerID,
		Description: req.Description,
		Theme:       req.Theme,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := uniqueJoinCode(tx)
		if err != nil {
			return err
		}
		space.JoinCode = code
		if err := tx.Create(space).Error; err != nil {
			return fmt.Errorf("insert space: %w", err)
		}
		owner := model.SpaceMember{SpaceID: space.ID, UserID: ownerID, Role: model.RoleAdmin}
		if err := tx.Create(&owner).Error; err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	space.Members = []int64{ownerID}
	logger.From(ctx).Info("space.create", "space_id", space.ID, "owner_id", ownerID, "code", space.JoinCode)
	return space, nil
}

func uniqueJoinCode(tx *gorm.DB) (string, error) {
	for i := 0; i < 8; i++ {
		code, err := newJoinCode()
		if err != nil {
			return "", err
		}
		var n int64
		if err := tx.Model(&model.Space{}).Where("join_code = ?", code).Count(&n).Error; err != nil {
			return "", fmt.Errorf("check join code: %w", err)
		}
		if n == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique join code")
}

func newJoinCode() (string, error) {
	buf := make([]byte, joinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate join code: %w", err)
	}
	for i, b := range buf {
		buf[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(buf), nil
}

// JoinSpace adds userID to the space whose code matches. Repeating the call returns ErrAlreadyMember
// and never creates a second membership row.
func (s *SpaceService) JoinSpace(ctx context.Context, code string, userID int64) (*model.Space, error) {
	norm := model.NormalizeJoinCode(code)
	if norm == "" {
		return nil, model.NotFoundError{Kind: "space", ID: code}
	}

	var space model.Space
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("join_code = ?", norm).First(&space).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.NotFoundError{Kind: "space", ID: norm}
			}
			return fmt.Errorf("query space by code: %w", err)
		}
		if space.OwnerID == userID {
			return model.ErrAlreadyMember
		}
		var n int64
		if err := tx.Model(&model.SpaceMember{}).Where("space_id = ? AND user_id = ?", space.ID, userID).Count(&n).Error; err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if n > 0 {
			return model.ErrAlreadyMember
		}
		row := model.SpaceMember{SpaceID: space.ID, UserID: userID, Role: model.RoleMember}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return model.ErrAlreadyMember
			}
			return fmt.Errorf("insert membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	spaces := []model.Space{space}
	if err := s.fillMembers(ctx, spaces); err != nil {
		return nil, err
	}
	logger.From(ctx).Info("space.join", "space_id", space.ID, "user_id", userID)

	joiner, _ := first[model.Profile](ctx, s.db, "profile", userID)
	name := "A new member"
	if joiner != nil && joiner.DisplayName != "" {
		name = joiner.DisplayName
	}
	s.notify.notify(ctx, space.OwnerID, model.NotifyMemberJoined,
		fmt.Sprintf("%s joined %s", name, space.Name), nil, &space.ID)
	return &spaces[0], nil
}

func (s *SpaceService) LeaveSpace(ctx context.Context, spaceID, userID int64) error {
	space, err := first[model.Space](ctx, s.db, "space", spaceID)
	if err != nil {
		return err
	}
	if space.OwnerID == userID {
		return model.ErrOwnerCannotLeave
	}
	res := s.db.WithContext(ctx).Where("space_id = ? AND user_id = ?", spaceID, userID).Delete(&model.SpaceMember{})
	if res.Error != nil {
		return fmt.Errorf("delete membership: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.NotFoundError{Kind: "membership", ID: fmt.Sprintf("%d/%d", spaceID, userID)}
	}
	logger.From(ctx).Info("space.leave", "space_id", spaceID, "user_id", userID)
	return nil
}

// DeleteSpace removes the space with its members, lists, tasks and task children. Owner only.
func (s *SpaceService) DeleteSpace(ctx context.Context, spaceID, userID int64) error {
	space, err := first[model.Space](ctx, s.db, "space", spaceID)
	if err != nil {
		return err
	}
	if space.OwnerID != userID {
		return model.ForbiddenError{Action: "delete space"}
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&model.Task{}).Select("id").Where("space_id = ?", spaceID)
		err := tx.Model(&model.Task{}).Where("blocked_by_id IN (?) AND space_id <> ?", taskIDs, spaceID).
			Update("blocked_by_id", nil).Error
		if err != nil {
			return fmt.Errorf("detach dependents: %w", err)
		}
		for _, child := range []any{&model.Subtask{}, &model.Comment{}, &model.TimeLog{}} {
			if err := tx.Where("task_id IN (?)", taskIDs).Delete(child).Error; err != nil {
				return fmt.Errorf("delete task children: %w", err)
			}
		}
		for _, owned := range []any{&model.Task{}, &model.List{}, &model.SpaceMember{}} {
			if err := tx.Where("space_id = ?", spaceID).Delete(owned).Error; err != nil {
				return fmt.Errorf("delete space rows: %w", err)
			}
		}
		return tx.Delete(&model.Space{}, spaceID).Error
	})
	if err != nil {
		return err
	}
	logger.From(ctx).Info("space.delete", "space_id", spaceID, "user_id", userID)
	return nil
}

// GetMemberships returns the membership rows of the given spaces that userID can see.
func (s *SpaceService) GetMemberships(ctx context.Context, userID int64, spaceIDs []int64) ([]model.SpaceMember, error) {
	if len(spaceIDs) == 0 {
		return nil, nil
	}
	visible, err := s.GetSpaces(ctx, userID)
	if err != nil {
		return nil, err
	}
	var allowed []int64
	for _, sp := range visible {
		if containsID(spaceIDs, sp.ID) {
			allowed = append(allowed, sp.ID)
		}
	}
	if len(allowed) == 0 {
		return nil, nil
	}
	var rows []model.SpaceMember
	if err := s.db.WithContext(ctx).Where("space_id IN ?", allowed).Order("space_id, user_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	return rows, nil
}

// GetMembers lists the member directory of spaceID with resolved roles.
func (s *SpaceService) GetMembers(ctx context.Context, userID, spaceID int64) ([]model.MemberEntry, error) {
	acc, err := loadAccess(ctx, s.db, userID, spaceID)
	if err != nil {
		return nil, err
	}
	var rows []model.SpaceMember
	if err := s.db.WithContext(ctx).Where("space_id = ?", spaceID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	ids := []int64{acc.Space.OwnerID}
	for _, r := range rows {
		if !containsID(ids, r.UserID) {
			ids = append(ids, r.UserID)
		}
	}
	var profiles []model.Profile
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("display_name, id").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("query member profiles: %w", err)
	}
	out := make([]model.MemberEntry, 0, len(profiles))
	for i := range profiles {
		p := profiles[i]
		out = append(out, model.MemberEntry{
			Profile: p,
			Role:    model.ResolveRole(&p, acc.Space, rows),
			IsOwner: p.ID == acc.Space.OwnerID,
		})
	}
	return out, nil
}

func (s *SpaceService) SetMemberRole(ctx context.Context, actorID, spaceID, targetID int64, role model.Role) error {
	if !role.Valid() {
		return model.ErrInvalidRole
	}
	acc, err := loadAccess(ctx, s.db, actorID, spaceID)
	if err != nil {
		return err
	}
	if !acc.IsAdmin() {
		return model.ForbiddenError{Action: "change member role"}
	}
	if targetID == acc.Space.OwnerID {
		return model.ForbiddenError{Action: "change the owner's role"}
	}
	res := s.db.WithContext(ctx).Model(&model.SpaceMember{}).
		Where("space_id = ? AND user_id = ?", spaceID, targetID).
		Update("role", role)
	if res.Error != nil {
		return fmt.Errorf("update member role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.NotFoundError{Kind: "membership", ID: fmt.Sprintf("%d/%d", spaceID, targetID)}
	}
	logger.From(ctx).Info("space.role", "space_id", spaceID, "target_id", targetID, "role", role, "actor_id", actorID)
	return nil
}

func (s *SpaceService) RemoveMember(ctx context.Context, actorID, spaceID, targetID int64) error {
	acc, err := loadAccess(ctx, s.db, actorID, spaceID)
	if err != nil {
		return err
	}
	if !acc.IsAdmin() {
		return model.ForbiddenError{Action: "remove member"}
	}
	if targetID == acc.Space.OwnerID {
		return model.ForbiddenError{Action: "remove the owner"}
	}
	res := s.db.WithContext(ctx).Where("space_id = ? AND user_id = ?", spaceID, targetID).Delete(&model.SpaceMember{})
	if res.Error != nil {
		return fmt.Errorf("delete membership: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.NotFoundError{Kind: "membership", ID: fmt.Sprintf("%d/%d", spaceID, targetID)}
	}
	return nil
}

func (s *SpaceService) GetLists(ctx context.Context, userID, spaceID int64) ([]model.List, error) {
	if _, err := loadAccess(ctx, s.db, userID, spaceID); err != nil {
		return nil, err
	}
	var lists []model.List
	if err := s.db.WithContext(ctx).Where("space_id = ?", spaceID).Order("id").Find(&lists).Error; err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	return lists, nil
}

func (s *SpaceService) CreateList(ctx context.Context, userID, spaceID int64, req model.CreateListRequest) (*model.List, error) {
	if _, err := loadAccess(ctx, s.db, userID, spaceID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, model.ErrNameRequired
	}
	color := req.Color
	if color == "" {
		color = "#64748b"
	}
	list := &model.List{SpaceID: spaceID, Name: name, Color: color}
	if err := s.db.WithContext(ctx).Create(list).Error; err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	return list, nil
}

// DeleteList removes a list; its tasks stay in the space without a list.
func (s *SpaceService) DeleteList(ctx context.Context, userID, listID int64) error {
	list, err := first[model.List](ctx, s.db, "list", listID)
	if err != nil {
		return err
	}
	acc, err := loadAccess(ctx, s.db, userID, list.SpaceID)
	if err != nil {
		return err
	}
	if !acc.IsAdmin() {
		return model.ForbiddenError{Action: "delete list"}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Task{}).Where("list_id = ?", listID).Update("list_id", nil).Error; err != nil {
			return fmt.Errorf("detach tasks: %w", err)
		}
		return tx.Delete(&model.List{}, listID).Error
	})
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
