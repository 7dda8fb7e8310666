package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Claims is what a verified token carries.
type Claims struct {
	UserID    int64
	SessionID string
	Name      string
	ExpiresAt time.Time
}

type AuthService struct {
	db          *gorm.DB
	secret      []byte
	ttl         time.Duration
	superAdmins map[string]bool

	mu      sync.Mutex
	revoked map[string]time.Time // sid -> token expiry
}

func NewAuthService(db *gorm.DB, secret string, ttl time.Duration, superAdminEmails []string) *AuthService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	admins := make(map[string]bool, len(superAdminEmails))
	for _, e := range superAdminEmails {
		admins[normalizeEmail(e)] = true
	}
	return &AuthService{db: db, secret: []byte(secret), ttl: ttl, superAdmins: admins, revoked: map[string]time.Time{}}
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.Profile, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.DisplayName)
	if email == "" || name == "" {
		return nil, model.ErrNameRequired
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	p := &model.Profile{
		Email:        email,
		Password:     string(hash),
		DisplayName:  name,
		FullName:     req.FullName,
		IsSuperAdmin: s.superAdmins[email],
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, model.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	logger.Info("auth.register", "uid", p.ID, "email", email)
	return p, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*model.Profile, error) {
	email = normalizeEmail(email)
	var p model.Profile
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(password)) != nil {
		return nil, model.ErrInvalidCredentials
	}
	if s.superAdmins[email] && !p.IsSuperAdmin {
		if err := s.db.WithContext(ctx).Model(&p).Update("is_super_admin", true).Error; err != nil {
			return nil, fmt.Errorf("promote super admin: %w", err)
		}
		p.IsSuperAdmin = true
	}
	return &p, nil
}

// IssueToken signs a new session for p. An empty sid starts a new session.
func (s *AuthService) IssueToken(p *model.Profile, sid string) (string, error) {
	if sid == "" {
		sid = uuid.NewString()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":  p.ID,
		"sid":  sid,
		"name": p.DisplayName,
		"exp":  time.Now().Add(s.ttl).Unix(),
	}).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (s *AuthService) ParseToken(raw string) (*Claims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	uid, _ := mc["uid"].(float64)
	sid, _ := mc["sid"].(string)
	name, _ := mc["name"].(string)
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil || uid == 0 || sid == "" {
		return nil, errors.New("invalid token claims")
	}
	if s.Revoked(sid) {
		return nil, errors.New("session ended")
	}
	return &Claims{UserID: int64(uid), SessionID: sid, Name: name, ExpiresAt: exp.Time}, nil
}

// Logout revokes sid until its token would have expired anyway.
func (s *AuthService) Logout(sid string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, k)
		}
	}
	s.revoked[sid] = expiresAt
	logger.Info("auth.logout", "sid", sid)
}

func (s *AuthService) Revoked(sid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[sid]
	return ok
}
