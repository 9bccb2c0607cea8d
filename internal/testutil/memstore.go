// Package testutil provides in-memory stores for service and handler tests
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nsvirk/misbarapi/internal/models"
)

// MemStore is an in-memory implementation of the user, login log and chat
// stores. It enforces the same uniqueness rules as the database.
type MemStore struct {
	mu            sync.Mutex
	nextUserID    uint
	nextSessionID uint
	nextMessageID uint
	users         map[uint]*models.UserModel
	links         []models.IdentityLinkModel
	logins        []models.LoginLogModel
	sessions      map[uint]*models.ChatSessionModel
	messages      []models.ChatMessageModel

	// Err, when set, is returned by every call
	Err error
	// Now is the clock used for timestamps
	Now func() time.Time
}

// NewMemStore creates an empty store
func NewMemStore() *MemStore {
	return &MemStore{
		users:    make(map[uint]*models.UserModel),
		sessions: make(map[uint]*models.ChatSessionModel),
		Now:      time.Now,
	}
}

func clone(u *models.UserModel) *models.UserModel {
	c := *u
	return &c
}

func (s *MemStore) taken(except uint, user *models.UserModel) bool {
	for id, u := range s.users {
		if id == except {
			continue
		}
		if u.Email == user.Email {
			return true
		}
		if user.GoogleID != nil && u.GoogleID != nil && *u.GoogleID == *user.GoogleID {
			return true
		}
		if user.MicrosoftID != nil && u.MicrosoftID != nil && *u.MicrosoftID == *user.MicrosoftID {
			return true
		}
	}
	return false
}

// Create inserts a user
func (s *MemStore) Create(_ context.Context, user *models.UserModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.taken(0, user) {
		return models.ErrDuplicateKey
	}
	s.nextUserID++
	user.ID = s.nextUserID
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	now := s.Now()
	// keep listing order stable when the clock does not move
	user.CreatedAt = now.Add(time.Duration(user.ID) * time.Microsecond)
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = clone(user)
	return nil
}

// GetByID gets a user by id
func (s *MemStore) GetByID(_ context.Context, id uint) (*models.UserModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clone(u), nil
}

// GetByEmail gets a user by exact email
func (s *MemStore) GetByEmail(_ context.Context, email string) (*models.UserModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, models.ErrNotFound
}

// GetByProviderID gets the user linked to a federated subject
func (s *MemStore) GetByProviderID(_ context.Context, kind models.CredentialKind, subject string) (*models.UserModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if id := u.ProviderID(kind); id != nil && *id == subject {
			return clone(u), nil
		}
	}
	return nil, models.ErrNotFound
}

// LinkProvider sets an unset provider column and records the link
func (s *MemStore) LinkProvider(_ context.Context, link *models.IdentityLinkModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	u, ok := s.users[link.UserID]
	if !ok {
		return models.ErrAlreadyLinked
	}
	if id := u.ProviderID(link.Provider); id != nil {
		return models.ErrAlreadyLinked
	}
	candidate := clone(u)
	candidate.SetProviderID(link.Provider, link.ProviderSubject)
	if s.taken(u.ID, candidate) {
		return models.ErrDuplicateKey
	}
	s.users[u.ID] = candidate
	link.ID = uint(len(s.links) + 1)
	s.links = append(s.links, *link)
	return nil
}

// Links returns the recorded identity links
func (s *MemStore) Links() []models.IdentityLinkModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.IdentityLinkModel(nil), s.links...)
}

// UpdateProfile updates the self-editable fields
func (s *MemStore) UpdateProfile(_ context.Context, id uint, update models.ProfileUpdate) (*models.UserModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	u.Name = update.Name
	u.LastName = update.LastName
	u.Institution = update.Institution
	u.PhoneNumber = update.PhoneNumber
	u.UpdatedAt = s.Now()
	return clone(u), nil
}

// UpdateByAdmin updates the admin-editable fields
func (s *MemStore) UpdateByAdmin(_ context.Context, id uint, update models.AdminUpdate) (*models.UserModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if s.taken(id, &models.UserModel{Email: update.Email}) {
		return nil, models.ErrDuplicateKey
	}
	u.Name = update.Name
	u.LastName = update.LastName
	u.Email = update.Email
	u.Institution = update.Institution
	u.PhoneNumber = update.PhoneNumber
	u.Role = update.Role
	u.UpdatedAt = s.Now()
	return clone(u), nil
}

// List returns users newest first
func (s *MemStore) List(_ context.Context) ([]models.UserModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	users := make([]models.UserModel, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID > users[j].ID
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

// Delete removes a user and its owned rows
func (s *MemStore) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.users, id)

	logins := s.logins[:0]
	for _, l := range s.logins {
		if l.UserID != id {
			logins = append(logins, l)
		}
	}
	s.logins = logins

	links := s.links[:0]
	for _, l := range s.links {
		if l.UserID != id {
			links = append(links, l)
		}
	}
	s.links = links

	for sid, session := range s.sessions {
		if session.UserID == id {
			s.deleteSessionLocked(sid)
		}
	}
	return nil
}

// Append records a login
func (s *MemStore) Append(_ context.Context, userID uint, provider models.CredentialKind, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.logins = append(s.logins, models.LoginLogModel{
		ID:        uint(len(s.logins) + 1),
		UserID:    userID,
		Provider:  provider,
		LoginTime: at,
	})
	return nil
}

// Logins returns every recorded login
func (s *MemStore) Logins() []models.LoginLogModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LoginLogModel(nil), s.logins...)
}

// Recent returns the latest logins joined with their users
func (s *MemStore) Recent(_ context.Context, limit int) ([]models.LoginLogView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	views := make([]models.LoginLogView, 0, len(s.logins))
	for i := len(s.logins) - 1; i >= 0; i-- {
		l := s.logins[i]
		u, ok := s.users[l.UserID]
		if !ok {
			continue
		}
		views = append(views, models.LoginLogView{
			LoginTime: l.LoginTime,
			Provider:  l.Provider,
			Name:      u.Name,
			LastName:  u.LastName,
			Email:     u.Email,
		})
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].LoginTime.After(views[j].LoginTime) })
	if len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// PruneBefore deletes logins older than cutoff
func (s *MemStore) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	kept := s.logins[:0]
	var removed int64
	for _, l := range s.logins {
		if l.LoginTime.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	s.logins = kept
	return removed, nil
}

// ListSessions returns the sessions of a user, most recently active first
func (s *MemStore) ListSessions(_ context.Context, userID uint) ([]models.ChatSessionModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var sessions []models.ChatSessionModel
	for _, session := range s.sessions {
		if session.UserID == userID {
			sessions = append(sessions, *session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].UpdatedAt.Equal(sessions[j].UpdatedAt) {
			return sessions[i].ID > sessions[j].ID
		}
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// CreateSession inserts a session
func (s *MemStore) CreateSession(_ context.Context, session *models.ChatSessionModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.nextSessionID++
	session.ID = s.nextSessionID
	session.CreatedAt = s.Now()
	session.UpdatedAt = session.CreatedAt
	c := *session
	s.sessions[session.ID] = &c
	return nil
}

// GetSession gets a session owned by userID
func (s *MemStore) GetSession(_ context.Context, userID, sessionID uint) (*models.ChatSessionModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	session, ok := s.sessions[sessionID]
	if !ok || session.UserID != userID {
		return nil, models.ErrNotFound
	}
	c := *session
	return &c, nil
}

// Messages returns the messages of a session in insertion order
func (s *MemStore) Messages(_ context.Context, sessionID uint) ([]models.ChatMessageModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var messages []models.ChatMessageModel
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			messages = append(messages, m)
		}
	}
	return messages, nil
}

// AddMessage inserts a message and touches its session
func (s *MemStore) AddMessage(_ context.Context, message *models.ChatMessageModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	session, ok := s.sessions[message.SessionID]
	if !ok {
		return models.ErrNotFound
	}
	s.nextMessageID++
	message.ID = s.nextMessageID
	message.CreatedAt = s.Now()
	s.messages = append(s.messages, *message)
	session.UpdatedAt = message.CreatedAt
	return nil
}

// RenameSession changes the title of a session owned by userID
func (s *MemStore) RenameSession(_ context.Context, userID, sessionID uint, title string) (*models.ChatSessionModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	session, ok := s.sessions[sessionID]
	if !ok || session.UserID != userID {
		return nil, models.ErrNotFound
	}
	session.Title = title
	session.UpdatedAt = s.Now()
	c := *session
	return &c, nil
}

// DeleteSession removes a session owned by userID
func (s *MemStore) DeleteSession(_ context.Context, userID, sessionID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	session, ok := s.sessions[sessionID]
	if !ok || session.UserID != userID {
		return models.ErrNotFound
	}
	s.deleteSessionLocked(sessionID)
	return nil
}

func (s *MemStore) deleteSessionLocked(sessionID uint) {
	delete(s.sessions, sessionID)
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.SessionID != sessionID {
			kept = append(kept, m)
		}
	}
	s.messages = kept
}
