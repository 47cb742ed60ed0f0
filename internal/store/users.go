package store

import (
	"strings"

	"soundreel/internal/model"
)

// users is the account arena: one instance per id, with a lower-cased
// screen-name secondary key for local users.
type users struct {
	list  []*model.User
	byKey map[string]*model.User
}

func newUsers() *users {
	return &users{byKey: map[string]*model.User{}}
}

func (u *users) mergeOrAdd(in *model.User) (*model.User, bool) {
	if in == nil || in.ID == "" {
		return nil, false
	}
	if old, ok := u.byKey[in.ID]; ok {
		old.Merge(in)
		return old, false
	}
	u.list = append(u.list, in)
	u.byKey[in.ID] = in
	if in.ScreenName != "" && !strings.Contains(in.ScreenName, "@") {
		u.byKey[strings.ToLower(in.ScreenName)] = in
	}
	return in, true
}

// AddNewUsers folds fetched accounts into the user arena.
func (s *Store) AddNewUsers(in []*model.User) {
	s.mu.Lock()
	for _, u := range in {
		s.users.mergeOrAdd(u)
	}
	s.mu.Unlock()
	s.notify("users")
}

// UpdateUserRelationship applies relationship objects to arena users.
func (s *Store) UpdateUserRelationship(rels []*model.User) {
	s.mu.Lock()
	for _, rel := range rels {
		if rel == nil || !rel.HasRelationship {
			continue
		}
		if u, ok := s.users.byKey[rel.ID]; ok {
			u.Merge(rel)
		} else {
			s.users.mergeOrAdd(rel)
		}
	}
	s.mu.Unlock()
	s.notify("users")
}

// UserByID looks a user up by id.
func (s *Store) UserByID(id string) (*model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.byKey[id]
	return u, ok
}

// UserByScreenName looks a local user up by screen name.
func (s *Store) UserByScreenName(name string) (*model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.byKey[strings.ToLower(name)]
	return u, ok
}

// SetCurrentUser records the logged-in account and adds it to the
// arena.
func (s *Store) SetCurrentUser(u *model.User) {
	s.mu.Lock()
	merged, _ := s.users.mergeOrAdd(u)
	if merged != nil {
		s.currentUser = merged
	} else {
		s.currentUser = u
	}
	s.mu.Unlock()
	s.notify("users")
}

// CurrentUser returns the logged-in account, nil before login.
func (s *Store) CurrentUser() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentUser
}
