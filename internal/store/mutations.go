package store

import "soundreel/internal/model"

// The setters below mutate the shared arena instance, so every
// timeline referencing the status sees the change at once.

// SetFavorited applies the optimistic favorite flip: the flag and the
// counter move together, and flipping to the current value is a no-op
// on the counter.
func (s *Store) SetFavorited(id string, value bool) {
	s.mu.Lock()
	st, ok := s.statusesByID[id]
	if ok && st.Favorited != value {
		if value {
			st.FaveNum++
		} else {
			st.FaveNum--
		}
	}
	if ok {
		st.Favorited = value
	}
	s.mu.Unlock()
	if ok {
		s.notify("statuses")
	}
}

// SetFavoritedConfirm reconciles with the authoritative response:
// server flag and counter win, and the favoritedBy membership follows
// the flag for the current user.
func (s *Store) SetFavoritedConfirm(confirmed *model.Status, user *model.User) {
	s.mu.Lock()
	st, ok := s.statusesByID[confirmed.ID]
	if ok {
		st.Favorited = confirmed.Favorited
		if confirmed.HasCounts {
			st.FaveNum = confirmed.FaveNum
		}
		st.FavoritedBy = adjustMembership(st.FavoritedBy, user, st.Favorited)
	}
	s.mu.Unlock()
	if ok {
		s.notify("statuses")
	}
}

// SetRetweeted applies the optimistic repeat flip.
func (s *Store) SetRetweeted(id string, value bool) {
	s.mu.Lock()
	st, ok := s.statusesByID[id]
	if ok && st.Repeated != value {
		if value {
			st.RepeatNum++
		} else {
			st.RepeatNum--
		}
	}
	if ok {
		st.Repeated = value
	}
	s.mu.Unlock()
	if ok {
		s.notify("statuses")
	}
}

// SetRetweetedConfirm reconciles a repeat with the server response.
func (s *Store) SetRetweetedConfirm(confirmed *model.Status, user *model.User) {
	s.mu.Lock()
	st, ok := s.statusesByID[confirmed.ID]
	if ok {
		st.Repeated = confirmed.Repeated
		if confirmed.HasCounts {
			st.RepeatNum = confirmed.RepeatNum
		}
		st.RebloggedBy = adjustMembership(st.RebloggedBy, user, st.Repeated)
	}
	s.mu.Unlock()
	if ok {
		s.notify("statuses")
	}
}

func adjustMembership(list []*model.User, user *model.User, member bool) []*model.User {
	if user == nil {
		return list
	}
	idx := -1
	for i, u := range list {
		if u.ID == user.ID {
			idx = i
			break
		}
	}
	if idx != -1 && !member {
		return append(list[:idx], list[idx+1:]...)
	}
	if idx == -1 && member {
		return append(list, user)
	}
	return list
}

// SetPinned applies the server-confirmed pin state.
func (s *Store) SetPinned(confirmed *model.Status) {
	s.mu.Lock()
	if st, ok := s.statusesByID[confirmed.ID]; ok {
		st.Pinned = confirmed.Pinned
	}
	s.mu.Unlock()
}

// SetMutedConversation applies the server-confirmed mute state.
func (s *Store) SetMutedConversation(confirmed *model.Status) {
	s.mu.Lock()
	if st, ok := s.statusesByID[confirmed.ID]; ok {
		st.Muted = confirmed.Muted
	}
	s.mu.Unlock()
}

// SetNSFW flips a status's nsfw flag.
func (s *Store) SetNSFW(id string, v bool) {
	s.mu.Lock()
	if st, ok := s.statusesByID[id]; ok {
		st.NSFW = v
	}
	s.mu.Unlock()
}

// SetDeleted tombstones a status locally.
func (s *Store) SetDeleted(id string) {
	s.mu.Lock()
	st, ok := s.statusesByID[id]
	if ok {
		st.Deleted = true
	}
	s.mu.Unlock()
	if ok {
		s.notify("statuses")
	}
}

// SetManyDeleted tombstones every arena status matching the predicate.
func (s *Store) SetManyDeleted(match func(*model.Status) bool) {
	s.mu.Lock()
	for _, st := range s.allStatuses {
		if match(st) {
			st.Deleted = true
		}
	}
	s.mu.Unlock()
	s.notify("statuses")
}

// AddFavs rebuilds a status's favoritedBy list from a fetched user
// list. Counts drift under polling, so the list is the truth here.
func (s *Store) AddFavs(id string, favoritedBy []*model.User, current *model.User) {
	s.mu.Lock()
	st, ok := s.statusesByID[id]
	if ok {
		st.FavoritedBy = compactUsers(favoritedBy)
		st.FaveNum = len(st.FavoritedBy)
		st.Favorited = containsUser(st.FavoritedBy, current)
	}
	s.mu.Unlock()
	if ok {
		s.notify("statuses")
	}
}

// AddRepeats rebuilds a status's rebloggedBy list the same way.
func (s *Store) AddRepeats(id string, rebloggedBy []*model.User, current *model.User) {
	s.mu.Lock()
	st, ok := s.statusesByID[id]
	if ok {
		st.RebloggedBy = compactUsers(rebloggedBy)
		st.RepeatNum = len(st.RebloggedBy)
		st.Repeated = containsUser(st.RebloggedBy, current)
	}
	s.mu.Unlock()
	if ok {
		s.notify("statuses")
	}
}

func compactUsers(in []*model.User) []*model.User {
	out := make([]*model.User, 0, len(in))
	for _, u := range in {
		if u != nil {
			out = append(out, u)
		}
	}
	return out
}

func containsUser(list []*model.User, u *model.User) bool {
	if u == nil {
		return false
	}
	for _, x := range list {
		if x.ID == u.ID {
			return true
		}
	}
	return false
}
