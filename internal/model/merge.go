package model

// Merge folds a freshly normalized status into an existing instance.
// Only fields the incoming copy actually carries overwrite: empty
// strings, nil slices and nil pointers stand in for null/absent JSON
// and never erase known data. The embedded author is skipped entirely,
// it is owned by the user store. Engagement counters and flags move
// together, gated by HasCounts.
func (s *Status) Merge(in *Status) {
	if in.URI != "" {
		s.URI = in.URI
	}
	if in.Kind != "" {
		s.Kind = in.Kind
	}
	if in.Title != "" {
		s.Title = in.Title
	}
	if in.Slug != "" {
		s.Slug = in.Slug
	}
	if in.Content != "" {
		s.Content = in.Content
	}
	if in.Visibility != "" {
		s.Visibility = in.Visibility
	}
	if !in.CreatedAt.IsZero() {
		s.CreatedAt = in.CreatedAt
	}
	if in.ConversationID != "" {
		s.ConversationID = in.ConversationID
	}
	if in.Attentions != nil {
		s.Attentions = in.Attentions
	}
	if in.Attachments != nil {
		s.Attachments = in.Attachments
	}
	if in.PictureURL != "" {
		s.PictureURL = in.PictureURL
	}
	if in.MediaOrig != "" {
		s.MediaOrig = in.MediaOrig
	}
	if in.MediaTranscoded != "" {
		s.MediaTranscoded = in.MediaTranscoded
	}
	if in.Waveform != "" {
		s.Waveform = in.Waveform
	}
	if in.AlbumID != "" {
		s.AlbumID = in.AlbumID
	}
	if in.TracksCount != 0 {
		s.TracksCount = in.TracksCount
	}
	if in.Processing != nil {
		s.Processing = in.Processing
	}
	if in.Metadata != nil {
		s.Metadata = in.Metadata
	}
	if in.HasCounts {
		s.FaveNum = in.FaveNum
		s.RepeatNum = in.RepeatNum
		s.Favorited = in.Favorited
		s.Repeated = in.Repeated
		s.HasCounts = true
	}
	s.Private = in.Private
	s.NSFW = s.NSFW || in.NSFW
}

// Merge folds a freshly normalized user into an existing instance with
// the same skip-empty discipline. Relationship flags move together,
// gated by HasRelationship.
func (u *User) Merge(in *User) {
	if in.ScreenName != "" {
		u.ScreenName = in.ScreenName
	}
	if in.Name != "" {
		u.Name = in.Name
	}
	if in.NameHTML != "" {
		u.NameHTML = in.NameHTML
	}
	if in.Description != "" {
		u.Description = in.Description
	}
	if in.DescriptionHTML != "" {
		u.DescriptionHTML = in.DescriptionHTML
	}
	if in.ProfileImageURL != "" {
		u.ProfileImageURL = in.ProfileImageURL
	}
	if in.ProfileImageURLOriginal != "" {
		u.ProfileImageURLOriginal = in.ProfileImageURLOriginal
	}
	if in.CoverPhoto != "" {
		u.CoverPhoto = in.CoverPhoto
	}
	if in.ProfileURL != "" {
		u.ProfileURL = in.ProfileURL
	}
	if !in.CreatedAt.IsZero() {
		u.CreatedAt = in.CreatedAt
	}
	if in.FollowersCount != 0 {
		u.FollowersCount = in.FollowersCount
	}
	if in.FriendsCount != 0 {
		u.FriendsCount = in.FriendsCount
	}
	if in.StatusesCount != 0 {
		u.StatusesCount = in.StatusesCount
	}
	if in.AlbumsCount != 0 {
		u.AlbumsCount = in.AlbumsCount
	}
	if in.Lang != "" {
		u.Lang = in.Lang
	}
	if in.DefaultScope != "" {
		u.DefaultScope = in.DefaultScope
	}
	u.Locked = u.Locked || in.Locked
	u.Bot = u.Bot || in.Bot
	u.IsLocal = u.IsLocal || in.IsLocal
	if in.HasRelationship {
		u.Following = in.Following
		u.FollowsYou = in.FollowsYou
		u.Requested = in.Requested
		u.Muted = in.Muted
		u.Blocking = in.Blocking
		u.HasRelationship = true
	}
}
