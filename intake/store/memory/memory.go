// Package memory is an in-process store.Store used by tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/store"
)

type pair struct{ a, b int64 }

// Store keeps every entity in maps guarded by one mutex, which makes each
// method atomic the same way a single SQL statement is.
type Store struct {
	mu sync.Mutex

	nextChannel    int64
	nextSubmission int64
	nextAction     int64

	channels    map[int64]domain.Channel
	keys        map[string]int64
	grants      map[pair]domain.ModeratorGrant // channel, user
	bans        map[pair]domain.BanRecord      // channel, user
	cooldowns   map[pair]domain.CooldownRecord // user, channel
	submissions map[int64]domain.Submission
	actions     []domain.ActionLogEntry

	// Now stamps rows that carry no explicit time. Defaults to time.Now.
	Now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		channels:    make(map[int64]domain.Channel),
		keys:        make(map[string]int64),
		grants:      make(map[pair]domain.ModeratorGrant),
		bans:        make(map[pair]domain.BanRecord),
		cooldowns:   make(map[pair]domain.CooldownRecord),
		submissions: make(map[int64]domain.Submission),
		Now:         time.Now,
	}
}

func (s *Store) stamp(t time.Time) time.Time {
	if !t.IsZero() {
		return t
	}
	return s.Now()
}

func (s *Store) UpsertChannel(_ context.Context, ch domain.Channel) (domain.Channel, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.keys[ch.Key]; ok {
		return s.channels[id], false, nil
	}
	s.nextChannel++
	ch.ID = s.nextChannel
	ch.CreatedAt = s.stamp(ch.CreatedAt)
	s.channels[ch.ID] = ch
	s.keys[ch.Key] = ch.ID
	return ch, true, nil
}

func (s *Store) ChannelByID(_ context.Context, id int64) (domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return domain.Channel{}, store.ErrNotFound
	}
	return ch, nil
}

func (s *Store) ChannelByKeys(_ context.Context, keys []string) (domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if id, ok := s.keys[k]; ok {
			return s.channels[id], nil
		}
	}
	return domain.Channel{}, store.ErrNotFound
}

func (s *Store) ChannelsByOwner(_ context.Context, ownerID int64) ([]domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Channel
	for _, ch := range s.channels {
		if ch.OwnerID == ownerID {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) DeleteChannel(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return false, nil
	}
	delete(s.channels, id)
	delete(s.keys, ch.Key)
	for k := range s.grants {
		if k.a == id {
			delete(s.grants, k)
		}
	}
	for k := range s.bans {
		if k.a == id {
			delete(s.bans, k)
		}
	}
	return true, nil
}

func (s *Store) InsertGrant(_ context.Context, g domain.ModeratorGrant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[g.ChannelID]; !ok {
		return false, store.ErrNotFound
	}
	k := pair{g.ChannelID, g.UserID}
	if _, ok := s.grants[k]; ok {
		return false, nil
	}
	g.CreatedAt = s.stamp(g.CreatedAt)
	s.grants[k] = g
	return true, nil
}

func (s *Store) DeleteGrant(_ context.Context, channelID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pair{channelID, userID}
	_, ok := s.grants[k]
	delete(s.grants, k)
	return ok, nil
}

func (s *Store) GrantsByChannel(_ context.Context, channelID int64) ([]domain.ModeratorGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ModeratorGrant
	for k, g := range s.grants {
		if k.a == channelID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (s *Store) HasGrant(_ context.Context, channelID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.grants[pair{channelID, userID}]
	return ok, nil
}

func (s *Store) InsertBan(_ context.Context, b domain.BanRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[b.ChannelID]; !ok {
		return false, store.ErrNotFound
	}
	k := pair{b.ChannelID, b.UserID}
	if _, ok := s.bans[k]; ok {
		return false, nil
	}
	b.CreatedAt = s.stamp(b.CreatedAt)
	s.bans[k] = b
	return true, nil
}

func (s *Store) DeleteBan(_ context.Context, channelID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pair{channelID, userID}
	_, ok := s.bans[k]
	delete(s.bans, k)
	return ok, nil
}

func (s *Store) HasBan(_ context.Context, channelID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bans[pair{channelID, userID}]
	return ok, nil
}

func (s *Store) UpsertCooldown(_ context.Context, rec domain.CooldownRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldowns[pair{rec.UserID, rec.ChannelID}] = rec
	return nil
}

func (s *Store) Cooldown(_ context.Context, userID, channelID int64) (domain.CooldownRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.cooldowns[pair{userID, channelID}]
	if !ok {
		return domain.CooldownRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (s *Store) CreateSubmission(_ context.Context, sub domain.Submission, cutoff time.Time) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.CreatedAt = s.stamp(sub.CreatedAt)
	k := pair{sub.AuthorID, sub.ChannelID}
	if rec, ok := s.cooldowns[k]; ok && rec.LastSuccessAt.After(cutoff) {
		return domain.Submission{}, store.ErrCooldownActive
	}
	s.cooldowns[k] = domain.CooldownRecord{UserID: sub.AuthorID, ChannelID: sub.ChannelID, LastSuccessAt: sub.CreatedAt}

	s.nextSubmission++
	sub.ID = s.nextSubmission
	sub.Status = domain.StatusPending
	sub.UpdatedAt = sub.CreatedAt
	s.submissions[sub.ID] = sub
	return sub, nil
}

func (s *Store) Submission(_ context.Context, id int64) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return domain.Submission{}, store.ErrNotFound
	}
	return sub, nil
}

func (s *Store) TransitionSubmission(_ context.Context, id int64, from, to domain.Status, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if sub.Status != from {
		return false, nil
	}
	sub.Status = to
	sub.UpdatedAt = s.stamp(at)
	s.submissions[id] = sub
	return true, nil
}

func (s *Store) SubmissionsForModerator(_ context.Context, userID int64, status domain.Status, limit int) ([]domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Submission
	for _, sub := range s.submissions {
		if sub.Status != status {
			continue
		}
		ch, ok := s.channels[sub.ChannelID]
		if !ok {
			continue
		}
		if _, granted := s.grants[pair{ch.ID, userID}]; ch.OwnerID != userID && !granted {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AppendAction(_ context.Context, e domain.ActionLogEntry) (domain.ActionLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAction++
	e.ID = s.nextAction
	e.CreatedAt = s.stamp(e.CreatedAt)
	s.actions = append(s.actions, e)
	return e, nil
}

func (s *Store) ActionsBySubmission(_ context.Context, submissionID int64) ([]domain.ActionLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ActionLogEntry
	for _, e := range s.actions {
		if e.SubmissionID == submissionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) Stats(_ context.Context) (domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := domain.Stats{
		Channels:    len(s.channels),
		Moderators:  len(s.grants),
		Bans:        len(s.bans),
		Submissions: make(map[domain.Status]int),
	}
	for _, sub := range s.submissions {
		st.Submissions[sub.Status]++
	}
	return st, nil
}
