package observations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/julianstephens/anchor/internal/llm"
	"github.com/julianstephens/anchor/internal/models"
)

// memStore is an in-memory Store that keeps observations in insertion order.
type memStore struct {
	mu        sync.Mutex
	obs       []models.Observation
	seq       int
	insertErr error
	pruned    []int
}

func (s *memStore) seed(o models.Observation) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if o.ID == "" {
		o.ID = fmt.Sprintf("seed-%d", s.seq)
	}
	if o.UserID == "" {
		o.UserID = "u1"
	}
	s.obs = append(s.obs, o)
	return o.ID
}

func (s *memStore) find(id string) (models.Observation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.obs {
		if o.ID == id {
			return o, true
		}
	}
	return models.Observation{}, false
}

func (s *memStore) countWhere(fn func(models.Observation) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.obs {
		if fn(o) {
			n++
		}
	}
	return n
}

// activeLocked returns active observations newest dateRef first, later inserts first on ties.
func (s *memStore) activeLocked(userID string) []models.Observation {
	var out []models.Observation
	for i := len(s.obs) - 1; i >= 0; i-- {
		if o := s.obs[i]; o.UserID == userID && o.IsActive() {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateRef > out[j].DateRef })
	return out
}

func (s *memStore) GetActiveObservations(_ context.Context, userID string, limit int) ([]models.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.activeLocked(userID)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) GetObservationsByDateRef(_ context.Context, userID, dateRef string) ([]models.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Observation
	for _, o := range s.obs {
		if o.UserID == userID && o.DateRef == dateRef {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) GetDismissedObservations(_ context.Context, userID string, limit int) ([]models.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Observation
	for i := len(s.obs) - 1; i >= 0; i-- {
		if o := s.obs[i]; o.UserID == userID && o.Dismissed {
			out = append(out, o)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) InsertObservations(_ context.Context, userID string, obs []models.Observation) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	ids := make([]string, 0, len(obs))
	for _, o := range obs {
		s.seq++
		o.ID = fmt.Sprintf("obs-%d", s.seq)
		o.UserID = userID
		s.obs = append(s.obs, o)
		ids = append(ids, o.ID)
	}
	return ids, nil
}

func (s *memStore) SupersedeObservations(_ context.Context, userID string, ids []string, supersededBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for i := range s.obs {
		if s.obs[i].UserID == userID && set[s.obs[i].ID] {
			s.obs[i].SupersededBy = supersededBy
		}
	}
	return nil
}

func (s *memStore) PruneObservations(_ context.Context, userID string, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruned = append(s.pruned, keep)
	active := s.activeLocked(userID)
	if len(active) <= keep {
		return 0, nil
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].DateRef != active[j].DateRef {
			return active[i].DateRef > active[j].DateRef
		}
		return active[i].Confidence > active[j].Confidence
	})
	drop := make(map[string]bool)
	for _, o := range active[keep:] {
		drop[o.ID] = true
	}
	kept := s.obs[:0]
	for _, o := range s.obs {
		if !drop[o.ID] {
			kept = append(kept, o)
		}
	}
	s.obs = kept
	return len(drop), nil
}

func (s *memStore) GetLastAnalysisDate(_ context.Context, userID string, depth models.AnalysisDepth) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := ""
	for _, o := range s.obs {
		if o.UserID == userID && o.AnalysisDepth == depth && o.DateRef > last {
			last = o.DateRef
		}
	}
	return last, last != "", nil
}

// memSource is a fixed ContextSource.
type memSource struct {
	metrics     []models.IdentityMetric
	checkins    []models.IdentityCheckin
	reflections []models.WeeklyReflection
	err         error
}

func (s *memSource) GetIdentityMetrics(context.Context) ([]models.IdentityMetric, error) {
	return s.metrics, s.err
}

func (s *memSource) GetCheckinsBetween(_ context.Context, from, to string) ([]models.IdentityCheckin, error) {
	var out []models.IdentityCheckin
	for _, c := range s.checkins {
		if c.Day >= from && c.Day <= to {
			out = append(out, c)
		}
	}
	return out, s.err
}

func (s *memSource) GetRecentReflections(_ context.Context, limit int) ([]models.WeeklyReflection, error) {
	out := s.reflections
	if len(out) > limit {
		out = out[:limit]
	}
	return out, s.err
}

// scriptedLLM answers each request with respond and records what it was asked.
type scriptedLLM struct {
	mu       sync.Mutex
	requests []llm.Request
	respond  func(req llm.Request) (string, error)
}

func (c *scriptedLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if c.respond == nil {
		return "", errors.New("no response scripted")
	}
	return c.respond(req)
}

func (c *scriptedLLM) calls() []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Request(nil), c.requests...)
}

func (c *scriptedLLM) callsMatching(substr string) int {
	n := 0
	for _, r := range c.calls() {
		if strings.Contains(r.System, substr) {
			n++
		}
	}
	return n
}

const threeObservations = `[
  {"category":"habit_trend","observation":"Reading is steady.","confidence":4},
  {"category":"streak_risk","observation":"Gym slips on Fridays.","confidence":3},
  {"category":"growth_signal","observation":"Check-ins are trending up.","confidence":2}
]`

func always(text string) func(llm.Request) (string, error) {
	return func(llm.Request) (string, error) { return text, nil }
}

const (
	tier7DayMarker     = "Focus: the last 7 days"
	tier30DayMarker    = "Focus: the last 30 days"
	tierFullMarker     = "Focus: the long view"
	consolidateMarker  = "long-term memory"
	weeklyMergeMarker  = "older daily observations"
	quarterMergeMarker = "older weekly observations"
)
