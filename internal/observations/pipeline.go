// Package observations runs the tiered analysis pipeline that turns habit stats,
// identity check-ins and reflections into short persisted observations, and
// consolidates and prunes them over time.
package observations

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/anchor/internal/constants"
	"github.com/julianstephens/anchor/internal/habitstats"
	"github.com/julianstephens/anchor/internal/llm"
	"github.com/julianstephens/anchor/internal/logger"
	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/utils"
)

// Store is the observation persistence the pipeline depends on.
type Store interface {
	GetActiveObservations(ctx context.Context, userID string, limit int) ([]models.Observation, error)
	GetObservationsByDateRef(ctx context.Context, userID, dateRef string) ([]models.Observation, error)
	GetDismissedObservations(ctx context.Context, userID string, limit int) ([]models.Observation, error)
	InsertObservations(ctx context.Context, userID string, obs []models.Observation) ([]string, error)
	SupersedeObservations(ctx context.Context, userID string, ids []string, supersededBy string) error
	PruneObservations(ctx context.Context, userID string, keep int) (int, error)
	GetLastAnalysisDate(ctx context.Context, userID string, depth models.AnalysisDepth) (string, bool, error)
}

// ContextSource supplies the identity data embedded in analysis prompts.
type ContextSource interface {
	GetIdentityMetrics(ctx context.Context) ([]models.IdentityMetric, error)
	GetCheckinsBetween(ctx context.Context, from, to string) ([]models.IdentityCheckin, error)
	GetRecentReflections(ctx context.Context, limit int) ([]models.WeeklyReflection, error)
}

// Input is one briefing trigger.
type Input struct {
	UserID         string
	Today          time.Time
	Habits         []habitstats.Result
	CompletedTasks []models.CompletedTask
}

// tier is one analysis pass of the pipeline.
type tier struct {
	depth       models.AnalysisDepth
	metricsDays int
	reflections int
	maxTokens   int
}

var tiers = []tier{
	{depth: models.Depth7Day, metricsDays: constants.ShortMetricsWindowDays, reflections: constants.ShortReflectionCount, maxTokens: constants.MaxTokens7Day},
	{depth: models.Depth30Day, metricsDays: constants.LongMetricsWindowDays, reflections: constants.MediumReflectionCount, maxTokens: constants.MaxTokens30Day},
	{depth: models.DepthFull, metricsDays: constants.LongMetricsWindowDays, reflections: constants.LongReflectionCount, maxTokens: constants.MaxTokensFull},
}

type Pipeline struct {
	store  Store
	source ContextSource
	llm    llm.Client
	log    *log.Logger
	cap    int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Pipeline)

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithCap overrides the number of active observations kept after pruning.
func WithCap(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.cap = n
		}
	}
}

func NewPipeline(store Store, source ContextSource, client llm.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:  store,
		source: source,
		llm:    client,
		log:    logger.Component("observations"),
		cap:    constants.ObservationCap,
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one pipeline pass for a user and returns the most recent active
// observations. Failures are logged and never returned; the result is always the
// best available read of the store.
func (p *Pipeline) Run(ctx context.Context, in Input) []models.Observation {
	userID := in.UserID
	if userID == "" {
		userID = constants.DefaultUserID
	}
	unlock := p.lockUser(userID)
	defer unlock()

	today := utils.DayKey(in.Today)
	yesterday := utils.ShiftDayKey(today, -1)
	l := p.log.With("user", userID, "date_ref", yesterday)

	if p.alreadyRan(ctx, l, userID, yesterday) {
		l.Debug("observations already generated, skipping")
		return p.recent(ctx, l, userID)
	}

	ac := p.loadContext(ctx, l, userID, today, yesterday)
	ac.habits = in.Habits
	ac.tasks = in.CompletedTasks

	for _, t := range tiers {
		if t.depth != models.Depth7Day && !p.due(ctx, l, userID, t.depth, yesterday) {
			continue
		}
		p.runTier(ctx, l, userID, t, ac)
	}

	for _, c := range consolidations {
		p.consolidate(ctx, l, userID, c, today, yesterday)
	}

	if n, err := p.store.PruneObservations(ctx, userID, p.cap); err != nil {
		l.Error("failed to prune observations", "error", err)
	} else if n > 0 {
		l.Info("pruned observations", "deleted", n, "cap", p.cap)
	}

	return p.recent(ctx, l, userID)
}

func (p *Pipeline) lockUser(userID string) func() {
	p.mu.Lock()
	m, ok := p.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		p.locks[userID] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// alreadyRan reports whether the 7-day tier has output dated yesterday. A failed
// lookup is treated as not run.
func (p *Pipeline) alreadyRan(ctx context.Context, l *log.Logger, userID, yesterday string) bool {
	existing, err := p.store.GetObservationsByDateRef(ctx, userID, yesterday)
	if err != nil {
		l.Error("failed to check for existing observations", "error", err)
		return false
	}
	for _, o := range existing {
		if o.AnalysisDepth == models.Depth7Day {
			return true
		}
	}
	return false
}

func (p *Pipeline) due(ctx context.Context, l *log.Logger, userID string, depth models.AnalysisDepth, yesterday string) bool {
	last, ok, err := p.store.GetLastAnalysisDate(ctx, userID, depth)
	if err != nil {
		l.Error("failed to load last analysis date", "tier", depth, "error", err)
		return false
	}
	if !ok {
		last = ""
	}
	return ShouldRunAnalysis(depth, last, yesterday)
}

// loadContext reads the shared prompt inputs concurrently. Each read falls back
// to empty on failure.
func (p *Pipeline) loadContext(ctx context.Context, l *log.Logger, userID, today, yesterday string) analysisContext {
	ac := analysisContext{today: today, yesterday: yesterday}

	widest, reflections := 0, 0
	for _, t := range tiers {
		widest = max(widest, t.metricsDays)
		reflections = max(reflections, t.reflections)
	}
	from := utils.ShiftDayKey(yesterday, -(widest - 1))

	var g errgroup.Group
	g.Go(func() error {
		obs, err := p.store.GetActiveObservations(ctx, userID, constants.ActiveContextLimit)
		if err != nil {
			l.Warn("failed to load active observations", "error", err)
			return nil
		}
		ac.active = obs
		return nil
	})
	g.Go(func() error {
		obs, err := p.store.GetDismissedObservations(ctx, userID, constants.DismissedContextLimit)
		if err != nil {
			l.Warn("failed to load dismissed observations", "error", err)
			return nil
		}
		ac.dismissed = obs
		return nil
	})
	if p.source != nil {
		g.Go(func() error {
			metrics, err := p.source.GetIdentityMetrics(ctx)
			if err != nil {
				l.Warn("failed to load identity metrics", "error", err)
				return nil
			}
			ac.metrics = metrics
			return nil
		})
		g.Go(func() error {
			checkins, err := p.source.GetCheckinsBetween(ctx, from, yesterday)
			if err != nil {
				l.Warn("failed to load identity check-ins", "error", err)
				return nil
			}
			ac.checkins = checkins
			return nil
		})
		g.Go(func() error {
			refl, err := p.source.GetRecentReflections(ctx, reflections)
			if err != nil {
				l.Warn("failed to load reflections", "error", err)
				return nil
			}
			ac.reflections = refl
			return nil
		})
	}
	_ = g.Wait()

	return ac
}

func (p *Pipeline) runTier(ctx context.Context, l *log.Logger, userID string, t tier, ac analysisContext) {
	l = l.With("tier", t.depth)

	text, err := p.llm.Complete(ctx, llm.Request{
		System:    analysisSystemPrompt(t.depth),
		User:      ac.render(t),
		MaxTokens: t.maxTokens,
	})
	if err != nil {
		l.Error("analysis request failed", "error", err)
		return
	}

	payloads, err := parseAndSanitize(text)
	if err != nil {
		l.Error("failed to parse analysis response", "error", err)
		return
	}
	if len(payloads) == 0 {
		l.Warn("analysis returned no usable observations")
		return
	}

	ids, err := p.store.InsertObservations(ctx, userID, toObservations(userID, payloads, models.ScopeForDepth(t.depth), t.depth, ac.yesterday))
	if err != nil {
		l.Error("failed to insert observations", "error", err)
		return
	}
	l.Info("stored observations", "count", len(ids))
}

func (p *Pipeline) recent(ctx context.Context, l *log.Logger, userID string) []models.Observation {
	obs, err := p.store.GetActiveObservations(ctx, userID, constants.RecentObservationsLimit)
	if err != nil {
		l.Error("failed to load recent observations", "error", err)
		return []models.Observation{}
	}
	if obs == nil {
		return []models.Observation{}
	}
	return obs
}

func parseAndSanitize(text string) ([]Payload, error) {
	result, err := ParseResponse(text)
	if err != nil {
		return nil, err
	}
	return Sanitize(result), nil
}

func toObservations(userID string, payloads []Payload, scope models.ObservationScope, depth models.AnalysisDepth, dateRef string) []models.Observation {
	obs := make([]models.Observation, 0, len(payloads))
	for _, pl := range payloads {
		obs = append(obs, models.Observation{
			UserID:        userID,
			Scope:         scope,
			AnalysisDepth: depth,
			Category:      pl.Category,
			Text:          pl.Text,
			DateRef:       dateRef,
			Confidence:    pl.Confidence,
			EntityRefs:    pl.EntityRefs,
		})
	}
	return obs
}
