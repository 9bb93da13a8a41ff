// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	eventqueue "github.com/okian/quizgate/internal/adapters/mq/queue"
	workerpool "github.com/okian/quizgate/internal/adapters/mq/worker"
	repository "github.com/okian/quizgate/internal/adapters/repository"
	"github.com/okian/quizgate/internal/domain/bank"
	"github.com/okian/quizgate/internal/domain/challenge"
	"github.com/okian/quizgate/internal/domain/client"
	"github.com/okian/quizgate/internal/domain/dedupe"
	"github.com/okian/quizgate/internal/domain/features"
	"github.com/okian/quizgate/internal/domain/model"
	"github.com/okian/quizgate/internal/domain/pass"
	"github.com/okian/quizgate/internal/domain/risk"
	"github.com/okian/quizgate/internal/domain/scoring"
	"github.com/okian/quizgate/internal/domain/telemetry"
	"github.com/okian/quizgate/pkg/logger"
	"github.com/okian/quizgate/pkg/metrics"
)

// Defaults.
const (
	DefaultSessionTTL    = 600 * time.Second
	DefaultSweepInterval = 60 * time.Second
	DefaultQueueSize     = 10_000
	DefaultDedupeSize    = 50_000

	shutdownTimeout = 10 * time.Second
)

// User-facing messages.
const (
	MessageSessionStarted = "Session started. Behavior tracking enabled with quiz-based verification."
	MessageQuizPassed     = "Quiz solved correctly! Access granted."
	MessageQuizFailed     = "Quiz failed. Please try again."
)

// TierMessage returns the message shown alongside an assessment at tier t.
func TierMessage(t model.Tier) string {
	switch t {
	case model.TierLow:
		return "Behavior looks human. Access granted!"
	case model.TierMedium:
		return "Slightly suspicious. Please answer this simple question."
	case model.TierHigh:
		return "Suspicious activity detected. Complete this challenge."
	default:
		return "High risk detected. Complete multiple challenges."
	}
}

// Decision is the result of assessing a session.
type Decision struct {
	Assessment model.Assessment
	Message    string
	// Challenge is the outstanding challenge for tiers above Low, nil otherwise.
	Challenge challenge.Challenge
	// Reused is set when Challenge was already outstanding before this call.
	Reused bool
	// Cause wraps ErrScorerUnavailable when the assessment is degraded.
	Cause error
}

// Verification is the result of checking a challenge response.
type Verification struct {
	challenge.Result
	AccessGranted bool
	Message       string
	// PassToken is set only for verified responses.
	PassToken     string
	PassExpiresAt time.Time
}

// QuizDatabase summarizes the question bank.
type QuizDatabase struct {
	TotalCategories int      `json:"total_categories"`
	TotalQuestions  int      `json:"total_questions"`
	Categories      []string `json:"categories"`
}

// Stats is a point-in-time view of the service.
type Stats struct {
	ActiveSessions   int               `json:"active_sessions"`
	ActiveChallenges int               `json:"active_challenges"`
	Thresholds       risk.Thresholds   `json:"thresholds"`
	QuizDatabase     QuizDatabase      `json:"quiz_database"`
	Devices          map[string]int    `json:"devices"`
	Telemetry        telemetry.Summary `json:"telemetry"`
	ScorerBreaker    string            `json:"scorer_breaker"`
	QueueLength      int               `json:"queue_length"`
	DedupeEntries    int64             `json:"dedupe_entries"`
	ExposeAnswers    bool              `json:"expose_answers"`
}

// Service implements the API dependencies for the risk-gated challenge system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	eventQueue *eventqueue.OutcomeQueue
	workerPool *workerpool.Pool
	ledger     *telemetry.Ledger
	inner      scoring.Scorer
	scorer     *scoring.BreakerScorer
	classifier *risk.Classifier
	factory    *challenge.Factory
	verifier   *challenge.Verifier
	passes     *pass.Issuer
	bank       bank.Bank

	// Configuration
	workerCount     int
	queueSize       int
	queueDropOldest bool
	dedupeSize      int
	sessionTTL      time.Duration
	sweepInterval   time.Duration
	thresholds      risk.Thresholds
	exposeAnswers   bool
	now             func() time.Time
	storeOpts       []repository.Option
	scorerOpts      []scoring.Option
	breakerOpts     []scoring.BreakerOption
	factoryOpts     []challenge.FactoryOption
	verifierOpts    []challenge.VerifierOption
	passOpts        []pass.Option

	// State
	ownStore    bool
	started     atomic.Bool
	stopCh      chan struct{}
	sweeperDone chan struct{}
	cancelRun   context.CancelFunc

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     DefaultQueueSize,
		dedupeSize:    DefaultDedupeSize,
		sessionTTL:    DefaultSessionTTL,
		sweepInterval: DefaultSweepInterval,
		thresholds:    risk.DefaultThresholds(),
		exposeAnswers: true,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started.Load() {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting quizgate service...")

	classifier, err := risk.NewClassifier(s.thresholds)
	if err != nil {
		return fmt.Errorf("service start: %w", err)
	}
	if s.bank == nil {
		s.bank = bank.Default()
	}
	factory, err := challenge.NewFactory(s.bank, append([]challenge.FactoryOption{challenge.WithClock(s.now)}, s.factoryOpts...)...)
	if err != nil {
		return fmt.Errorf("service start: %w", err)
	}
	issuer, err := pass.NewIssuer(append([]pass.Option{pass.WithClock(s.now)}, s.passOpts...)...)
	if err != nil {
		return fmt.Errorf("service start: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancelRun = cancel

	if s.store == nil {
		s.store = repository.NewSessionStore(runCtx, append([]repository.Option{repository.WithClock(s.now)}, s.storeOpts...)...)
		s.ownStore = true
		s.logger.Info(ctx, "using sharded session store")
	}
	if s.inner == nil {
		s.inner = scoring.NewHeuristicScorer(s.scorerOpts...)
	}
	s.scorer = scoring.NewBreakerScorer("scorer", s.inner, s.breakerOpts...)
	s.classifier = classifier
	s.factory = factory
	s.verifier = challenge.NewVerifier(s.verifierOpts...)
	s.passes = issuer
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.ledger = telemetry.NewLedger()
	s.eventQueue = eventqueue.NewOutcomeQueue(s.queueOptions()...)

	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.ledger)
	s.workerPool.Start(runCtx)

	s.stopCh = make(chan struct{})
	s.sweeperDone = make(chan struct{})
	if s.sweepInterval > 0 {
		go s.sweepLoop(s.stopCh, s.sweeperDone)
	} else {
		close(s.sweeperDone)
	}

	s.started.Store(true)
	s.logger.Info(ctx, "quizgate service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("sessionTTL", s.sessionTTL),
		logger.Int("questions", bank.TotalQuestions(s.bank)),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started.Load() {
		return
	}
	s.started.Store(false)

	ctx := context.Background()
	s.logger.Info(ctx, "stopping quizgate service...")

	close(s.stopCh)
	<-s.sweeperDone

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.workerPool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "telemetry workers did not drain", logger.Error(err))
	}

	if s.ownStore {
		if closer, ok := s.store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}
	s.cancelRun()

	s.logger.Info(ctx, "quizgate service stopped")
}

func (s *Service) ready() error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	return nil
}

// StartSession registers a new session for the client described by userAgent.
func (s *Service) StartSession(ctx context.Context, userAgent string) (repository.SessionInfo, error) {
	if err := s.ready(); err != nil {
		return repository.SessionInfo{}, err
	}

	info := client.Classify(userAgent)
	sess, err := s.store.Create(ctx, info)
	if err != nil {
		return repository.SessionInfo{}, fmt.Errorf("start session: %w", err)
	}
	metrics.RecordSessionStarted()

	s.logger.Debug(ctx, "session started",
		logger.String("session", sess.ID),
		logger.String("device", info.Device),
		logger.Bool("bot", info.Bot),
	)
	return sess, nil
}

// Track records one interaction for a session. Interactions carrying an
// event ID already seen for the session are acknowledged as duplicates and
// not recorded again.
func (s *Service) Track(ctx context.Context, sessionID string, in model.Interaction) (duplicate bool, err error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if strings.TrimSpace(sessionID) == "" {
		return false, fmt.Errorf("%w: session_id is required", ErrMalformedRequest)
	}
	if in.Type != model.EventMouse && in.Type != model.EventKeyboard {
		metrics.RecordTrackRejected("unknown_type")
		return false, fmt.Errorf("%w: unknown event type %q", ErrMalformedRequest, in.Type)
	}

	if in.EventID != "" {
		key := dedupe.Key(sessionID, in.EventID)
		if s.deduper.SeenAndRecord(ctx, key) {
			// Keys outlive their sessions in the cache.
			if !s.store.Exists(ctx, sessionID) {
				metrics.RecordTrackRejected("invalid_session")
				return false, fmt.Errorf("track: %w: %s", ErrInvalidSession, sessionID)
			}
			metrics.RecordTrackDuplicate()
			return true, nil
		}
		// Rejected events may be retried with the same ID.
		defer func() {
			if err != nil {
				s.deduper.Unrecord(ctx, key)
			}
		}()
	}

	if err := s.store.Track(ctx, sessionID, in); err != nil {
		err = mapStoreError(err)
		metrics.RecordTrackRejected(rejectReason(err))
		return false, fmt.Errorf("track: %w", err)
	}
	metrics.RecordTrackEvent(string(in.Type))
	return false, nil
}

// Assess scores the session's behavior so far and, for tiers above Low,
// makes sure a challenge is outstanding. A scorer failure fails closed: the
// session is treated as Critical and the decision is marked degraded.
func (s *Service) Assess(ctx context.Context, sessionID string) (Decision, error) {
	if err := s.ready(); err != nil {
		return Decision{}, err
	}
	if strings.TrimSpace(sessionID) == "" {
		return Decision{}, fmt.Errorf("%w: session_id is required", ErrMalformedRequest)
	}

	snap, err := s.store.Snapshot(ctx, sessionID)
	if err != nil {
		return Decision{}, fmt.Errorf("assess: %w", mapStoreError(err))
	}

	now := s.now()
	a := model.Assessment{Features: features.Extract(snap, now)}
	var cause error
	p, err := s.scorer.Score(ctx, a.Features)
	if err != nil {
		cause = fmt.Errorf("%w: %w", ErrScorerUnavailable, err)
		s.logger.Warn(ctx, "failing closed",
			logger.String("session", sessionID),
			logger.Error(cause),
		)
		a.Probability = 1
		a.Tier, a.Action = model.TierCritical, model.ActionHardQuiz
		a.Degraded = true
	} else {
		a.Probability = p
		a.Tier, a.Action = s.classifier.Classify(p)
	}
	metrics.RecordAssessment(a.Tier.String(), a.Degraded)

	s.publish(ctx, model.Outcome{
		Kind:      model.OutcomeAssessed,
		SessionID: sessionID,
		Tier:      a.Tier,
		Degraded:  a.Degraded,
		At:        now,
	})

	d := Decision{Assessment: a, Message: TierMessage(a.Tier), Cause: cause}
	if !a.Tier.RequiresChallenge() {
		return d, nil
	}

	ch, created, err := s.store.Issue(ctx, sessionID, func() challenge.Challenge {
		return s.factory.Create(a.Tier)
	})
	if err != nil {
		return Decision{}, fmt.Errorf("issue challenge: %w", mapStoreError(err))
	}
	kind := string(ch.Kind())
	if created {
		metrics.RecordChallengeIssued(kind)
		s.publish(ctx, model.Outcome{
			Kind:      model.OutcomeChallengeIssued,
			SessionID: sessionID,
			Tier:      a.Tier,
			Challenge: kind,
			At:        now,
		})
	} else {
		metrics.RecordChallengeReused(kind)
	}
	d.Challenge = ch
	d.Reused = !created

	s.logger.Debug(ctx, "session assessed",
		logger.String("session", sessionID),
		logger.Float64("probability", a.Probability),
		logger.String("tier", a.Tier.String()),
		logger.String("challenge", kind),
		logger.Bool("reused", d.Reused),
	)
	return d, nil
}

// Describe renders ch for clients, honoring the answer exposure setting.
func (s *Service) Describe(ch challenge.Challenge) challenge.View {
	return challenge.Describe(ch, s.exposeAnswers)
}

// VerifyChallenge checks resp against the session's outstanding challenge.
// A verified response clears the challenge and earns an access pass; a
// failed one leaves the challenge outstanding for another attempt.
func (s *Service) VerifyChallenge(ctx context.Context, sessionID string, resp challenge.Response) (Verification, error) {
	if err := s.ready(); err != nil {
		return Verification{}, err
	}
	if strings.TrimSpace(sessionID) == "" {
		return Verification{}, fmt.Errorf("%w: session_id is required", ErrMalformedRequest)
	}

	var (
		res  challenge.Result
		verr error
	)
	err := s.store.Resolve(ctx, sessionID, func(ch challenge.Challenge) bool {
		if err := resp.Validate(ch.Kind()); err != nil {
			verr = err
			return false
		}
		res = s.verifier.Verify(ch, resp, resp.Elapsed(ch, s.now()))
		return res.Verified
	})
	if err != nil {
		return Verification{}, fmt.Errorf("verify challenge: %w", mapStoreError(err))
	}
	if verr != nil {
		return Verification{}, fmt.Errorf("%w: %w", ErrMalformedRequest, verr)
	}

	kind := string(res.Kind)
	outcome := "failed"
	if res.Verified {
		outcome = "passed"
	}
	metrics.RecordVerification(kind, outcome)
	metrics.RecordVerificationElapsed(kind, res.Elapsed.Seconds())

	o := model.Outcome{
		Kind:      model.OutcomeVerified,
		SessionID: sessionID,
		Challenge: kind,
		Passed:    res.Verified,
		Elapsed:   res.Elapsed,
		At:        s.now(),
	}
	if res.Tally != nil {
		o.Score, o.Total = res.Score, res.Total
	}
	s.publish(ctx, o)

	v := Verification{Result: res, AccessGranted: res.Verified, Message: MessageQuizFailed}
	if !res.Verified {
		return v, nil
	}
	v.Message = MessageQuizPassed

	token, exp, err := s.passes.Issue(sessionID, kind)
	if err != nil {
		s.logger.Error(ctx, "failed to issue access pass",
			logger.String("session", sessionID),
			logger.Error(err),
		)
		return v, nil
	}
	metrics.RecordPassIssued()
	v.PassToken, v.PassExpiresAt = token, exp
	return v, nil
}

// ValidatePass decodes an access pass token.
func (s *Service) ValidatePass(_ context.Context, token string) (pass.Pass, error) {
	if err := s.ready(); err != nil {
		return pass.Pass{}, err
	}
	if strings.TrimSpace(token) == "" {
		return pass.Pass{}, fmt.Errorf("%w: token is required", ErrMalformedRequest)
	}
	p, err := s.passes.Validate(token)
	if err != nil {
		return pass.Pass{}, fmt.Errorf("%w: %w", ErrInvalidPass, err)
	}
	return p, nil
}

// Sweep removes sessions older than the session TTL.
func (s *Service) Sweep(ctx context.Context) (sessions, challenges int) {
	if s.ready() != nil {
		return 0, 0
	}
	start := time.Now()
	cutoff := s.now().Add(-s.sessionTTL)
	sessions, challenges = s.store.Sweep(ctx, cutoff)
	metrics.RecordSweepDuration(float64(time.Since(start).Milliseconds()))
	if sessions > 0 {
		metrics.RecordSessionsExpired(sessions)
		s.logger.Debug(ctx, "expired sessions swept",
			logger.Int("sessions", sessions),
			logger.Int("challenges", challenges),
		)
	}
	return sessions, challenges
}

func (s *Service) sweepLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		}
	}
}

// GetStats sweeps expired sessions and returns service statistics.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	if err := s.ready(); err != nil {
		return Stats{}, err
	}
	s.Sweep(ctx)

	categories := s.bank.Categories()
	stats := Stats{
		ActiveSessions:   s.store.Count(ctx),
		ActiveChallenges: s.store.CountChallenges(ctx),
		Thresholds:       s.classifier.Thresholds(),
		QuizDatabase: QuizDatabase{
			TotalCategories: len(categories),
			TotalQuestions:  bank.TotalQuestions(s.bank),
			Categories:      categories,
		},
		Devices:       s.store.Devices(ctx),
		Telemetry:     s.ledger.Summary(),
		ScorerBreaker: s.scorer.State(),
		QueueLength:   s.eventQueue.Len(),
		DedupeEntries: s.deduper.Size(),
		ExposeAnswers: s.exposeAnswers,
	}

	metrics.UpdateActiveSessions(stats.ActiveSessions)
	metrics.UpdateOutstandingChallenges(stats.ActiveChallenges)
	return stats, nil
}

// Ready reports whether the service has been started.
func (s *Service) Ready() bool {
	return s.started.Load()
}

func (s *Service) queueOptions() []eventqueue.Option {
	opts := []eventqueue.Option{eventqueue.WithCapacity(s.queueSize)}
	if s.queueDropOldest {
		opts = append(opts, eventqueue.WithDropOldest())
	}
	return opts
}

// publish hands an outcome to the telemetry workers. A full queue drops
// the outcome, never the request.
func (s *Service) publish(ctx context.Context, o model.Outcome) { //nolint:gocritic // hugeParam: Outcome is passed by value into the queue
	if err := s.eventQueue.Publish(context.WithoutCancel(ctx), o); err != nil {
		s.ledger.RecordDropped()
		s.logger.Debug(ctx, "outcome dropped", logger.String("kind", o.Kind.String()), logger.Error(err))
	}
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrInvalidSession, err)
	case errors.Is(err, repository.ErrNoChallenge):
		return fmt.Errorf("%w: %w", ErrNoOutstandingChallenge, err)
	case errors.Is(err, repository.ErrRateLimited):
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case errors.Is(err, repository.ErrEventLimit):
		return fmt.Errorf("%w: %w", ErrEventLimit, err)
	case errors.Is(err, repository.ErrUnknownEventType):
		return fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	default:
		return err
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSession):
		return "invalid_session"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrEventLimit):
		return "event_limit"
	case errors.Is(err, ErrMalformedRequest):
		return "malformed"
	default:
		return "other"
	}
}
