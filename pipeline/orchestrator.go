package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prospectly/queryagent/aggregate"
	"github.com/prospectly/queryagent/llm"
	"github.com/prospectly/queryagent/log"
	"github.com/prospectly/queryagent/prompt"
	"github.com/prospectly/queryagent/search"
	"github.com/prospectly/queryagent/store"
)

// ErrPipelineBusy is returned by Run when an advance is already in flight
// for this session. Orchestrator calls are serialized per session.
var ErrPipelineBusy = errors.New("pipeline run already in progress")

// errHalted flows internally when the operator stopped the session. It is
// not an error from the caller's point of view; Run swallows it.
var errHalted = errors.New("pipeline halted")

// Defaults for Config fields left at zero.
const (
	DefaultPass1Threshold     = 60.0
	DefaultPass2Threshold     = 60.0
	DefaultSampleSize         = 5
	DefaultMaxResultsPerQuery = 30
	DefaultTopQueryContexts   = 5
)

// Config holds the per-session pipeline tuning.
type Config struct {
	Persona      *search.Persona
	SeedQuery    string
	MasterPrompt string

	QueriesPerRound    int     // default prompt.DefaultMaxQueries
	Pass1Threshold     float64 // default 60
	Pass2Threshold     float64 // default 60
	Concurrency        int     // default llm.DefaultConcurrency
	SampleSize         int     // results sampled per query for pass 2, default 5
	MaxResultsPerQuery int     // default 30
	MaxRounds          int     // default 1
	TopQueryContexts   int     // prior queries fed into generation, default 5

	SearchOptions search.Options // country/language for backend calls
}

// Snapshot is a point-in-time view of a session, safe to hand to a UI.
type Snapshot struct {
	SessionID string     `json:"sessionId"`
	State     State      `json:"state"`
	Paused    bool       `json:"paused"`
	Progress  Progress   `json:"progress"`
	Stats     Stats      `json:"stats"`
	Rounds    []RoundStats `json:"rounds"`
}

// Observer receives a snapshot after every state change.
type Observer func(Snapshot)

// Orchestrator drives one session through the stage graph: generation, two
// scoring gates, execution, aggregation, and on to the next round. All
// state mutation happens here, one transition at a time.
type Orchestrator struct {
	cfg       Config
	client    *llm.Client
	backend   search.Backend
	sessions  store.SessionStore
	logger    log.Logger
	sessionID string
	createdAt time.Time

	agg *aggregate.Aggregator

	runMu sync.Mutex // serializes Run; TryLock makes concurrent calls fail fast

	mu        sync.Mutex
	state     *State
	progress  Progress
	stats     Stats
	rounds    []RoundStats
	history   []search.QueryContext
	observers []Observer
	paused    bool
	resumeCh  chan struct{}
	stopped   bool
	cancelRun context.CancelFunc
}

// Option configures optional orchestrator collaborators.
type Option func(*Orchestrator)

// WithSessionStore enables persistence of session state and round history.
func WithSessionStore(s store.SessionStore) Option {
	return func(o *Orchestrator) { o.sessions = s }
}

// WithLogger overrides the default logger.
func WithLogger(l log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithSessionID reattaches to an existing session id instead of minting one.
func WithSessionID(id string) Option {
	return func(o *Orchestrator) { o.sessionID = id }
}

// NewOrchestrator validates the config and builds an orchestrator in the
// idle stage, round 0.
func NewOrchestrator(cfg Config, client *llm.Client, backend search.Backend, opts ...Option) (*Orchestrator, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if backend == nil {
		return nil, fmt.Errorf("search backend is required")
	}
	if cfg.Persona == nil {
		return nil, fmt.Errorf("persona is required")
	}
	if err := cfg.Persona.Validate(); err != nil {
		return nil, err
	}
	if cfg.SeedQuery == "" {
		return nil, fmt.Errorf("seed query is required")
	}

	if cfg.QueriesPerRound <= 0 {
		cfg.QueriesPerRound = prompt.DefaultMaxQueries
	}
	if cfg.Pass1Threshold <= 0 {
		cfg.Pass1Threshold = DefaultPass1Threshold
	}
	if cfg.Pass2Threshold <= 0 {
		cfg.Pass2Threshold = DefaultPass2Threshold
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = llm.DefaultConcurrency
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultSampleSize
	}
	if cfg.MaxResultsPerQuery <= 0 {
		cfg.MaxResultsPerQuery = DefaultMaxResultsPerQuery
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 1
	}
	if cfg.TopQueryContexts <= 0 {
		cfg.TopQueryContexts = DefaultTopQueryContexts
	}

	o := &Orchestrator{
		cfg:       cfg,
		client:    client,
		backend:   backend,
		logger:    log.Default(),
		sessionID: uuid.NewString(),
		createdAt: time.Now(),
		state:     NewState(),
		agg:       aggregate.NewAggregator(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// SessionID returns the session's opaque id.
func (o *Orchestrator) SessionID() string {
	return o.sessionID
}

// OnUpdate registers an observer. Observers are invoked synchronously after
// every transition and progress update; keep them fast.
func (o *Orchestrator) OnUpdate(fn Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// Snapshot returns a copy of the session's current state, progress, and
// funnel statistics.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID: o.sessionID,
		State:     *o.state.Clone(),
		Paused:    o.paused,
		Progress:  o.progress,
		Stats:     o.stats,
		Rounds:    slices.Clone(o.rounds),
	}
}

// Results returns the deduplicated results aggregated so far.
func (o *Orchestrator) Results() []aggregate.Result {
	return o.agg.Results()
}

// ResultMetadata returns the aggregate running totals.
func (o *Orchestrator) ResultMetadata() aggregate.Metadata {
	return o.agg.Metadata()
}

// History returns the scored query contexts accumulated across rounds.
func (o *Orchestrator) History() []search.QueryContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.history)
}

// Run drives the pipeline for cfg.MaxRounds rounds, starting or resuming
// from the current stage (idle, complete, or error). It returns nil when
// the session completes or is stopped, and the stage error otherwise. Only
// one Run may be in flight per orchestrator.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.runMu.TryLock() {
		return ErrPipelineBusy
	}
	defer o.runMu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	o.cancelRun = cancel
	o.stopped = false
	o.mu.Unlock()

	for {
		if err := o.runRound(runCtx); err != nil {
			if errors.Is(err, errHalted) {
				o.halt()
				return nil
			}
			return err
		}

		o.mu.Lock()
		round := o.state.Round
		o.mu.Unlock()

		if round+1 >= o.cfg.MaxRounds {
			if err := o.transition(StageComplete); err != nil {
				return err
			}
			o.setProgress(0, 0, "Session complete")
			o.logger.Info("session %s complete after %d round(s)", o.sessionID, round+1)
			return nil
		}

		// aggregating -> generating increments the round and clears queues
		if err := o.transition(StageGenerating); err != nil {
			return err
		}
	}
}

// runRound executes one generate -> pass1 -> pass2 -> execute -> aggregate
// cycle, leaving the state in aggregating on success.
func (o *Orchestrator) runRound(ctx context.Context) error {
	o.mu.Lock()
	stage := o.state.Stage
	o.mu.Unlock()

	// idle/error/complete entry; the multi-round loop arrives here already
	// in generating
	if stage != StageGenerating {
		if err := o.transition(StageGenerating); err != nil {
			return err
		}
	}

	// read the round after the entry transition: complete -> generating
	// starts a fresh round and increments the counter
	o.mu.Lock()
	round := o.state.Round
	o.mu.Unlock()

	queries, err := o.generate(ctx, round)
	if err != nil {
		return err
	}
	roundStats := RoundStats{Round: round, Generated: len(queries)}

	survivors, err := o.scorePass1(ctx, queries, &roundStats)
	if err != nil {
		return err
	}

	finalists, err := o.scorePass2(ctx, survivors, &roundStats)
	if err != nil {
		return err
	}

	if err := o.execute(ctx, finalists, &roundStats); err != nil {
		return err
	}

	return o.aggregateRound(ctx, roundStats)
}

// generate asks the LLM for this round's candidate queries. Rounds after
// the first feed the top-scoring prior queries back into the prompt.
func (o *Orchestrator) generate(ctx context.Context, round int) ([]string, error) {
	o.setProgress(0, 1, "Generating queries")

	var previous []search.QueryContext
	if round > 0 {
		previous = o.topContexts()
	}

	generated, err := o.client.GenerateQueries(ctx, o.cfg.Persona, o.cfg.SeedQuery, previous,
		&prompt.GenerationOptions{MaxQueries: o.cfg.QueriesPerRound})
	if err != nil {
		return nil, o.failStage("query generation failed", err)
	}

	queries := make([]string, 0, len(generated))
	for _, g := range generated {
		if !slices.Contains(queries, g.Query) {
			queries = append(queries, g.Query)
		}
	}

	o.mu.Lock()
	o.state.QueriesGenerated = queries
	o.mu.Unlock()

	o.setProgress(1, 1, fmt.Sprintf("Generated %d queries", len(queries)))
	o.logger.Info("round %d: generated %d queries", round, len(queries))
	return queries, nil
}

// scorePass1 gates generated queries on pre-execution quality. Scoring runs
// in waves of cfg.Concurrency so pauses take effect between waves.
func (o *Orchestrator) scorePass1(ctx context.Context, queries []string, roundStats *RoundStats) ([]string, error) {
	if err := o.checkpoint(ctx); err != nil {
		return nil, err
	}
	if err := o.transition(StagePass1); err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.state.Pass1Queue = slices.Clone(queries)
	o.state.Pass1Completed = nil
	o.mu.Unlock()
	o.setProgress(0, len(queries), "Scoring queries (pass 1)")

	var survivors []string
	completed := 0

	for chunk := range slices.Chunk(queries, o.cfg.Concurrency) {
		if err := o.checkpoint(ctx); err != nil {
			return nil, err
		}

		scores, batchErr := o.client.BatchScorePass1(ctx, chunk, o.cfg.Persona, o.cfg.MasterPrompt, o.cfg.Concurrency)
		if err := o.haltCheck(ctx); err != nil {
			return nil, err
		}
		if batchErr != nil {
			o.logger.Warn("round %d pass 1: %v", roundStats.Round, batchErr)
		}

		o.mu.Lock()
		for _, q := range chunk {
			o.state.Pass1Queue = removeFirst(o.state.Pass1Queue, q)
			o.state.Pass1Completed = append(o.state.Pass1Completed, q)

			score, ok := scores[q]
			if ok && score.Score >= o.cfg.Pass1Threshold {
				survivors = append(survivors, q)
				roundStats.Pass1Passed++
			} else {
				roundStats.Pass1Rejected++
			}
			if ok {
				o.recordPass1Locked(q, score.Score)
			}
		}
		o.mu.Unlock()

		completed += len(chunk)
		o.setProgress(completed, len(queries), "Scoring queries (pass 1)")
	}

	o.logger.Info("round %d: pass 1 kept %d of %d", roundStats.Round, len(survivors), len(queries))
	return survivors, nil
}

// scorePass2 executes a small sample for each pass-1 survivor and gates on
// the quality of what actually came back.
func (o *Orchestrator) scorePass2(ctx context.Context, queries []string, roundStats *RoundStats) ([]string, error) {
	if err := o.checkpoint(ctx); err != nil {
		return nil, err
	}
	if err := o.transition(StagePass2); err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.state.Pass2Queue = slices.Clone(queries)
	o.state.Pass2Completed = nil
	o.mu.Unlock()
	o.setProgress(0, len(queries), "Validating queries (pass 2)")

	sampleOpts := o.cfg.SearchOptions
	sampleOpts.MaxResults = o.cfg.SampleSize

	var finalists []string
	completed := 0

	for chunk := range slices.Chunk(queries, o.cfg.Concurrency) {
		if err := o.checkpoint(ctx); err != nil {
			return nil, err
		}

		// sample each query's results; a failed sample rejects the query
		// but not its siblings
		items := make([]llm.Pass2Item, 0, len(chunk))
		for _, q := range chunk {
			resp, err := o.backend.Execute(ctx, q, sampleOpts)
			if err != nil {
				if herr := o.haltCheck(ctx); herr != nil {
					return nil, herr
				}
				o.logger.Warn("round %d pass 2: sampling %q failed: %v", roundStats.Round, q, err)
				continue
			}
			items = append(items, llm.Pass2Item{Query: q, Sample: resp.Results})
		}

		scores, batchErr := o.client.BatchScorePass2(ctx, items, o.cfg.Persona, o.cfg.Concurrency)
		if err := o.haltCheck(ctx); err != nil {
			return nil, err
		}
		if batchErr != nil {
			o.logger.Warn("round %d pass 2: %v", roundStats.Round, batchErr)
		}

		o.mu.Lock()
		for _, q := range chunk {
			o.state.Pass2Queue = removeFirst(o.state.Pass2Queue, q)
			o.state.Pass2Completed = append(o.state.Pass2Completed, q)

			score, ok := scores[q]
			if ok && score.Score >= o.cfg.Pass2Threshold {
				finalists = append(finalists, q)
				roundStats.Pass2Passed++
			} else {
				roundStats.Pass2Rejected++
			}
			if ok {
				o.recordPass2Locked(q, score.Score)
			}
		}
		o.mu.Unlock()

		completed += len(chunk)
		o.setProgress(completed, len(queries), "Validating queries (pass 2)")
	}

	o.logger.Info("round %d: pass 2 kept %d of %d", roundStats.Round, len(finalists), len(queries))
	return finalists, nil
}

// execute runs each pass-2 finalist in full and feeds results into the
// aggregator tagged with their source query. A stop between queries leaves
// the remainder unexecuted.
func (o *Orchestrator) execute(ctx context.Context, queries []string, roundStats *RoundStats) error {
	if err := o.checkpoint(ctx); err != nil {
		return err
	}
	if err := o.transition(StageExecuting); err != nil {
		return err
	}

	o.mu.Lock()
	o.state.ExecuteQueue = slices.Clone(queries)
	o.state.ExecuteCompleted = nil
	o.mu.Unlock()
	o.setProgress(0, len(queries), "Executing queries")

	execOpts := o.cfg.SearchOptions
	execOpts.MaxResults = o.cfg.MaxResultsPerQuery

	for i, q := range queries {
		if err := o.checkpoint(ctx); err != nil {
			return err
		}

		resp, err := o.backend.Execute(ctx, q, execOpts)
		if err != nil {
			if herr := o.haltCheck(ctx); herr != nil {
				return herr
			}
			o.logger.Warn("round %d: executing %q failed: %v", roundStats.Round, q, err)
		} else {
			o.agg.Add(resp, q)
			roundStats.Executed++
			roundStats.RawResults += len(resp.Results)
		}

		o.mu.Lock()
		o.state.ExecuteQueue = removeFirst(o.state.ExecuteQueue, q)
		o.state.ExecuteCompleted = append(o.state.ExecuteCompleted, q)
		o.mu.Unlock()

		o.setProgress(i+1, len(queries), "Executing queries")
	}

	return nil
}

// aggregateRound finalizes the round's statistics and appends the round
// history record.
func (o *Orchestrator) aggregateRound(ctx context.Context, roundStats RoundStats) error {
	if err := o.transition(StageAggregating); err != nil {
		return err
	}
	o.setProgress(0, 0, "Aggregating results")

	o.mu.Lock()
	o.stats.add(roundStats)
	o.stats.UniqueResults = o.agg.UniqueCount()
	o.stats.TokensUsed = o.client.TokensUsed()
	o.rounds = append(o.rounds, roundStats)
	o.mu.Unlock()

	if o.sessions != nil {
		if err := o.sessions.AppendRound(persistContext(), o.sessionID, roundStats); err != nil {
			o.logger.Warn("failed to append round history: %v", err)
		}
	}
	o.persist()
	o.notify()

	o.logger.Info("round %d done: %d executed, %d unique results", roundStats.Round, roundStats.Executed, o.agg.UniqueCount())
	return nil
}

// Pause stops the pipeline from issuing new LLM/search calls at the next
// checkpoint. In-flight waves settle first; computed state is kept.
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	if !o.paused {
		o.paused = true
		o.resumeCh = make(chan struct{})
	}
	o.mu.Unlock()

	o.persist()
	o.notify()
	o.logger.Info("session %s paused", o.sessionID)
}

// Resume continues a paused pipeline from the same queues.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	if o.paused {
		o.paused = false
		close(o.resumeCh)
		o.resumeCh = nil
	}
	o.mu.Unlock()

	o.persist()
	o.notify()
	o.logger.Info("session %s resumed", o.sessionID)
}

// Stop cancels all in-flight LLM and search work and halts the session,
// preserving everything already committed. Queued queries are not
// executed. Stopping is not an error: a Run interrupted by Stop returns
// nil.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.stopped = true
	cancel := o.cancelRun
	if o.paused {
		o.paused = false
		close(o.resumeCh)
		o.resumeCh = nil
	}
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.client.Cancel()
	o.logger.Info("session %s stop requested", o.sessionID)
}

// Reset returns the pipeline to idle. From the error stage this is the
// operator's "reset" action; from complete it readies a fresh session.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	err := o.state.Transition(StageIdle)
	if err == nil {
		o.state.clearQueues()
		o.state.Round = 0
		o.progress = Progress{}
	}
	o.mu.Unlock()

	if err != nil {
		return err
	}
	o.persist()
	o.notify()
	return nil
}

// Restore reloads persisted session state, adopting the stored round
// counter and queue lists so a later Run continues the session's numbering.
func (o *Orchestrator) Restore(ctx context.Context) error {
	if o.sessions == nil {
		return fmt.Errorf("no session store configured")
	}

	sess, err := o.sessions.Load(ctx, o.sessionID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(sess.State)
	if err != nil {
		return fmt.Errorf("failed to marshal persisted state: %w", err)
	}
	var restored State
	if err := json.Unmarshal(data, &restored); err != nil {
		return fmt.Errorf("failed to decode persisted state: %w", err)
	}

	stage, err := StatusToStage(SessionStatus(sess.Status))
	if err != nil {
		return err
	}
	// a crash can leave a mid-run status behind, and mid-run stages are not
	// runnable entry points. Restore those to idle with the round preserved,
	// the same way paused maps to idle; the next Run redoes the round.
	if !IsTerminalStage(stage) {
		stage = StageIdle
		restored.clearQueues()
	}
	restored.Stage = stage

	o.mu.Lock()
	o.state = &restored
	o.mu.Unlock()
	o.notify()
	return nil
}

// failStage transitions the pipeline to the error stage with a readable
// message. Cancellation is passed through as a halt, not a failure.
func (o *Orchestrator) failStage(op string, err error) error {
	if errors.Is(err, llm.ErrAborted) || errors.Is(err, context.Canceled) || o.isStopped() {
		return errHalted
	}

	o.mu.Lock()
	ferr := o.state.Fail(fmt.Sprintf("%s: %v", op, err))
	o.mu.Unlock()
	if ferr != nil {
		return ferr
	}

	o.persist()
	o.notify()
	o.logger.Error("session %s: %s: %v", o.sessionID, op, err)
	return fmt.Errorf("%s: %w", op, err)
}

// checkpoint is a safe point between waves of work: it parks while paused
// and reports a halt when the session was stopped or the context died.
func (o *Orchestrator) checkpoint(ctx context.Context) error {
	for {
		o.mu.Lock()
		paused := o.paused
		ch := o.resumeCh
		o.mu.Unlock()

		if !paused {
			break
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return errHalted
		}
	}
	return o.haltCheck(ctx)
}

func (o *Orchestrator) haltCheck(ctx context.Context) error {
	if ctx.Err() != nil || o.isStopped() {
		return errHalted
	}
	return nil
}

func (o *Orchestrator) isStopped() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopped
}

// halt resets the stage to idle after a stop, preserving the round counter
// and everything already committed.
func (o *Orchestrator) halt() {
	o.mu.Lock()
	o.state.reset(false)
	o.progress = Progress{Message: "Stopped"}
	o.mu.Unlock()

	o.persist()
	o.notify()
	o.logger.Info("session %s halted", o.sessionID)
}

func (o *Orchestrator) transition(to Stage) error {
	o.mu.Lock()
	err := o.state.Transition(to)
	o.mu.Unlock()
	if err != nil {
		return err
	}

	o.persist()
	o.notify()
	return nil
}

func (o *Orchestrator) setProgress(current, total int, message string) {
	o.mu.Lock()
	o.progress = Progress{Current: current, Total: total, Message: message}
	o.mu.Unlock()
	o.notify()
}

// recordPass1Locked updates the query's history entry. Callers hold o.mu.
func (o *Orchestrator) recordPass1Locked(query string, score float64) {
	qc := o.historyEntryLocked(query)
	qc.Pass1Score = &score
	updateComposite(qc)
}

func (o *Orchestrator) recordPass2Locked(query string, score float64) {
	qc := o.historyEntryLocked(query)
	qc.Pass2Score = &score
	updateComposite(qc)
}

func (o *Orchestrator) historyEntryLocked(query string) *search.QueryContext {
	for i := range o.history {
		if o.history[i].Query == query {
			return &o.history[i]
		}
	}
	o.history = append(o.history, search.QueryContext{Query: query})
	return &o.history[len(o.history)-1]
}

// updateComposite averages whichever pass scores exist.
func updateComposite(qc *search.QueryContext) {
	switch {
	case qc.Pass1Score != nil && qc.Pass2Score != nil:
		composite := (*qc.Pass1Score + *qc.Pass2Score) / 2
		qc.CompositeScore = &composite
	case qc.Pass1Score != nil:
		composite := *qc.Pass1Score
		qc.CompositeScore = &composite
	case qc.Pass2Score != nil:
		composite := *qc.Pass2Score
		qc.CompositeScore = &composite
	}
}

// topContexts returns the highest-scoring prior queries, capped at
// cfg.TopQueryContexts, for biasing the next generation round.
func (o *Orchestrator) topContexts() []search.QueryContext {
	o.mu.Lock()
	contexts := slices.Clone(o.history)
	o.mu.Unlock()

	sort.SliceStable(contexts, func(i, j int) bool {
		ci, cj := contexts[i].CompositeScore, contexts[j].CompositeScore
		if ci == nil {
			return false
		}
		if cj == nil {
			return true
		}
		return *ci > *cj
	})

	if len(contexts) > o.cfg.TopQueryContexts {
		contexts = contexts[:o.cfg.TopQueryContexts]
	}
	return contexts
}

// persist writes the session record; failures are logged, never fatal to
// the pipeline.
func (o *Orchestrator) persist() {
	if o.sessions == nil {
		return
	}

	o.mu.Lock()
	status := StageToStatus(o.state.Stage)
	if o.paused && !IsTerminalStage(o.state.Stage) {
		status = StatusPaused
	}
	sess := &store.Session{
		ID:     o.sessionID,
		Status: string(status),
		Round:  o.state.Round,
		State:  o.state.Clone(),
		Metadata: map[string]any{
			"seedQuery": o.cfg.SeedQuery,
		},
		CreatedAt: o.createdAt,
		UpdatedAt: time.Now(),
	}
	o.mu.Unlock()

	if err := o.sessions.Save(persistContext(), sess); err != nil {
		o.logger.Warn("failed to persist session %s: %v", o.sessionID, err)
	}
}

// persistContext is detached from the run context so state still gets saved
// after a stop cancels the run.
func persistContext() context.Context {
	return context.Background()
}

func (o *Orchestrator) notify() {
	o.mu.Lock()
	observers := slices.Clone(o.observers)
	snap := o.snapshotLocked()
	o.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

func removeFirst(list []string, item string) []string {
	for i, v := range list {
		if v == item {
			return slices.Delete(list, i, i+1)
		}
	}
	return list
}
