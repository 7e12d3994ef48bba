package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gaitloop/gait/conv"
	"github.com/gaitloop/gait/llm"
	"github.com/gaitloop/gait/tools"
)

// Model is the consultation contract the engine drives. *llm.Client
// satisfies it; tests substitute scripted implementations.
type Model interface {
	Ask(ctx context.Context, req llm.AskRequest) (*llm.AskResponse, error)
}

// Tracker persists human-readable progress notes outside the run. Tracker
// failures are logged and swallowed; a tracker can never abort a run.
type Tracker interface {
	Record(runID string, step int, note string) error
}

// Config tunes the engine's step budget and recovery heuristics.
type Config struct {
	// MaxSteps bounds the run; reaching it terminates cleanly, not as an
	// error.
	MaxSteps int
	// DuplicateThreshold is how many earlier assistant turns must repeat
	// the latest text before the run counts as stuck.
	DuplicateThreshold int
	// AccuracyMonitorInterval is the step cadence of the accuracy monitor.
	AccuracyMonitorInterval int
	// StepReviewInterval is the step cadence of the think-time self-review.
	StepReviewInterval int
	// AutomaticRecovery enables the accuracy monitor.
	AutomaticRecovery bool
	// AdaptivePlanning enables the periodic self-review.
	AdaptivePlanning bool
	// ToolChoice is the tool-calling policy for every model exchange.
	ToolChoice llm.ToolChoice
	// Buffer tunes the conversation buffer.
	Buffer conv.Config
}

// DefaultConfig returns the stock engine tuning.
func DefaultConfig() Config {
	return Config{
		MaxSteps:                100,
		DuplicateThreshold:      3,
		AccuracyMonitorInterval: 10,
		StepReviewInterval:      5,
		AutomaticRecovery:       true,
		AdaptivePlanning:        true,
		ToolChoice:              llm.ToolChoiceAuto,
		Buffer:                  conv.DefaultConfig(),
	}
}

// Engine drives the think/act loop: it consults the model, executes the
// tool calls the model requests, and folds the observations back into the
// conversation buffer until a terminal tool fires or the step budget runs
// out.
//
// An engine owns its buffer exclusively; Run is a single logical task and
// must not be invoked concurrently. State and step accessors are safe to
// call from other goroutines while a run is in flight.
type Engine struct {
	id         string
	name       string
	model      Model
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	buffer     *conv.Buffer
	tracker    Tracker
	cancel     *CancelFlag
	logger     *slog.Logger
	cfg        Config

	systemPrompt   string
	nextStepPrompt string

	mu          sync.Mutex
	state       State
	currentStep int

	pendingCalls []conv.ToolCall
	recentTools  []string
	detections   int
	recoveries   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithName sets the engine name used in logs.
func WithName(name string) Option {
	return func(e *Engine) { e.name = name }
}

// WithConfig replaces the engine configuration wholesale.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithMaxSteps overrides the step budget.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.cfg.MaxSteps = n }
}

// WithToolChoice sets the tool-calling policy for model exchanges.
func WithToolChoice(tc llm.ToolChoice) Option {
	return func(e *Engine) { e.cfg.ToolChoice = tc }
}

// WithBufferConfig overrides the conversation buffer tuning.
func WithBufferConfig(cfg conv.Config) Option {
	return func(e *Engine) { e.cfg.Buffer = cfg }
}

// WithSystemPrompt sets the standing instruction sent with every model
// exchange.
func WithSystemPrompt(prompt string) Option {
	return func(e *Engine) { e.systemPrompt = prompt }
}

// WithNextStepPrompt sets the instruction appended to the buffer before
// each think.
func WithNextStepPrompt(prompt string) Option {
	return func(e *Engine) { e.nextStepPrompt = prompt }
}

// WithTracker attaches a best-effort progress tracker.
func WithTracker(t Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// WithCancelFlag attaches an externally owned cancellation flag.
func WithCancelFlag(f *CancelFlag) Option {
	return func(e *Engine) { e.cancel = f }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an engine around a model and a tool registry.
func New(model Model, registry *tools.Registry, opts ...Option) *Engine {
	e := &Engine{
		id:       uuid.New().String(),
		name:     "agent",
		model:    model,
		registry: registry,
		logger:   slog.Default(),
		cfg:      DefaultConfig(),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cancel == nil {
		e.cancel = NewCancelFlag()
	}
	e.buffer = conv.NewBuffer(e.cfg.Buffer, e.logger)
	e.dispatcher = tools.NewDispatcher(e.registry, e.logger)
	return e
}

// ID returns the run identifier used for progress tracking.
func (e *Engine) ID() string { return e.id }

// Name returns the engine name.
func (e *Engine) Name() string { return e.name }

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CurrentStep returns the number of steps executed so far.
func (e *Engine) CurrentStep() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentStep
}

// Messages returns a copy of the conversation buffer.
func (e *Engine) Messages() []conv.Turn {
	return e.buffer.Turns()
}

// SetMessages replaces the conversation buffer, bypassing coalescing and
// eviction. Used to seed an engine with a prior transcript.
func (e *Engine) SetMessages(turns []conv.Turn) {
	e.buffer.SetTurns(turns)
}

// UpdateMemory appends a turn of the given role to the conversation buffer.
func (e *Engine) UpdateMemory(role conv.Role, content string) error {
	turn, err := conv.NewTurn(role, content)
	if err != nil {
		return err
	}
	e.buffer.Add(turn)
	return nil
}

// Run executes the think/act loop until a terminal tool fires, the step
// budget is exhausted, or the run is cancelled. A non-empty request is
// recorded as a user turn before the first step. Run fails with
// *InvalidStateError unless the engine is idle.
func (e *Engine) Run(ctx context.Context, request string) (string, error) {
	if err := e.enterRunning(); err != nil {
		return "", err
	}

	if request != "" {
		e.buffer.Add(conv.UserTurn(request))
	}

	out, err := e.loop(ctx)
	e.exitRunning(err != nil)
	return out, err
}

// enterRunning moves the engine from idle to running.
func (e *Engine) enterRunning() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return &InvalidStateError{State: e.state}
	}
	e.state = StateRunning
	return nil
}

// exitRunning restores the pre-run state unless the loop set a terminal
// state deliberately. A failed loop always leaves the engine in StateError.
func (e *Engine) exitRunning(failed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if failed {
		if !e.state.Terminal() {
			e.state = StateError
		}
		return
	}
	if e.state == StateRunning {
		e.state = StateIdle
	}
}

// cancelledResult is returned verbatim when a run stops on the flag or on
// context cancellation.
const cancelledResult = "Operation cancelled"

// loop is hot only while Run holds the engine in StateRunning.
func (e *Engine) loop(ctx context.Context) (string, error) {
	var results []string

	for e.CurrentStep() < e.cfg.MaxSteps && e.State() != StateFinished {
		// 1. Cooperative cancellation, polled once per step.
		if e.cancelled(ctx) {
			e.logger.Info("run cancelled", "agent", e.name, "step", e.CurrentStep())
			return cancelledResult, nil
		}

		step := e.advanceStep()
		e.logger.Info("executing step", "agent", e.name, "step", step, "max_steps", e.cfg.MaxSteps)

		// 2. Periodic accuracy monitoring on long transcripts.
		if e.cfg.AutomaticRecovery && e.cfg.AccuracyMonitorInterval > 0 && step%e.cfg.AccuracyMonitorInterval == 0 {
			e.monitorAccuracy()
		}

		// 3. One think/act cycle.
		result, err := e.step(ctx)
		if err != nil {
			return "", err
		}

		// 4. Strategy correction when the loop repeats itself.
		if e.isStuck() {
			e.handleStuck()
		}

		// 5. Feed the rolling tool-name window the stuck detector inspects.
		e.trackRecentTool(result)

		results = append(results, fmt.Sprintf("Step %d: %s", step, result))
		e.record(step, result)
	}

	if e.CurrentStep() >= e.cfg.MaxSteps {
		results = append(results, fmt.Sprintf("Terminated: Reached max steps (%d)", e.cfg.MaxSteps))
	}

	if len(results) == 0 {
		return "No steps executed", nil
	}
	return strings.Join(results, "\n"), nil
}

// cancelled reports whether the flag or the context asked the run to stop.
func (e *Engine) cancelled(ctx context.Context) bool {
	if e.cancel.Cancelled() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (e *Engine) advanceStep() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentStep++
	return e.currentStep
}

func (e *Engine) setFinished() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateFinished
}

// record hands the step result to the tracker, if any. Tracker errors are
// logged, never propagated.
func (e *Engine) record(step int, note string) {
	if e.tracker == nil {
		return
	}
	if err := e.tracker.Record(e.id, step, note); err != nil {
		e.logger.Warn("progress tracker record failed", "agent", e.name, "step", step, "error", err)
	}
}
