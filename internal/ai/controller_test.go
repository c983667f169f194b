package ai

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"depthseeker/internal/alarm"
	"depthseeker/internal/behavior"
	loggingbehavior "depthseeker/logging/behavior"
	"depthseeker/logging/sinks"
)

type probe struct {
	behavior.Base
	utility    float64
	panicOn    string
	scoreCalls int
	starts     int
	stops      int
	performs   int
	lastDelta  float64
}

func (p *probe) CalculateUtility() float64 {
	p.scoreCalls++
	if p.panicOn == hookUtility {
		panic("bad score")
	}
	return p.utility
}

func (p *probe) StartBehavior() {
	p.starts++
	if p.panicOn == hookStart {
		panic("cannot start")
	}
}

func (p *probe) StopBehavior() {
	p.stops++
	if p.panicOn == hookStop {
		panic(errors.New("cannot stop"))
	}
}

func (p *probe) PerformBehavior(delta float64) {
	p.performs++
	p.lastDelta = delta
	if p.panicOn == hookPerform {
		panic("cannot perform")
	}
}

func (p *probe) SetParam(name string, value any) bool {
	if name != "utility" {
		return false
	}
	v, ok := behavior.FloatParam(value)
	if ok {
		p.utility = v
	}
	return ok
}

type selfCurbing struct {
	probe
	overrides int
}

func (s *selfCurbing) CurbOverride() {
	s.overrides++
}

type harness struct {
	ctrl   *Controller
	queue  *alarm.Queue
	events *sinks.Memory
}

func newHarness(t *testing.T, templates ...behavior.Template) *harness {
	t.Helper()
	factory := behavior.NewFactory()
	factory.Register("probe", func() behavior.Behavior { return &probe{} })
	factory.Register("self_curbing", func() behavior.Behavior { return &selfCurbing{} })

	queue := alarm.NewQueue()
	events := sinks.NewMemory()
	ctrl, err := NewController(Config{
		AgentID:            "cruncher-1",
		EvaluationInterval: 500 * time.Millisecond,
		Alarms:             queue,
		Factory:            factory,
		Rand:               rand.New(rand.NewSource(7)),
		Publisher:          events,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ctrl.RegisterBehaviors(templates, behavior.Context{Type: "cruncher"}); err != nil {
		t.Fatalf("unexpected registration error: %v", err)
	}
	return &harness{ctrl: ctrl, queue: queue, events: events}
}

func (h *harness) probe(t *testing.T, name string) *probe {
	t.Helper()
	b, ok := h.ctrl.Behavior(name)
	if !ok {
		t.Fatalf("behavior %q not registered", name)
	}
	switch v := b.(type) {
	case *probe:
		return v
	case *selfCurbing:
		return &v.probe
	}
	t.Fatalf("behavior %q has unexpected type %T", name, b)
	return nil
}

func probeTemplate(name string, utility float64) behavior.Template {
	return behavior.Template{
		Kind:    "probe",
		Name:    name,
		CurbMin: time.Second,
		CurbMax: 2 * time.Second,
		Params:  map[string]any{"utility": utility},
	}
}

func (h *harness) activeCount() int {
	count := 0
	for _, b := range h.ctrl.Behaviors() {
		if b.Core().Active {
			count++
		}
	}
	return count
}

func TestNewControllerRequiresAlarms(t *testing.T) {
	if _, err := NewController(Config{}); !errors.Is(err, ErrNoAlarms) {
		t.Fatalf("expected ErrNoAlarms, got %v", err)
	}
}

func TestEvaluateTieBreakKeepsEarlierRegistration(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 5), probeTemplate("b", 5))
	winner := h.ctrl.Evaluate()
	if winner == nil || winner.Core().Name != "a" {
		t.Fatalf("expected a to win the tie, got %v", nameOf(winner))
	}
}

func TestEvaluatePicksStrictMaximum(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 1), probeTemplate("b", 3), probeTemplate("c", 2))
	if winner := h.ctrl.Evaluate(); nameOf(winner) != "b" {
		t.Fatalf("expected b, got %q", nameOf(winner))
	}
	if h.ctrl.ActiveBehavior() != nil {
		t.Fatalf("expected evaluation not to activate anything")
	}
	if nameOf(h.ctrl.Candidate()) != "b" {
		t.Fatalf("expected candidate b, got %q", nameOf(h.ctrl.Candidate()))
	}
}

func TestEvaluateZeroFloorStopsAndCurbsActive(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 4), probeTemplate("b", -1))
	h.ctrl.Evaluate()
	h.ctrl.Tick(1, 0.1)
	a := h.probe(t, "a")
	if !a.Active {
		t.Fatalf("expected a active")
	}

	a.utility = 0
	if winner := h.ctrl.Evaluate(); winner != nil {
		t.Fatalf("expected no winner, got %q", nameOf(winner))
	}
	h.ctrl.Tick(2, 0.1)
	if h.ctrl.ActiveBehavior() != nil {
		t.Fatalf("expected no active behavior")
	}
	if a.stops != 1 || a.Active || !a.Curbed {
		t.Fatalf("expected a stopped once and curbed, got stops=%d active=%v curbed=%v", a.stops, a.Active, a.Curbed)
	}
}

func TestEvaluateIneligibleScores(t *testing.T) {
	h := newHarness(t, probeTemplate("nan", 0), probeTemplate("inf", 0), probeTemplate("neg", 0))
	h.probe(t, "nan").utility = math.NaN()
	h.probe(t, "inf").utility = math.Inf(1)
	h.probe(t, "neg").utility = -3
	if winner := h.ctrl.Evaluate(); winner != nil {
		t.Fatalf("expected no winner for invalid scores, got %q", nameOf(winner))
	}
}

func TestEvaluateSkipsCurbedWithoutScoring(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 1), probeTemplate("b", 100))
	b := h.probe(t, "b")
	b.Curbed = true
	if winner := h.ctrl.Evaluate(); nameOf(winner) != "a" {
		t.Fatalf("expected a while b is curbed, got %q", nameOf(winner))
	}
	if b.scoreCalls != 0 {
		t.Fatalf("expected curbed behavior not to be scored, got %d calls", b.scoreCalls)
	}
}

func TestTickPerformsOnceIncludingActivationTick(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 1))
	h.ctrl.Tick(1, 0.1)
	a := h.probe(t, "a")
	if a.performs != 0 {
		t.Fatalf("expected nothing performed before selection")
	}
	h.ctrl.Evaluate()
	h.ctrl.Tick(2, 0.25)
	if a.starts != 1 || a.performs != 1 || a.lastDelta != 0.25 {
		t.Fatalf("expected start and one perform on the activation tick, got starts=%d performs=%d delta=%f", a.starts, a.performs, a.lastDelta)
	}
	h.ctrl.Tick(3, 0.1)
	h.ctrl.Tick(4, 0.1)
	if a.starts != 1 || a.performs != 3 {
		t.Fatalf("expected a single start and a perform per tick, got starts=%d performs=%d", a.starts, a.performs)
	}
}

func TestCurbRoundTrip(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 10), probeTemplate("b", 1))
	a := h.probe(t, "a")
	h.ctrl.Evaluate()
	h.ctrl.Tick(1, 0.1)

	if err := h.ctrl.ForceBehaviorNamed("b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.ctrl.Tick(2, 0.1)
	if !a.Curbed {
		t.Fatalf("expected a curbed immediately after stopping")
	}
	if h.ctrl.PendingCurbs() != 1 {
		t.Fatalf("expected one pending curb, got %d", h.ctrl.PendingCurbs())
	}

	start := h.queue.Now()
	step := 10 * time.Millisecond
	for a.Curbed {
		if winner := h.ctrl.Evaluate(); winner == a {
			t.Fatalf("curbed behavior selected at %s", h.queue.Now()-start)
		}
		h.queue.Advance(step)
		if h.queue.Now()-start > 3*time.Second {
			t.Fatalf("curb never released")
		}
	}
	elapsed := h.queue.Now() - start
	if elapsed < time.Second || elapsed > 2*time.Second+step {
		t.Fatalf("expected release within [1s, 2s], got %s", elapsed)
	}
	if winner := h.ctrl.Evaluate(); winner != a {
		t.Fatalf("expected a eligible again after release, got %q", nameOf(winner))
	}
	if len(h.events.OfType(loggingbehavior.EventReleased)) != 1 {
		t.Fatalf("expected a single release event")
	}
}

func TestCurbOverrideBypassesTimer(t *testing.T) {
	h := newHarness(t,
		behavior.Template{Kind: "self_curbing", Name: "calm", CurbMin: time.Second, CurbMax: time.Second, Params: map[string]any{"utility": 5}},
		probeTemplate("b", 1),
	)
	b, _ := h.ctrl.Behavior("calm")
	calm := b.(*selfCurbing)

	h.ctrl.Evaluate()
	h.ctrl.Tick(1, 0.1)
	if h.ctrl.ActiveBehavior() != b {
		t.Fatalf("expected calm active")
	}
	if err := h.ctrl.ForceBehaviorNamed("b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.ctrl.Tick(2, 0.1)

	if calm.overrides != 1 {
		t.Fatalf("expected CurbOverride once, got %d", calm.overrides)
	}
	if calm.Curbed {
		t.Fatalf("expected controller to leave the curbed flag alone")
	}
	if h.ctrl.PendingCurbs() != 0 || h.queue.Pending() != 0 {
		t.Fatalf("expected no curb timer for override behaviors")
	}
	if calm.stops != 1 {
		t.Fatalf("expected StopBehavior once, got %d", calm.stops)
	}
}

func TestForceBehaviorTransitionsOnNextTick(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 10), probeTemplate("x", 0))
	a, x := h.probe(t, "a"), h.probe(t, "x")
	h.ctrl.Evaluate()
	h.ctrl.Tick(1, 0.1)

	xb, _ := h.ctrl.Behavior("x")
	if err := h.ctrl.ForceBehavior(xb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ctrl.ActiveBehavior() == xb {
		t.Fatalf("expected force to wait for the next tick")
	}
	h.ctrl.Tick(2, 0.1)
	if h.ctrl.ActiveBehavior() != xb {
		t.Fatalf("expected x active after the tick")
	}
	if a.stops != 1 || x.starts != 1 {
		t.Fatalf("expected one stop and one start, got stops=%d starts=%d", a.stops, x.starts)
	}
	h.ctrl.Tick(3, 0.1)
	if a.stops != 1 || x.starts != 1 {
		t.Fatalf("expected no further transitions, got stops=%d starts=%d", a.stops, x.starts)
	}
	started := h.events.OfType(loggingbehavior.EventStarted)
	last := started[len(started)-1].Payload.(loggingbehavior.StartedPayload)
	if !last.Forced {
		t.Fatalf("expected forced start to be flagged")
	}
}

func TestForceBehaviorRejectsForeignInstance(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 1))
	other := newHarness(t, probeTemplate("a", 1))
	foreign, _ := other.ctrl.Behavior("a")
	if err := h.ctrl.ForceBehavior(foreign); !errors.Is(err, ErrForeignBehavior) {
		t.Fatalf("expected ErrForeignBehavior, got %v", err)
	}
	if err := h.ctrl.ForceBehaviorNamed("missing"); !errors.Is(err, ErrForeignBehavior) {
		t.Fatalf("expected ErrForeignBehavior for unknown name, got %v", err)
	}
}

func TestForceNilStopsActive(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 1))
	h.ctrl.Evaluate()
	h.ctrl.Tick(1, 0.1)
	if err := h.ctrl.ForceBehavior(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.ctrl.Tick(2, 0.1)
	if h.ctrl.ActiveBehavior() != nil || h.probe(t, "a").stops != 1 {
		t.Fatalf("expected forced nil to stop the active behavior")
	}
}

func TestStartStaggersFirstEvaluation(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 1))
	if err := h.ctrl.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.ctrl.Start(); err != nil {
		t.Fatalf("expected second Start to be a no-op, got %v", err)
	}
	a := h.probe(t, "a")
	step := 10 * time.Millisecond
	for a.scoreCalls == 0 {
		h.queue.Advance(step)
		if h.queue.Now() > 2*time.Second {
			t.Fatalf("evaluation never ran")
		}
	}
	first := h.queue.Now()
	if first < 500*time.Millisecond || first >= time.Second+step {
		t.Fatalf("expected first evaluation within [interval, 2*interval), got %s", first)
	}
	h.queue.Advance(500 * time.Millisecond)
	if a.scoreCalls != 2 {
		t.Fatalf("expected one evaluation per interval, got %d", a.scoreCalls)
	}
}

func TestCloseCancelsPendingAlarms(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 10), probeTemplate("b", 1))
	if err := h.ctrl.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.queue.Advance(time.Second)
	h.ctrl.Tick(1, 0.1)
	a, b := h.probe(t, "a"), h.probe(t, "b")
	if !a.Active {
		t.Fatalf("expected a active after the first evaluation")
	}
	if err := h.ctrl.ForceBehaviorNamed("b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.ctrl.Tick(2, 0.1)
	if h.ctrl.PendingCurbs() != 1 {
		t.Fatalf("expected a curb alarm in flight")
	}

	h.ctrl.Close()
	if h.queue.Pending() != 0 {
		t.Fatalf("expected every alarm cancelled, %d pending", h.queue.Pending())
	}
	if b.stops != 1 || b.Active {
		t.Fatalf("expected teardown to stop the active behavior")
	}
	scored := a.scoreCalls + b.scoreCalls
	h.queue.Advance(10 * time.Second)
	h.ctrl.Tick(3, 0.1)
	if a.scoreCalls+b.scoreCalls != scored {
		t.Fatalf("expected no evaluation after close")
	}
	if !a.Curbed {
		t.Fatalf("expected curb callback not to fire after close")
	}
	if err := h.ctrl.Start(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from Start, got %v", err)
	}
	if err := h.ctrl.ForceBehaviorNamed("a"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from ForceBehavior, got %v", err)
	}
	h.ctrl.Close()
}

func TestCloseGuardsCallbacksFiredFromStaleQueues(t *testing.T) {
	// A facility that ignores Cancel still must not reach a closed controller.
	stubborn := &ignoringCancel{Queue: alarm.NewQueue()}
	factory := behavior.NewFactory()
	factory.Register("probe", func() behavior.Behavior { return &probe{} })
	ctrl, err := NewController(Config{AgentID: "moth", Alarms: stubborn, Factory: factory, Rand: rand.New(rand.NewSource(3))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ctrl.RegisterBehaviors([]behavior.Template{probeTemplate("a", 2), probeTemplate("b", 1)}, behavior.Context{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctrl.Start()
	stubborn.Advance(time.Second)
	ctrl.Tick(1, 0.1)
	ctrl.ForceBehaviorNamed("b")
	ctrl.Tick(2, 0.1)
	a, _ := ctrl.Behavior("a")
	pa := a.(*probe)
	scored := pa.scoreCalls

	ctrl.Close()
	stubborn.Advance(10 * time.Second)
	if pa.scoreCalls != scored {
		t.Fatalf("expected stale evaluation alarm to be ignored")
	}
	if !pa.Curbed {
		t.Fatalf("expected stale curb alarm to be ignored")
	}
}

type ignoringCancel struct {
	*alarm.Queue
}

func (ignoringCancel) Cancel(alarm.Handle) bool { return false }

func TestSingleActiveInvariantUnderRandomSchedules(t *testing.T) {
	templates := []behavior.Template{
		probeTemplate("a", 0), probeTemplate("b", 0), probeTemplate("c", 0), probeTemplate("d", 0),
	}
	templates[1].CurbMin, templates[1].CurbMax = 0, 0
	h := newHarness(t, templates...)
	rng := rand.New(rand.NewSource(42))
	names := []string{"a", "b", "c", "d"}

	for tick := uint64(1); tick <= 2000; tick++ {
		switch rng.Intn(10) {
		case 0:
			h.ctrl.ForceBehaviorNamed(names[rng.Intn(len(names))])
		case 1, 2:
			for _, name := range names {
				h.probe(t, name).utility = rng.Float64()*4 - 1
			}
			h.ctrl.Evaluate()
		}
		h.queue.Advance(50 * time.Millisecond)
		h.ctrl.Tick(tick, 0.05)

		count := h.activeCount()
		if count > 1 {
			t.Fatalf("tick %d: %d behaviors active", tick, count)
		}
		active := h.ctrl.ActiveBehavior()
		if (active == nil) != (count == 0) {
			t.Fatalf("tick %d: active slot disagrees with flags", tick)
		}
		for _, name := range names {
			p := h.probe(t, name)
			if p.starts-p.stops < 0 || p.starts-p.stops > 1 {
				t.Fatalf("tick %d: %s unbalanced starts=%d stops=%d", tick, name, p.starts, p.stops)
			}
		}
	}
}

func TestUtilityPanicMakesBehaviorIneligible(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 10), probeTemplate("b", 1))
	h.probe(t, "a").panicOn = hookUtility
	if winner := h.ctrl.Evaluate(); nameOf(winner) != "b" {
		t.Fatalf("expected b when a panics, got %q", nameOf(winner))
	}
	faults := h.events.OfType(loggingbehavior.EventFault)
	if len(faults) != 1 {
		t.Fatalf("expected one fault event, got %d", len(faults))
	}
	payload := faults[0].Payload.(loggingbehavior.FaultPayload)
	if payload.Hook != hookUtility {
		t.Fatalf("unexpected fault hook %q", payload.Hook)
	}
}

func TestStartPanicLeavesSlotEmpty(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 10))
	a := h.probe(t, "a")
	a.panicOn = hookStart
	h.ctrl.Evaluate()
	h.ctrl.Tick(1, 0.1)
	if h.ctrl.ActiveBehavior() != nil || a.Active {
		t.Fatalf("expected failed start to leave no active behavior")
	}
	if h.ctrl.Candidate() != nil {
		t.Fatalf("expected the candidate to be cleared")
	}
	if a.performs != 0 {
		t.Fatalf("expected no perform after a failed start")
	}
	h.ctrl.Tick(2, 0.1)
	if a.starts != 1 {
		t.Fatalf("expected no retry until the next evaluation, got %d starts", a.starts)
	}
}

func TestStopPanicStillCompletesTransition(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 10), probeTemplate("b", 1))
	a := h.probe(t, "a")
	a.panicOn = hookStop
	h.ctrl.Evaluate()
	h.ctrl.Tick(1, 0.1)
	h.ctrl.ForceBehaviorNamed("b")
	h.ctrl.Tick(2, 0.1)
	if nameOf(h.ctrl.ActiveBehavior()) != "b" {
		t.Fatalf("expected b active despite a failing to stop")
	}
	if a.Active || !a.Curbed {
		t.Fatalf("expected a inactive and curbed, got active=%v curbed=%v", a.Active, a.Curbed)
	}
	var hookErr *HookError
	faults := h.events.OfType(loggingbehavior.EventFault)
	if len(faults) != 1 {
		t.Fatalf("expected one fault, got %d", len(faults))
	}
	err := error(&HookError{Behavior: "a", Hook: hookStop, Value: errors.New("cannot stop")})
	if !errors.As(err, &hookErr) || hookErr.Unwrap() == nil {
		t.Fatalf("expected HookError to unwrap error panics")
	}
}

func TestPerformPanicStopsBehaviorOnNextTick(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 10))
	a := h.probe(t, "a")
	h.ctrl.Evaluate()
	h.ctrl.Tick(1, 0.1)
	a.panicOn = hookPerform
	h.ctrl.Tick(2, 0.1)
	if h.ctrl.Candidate() != nil {
		t.Fatalf("expected candidate cleared after a perform fault")
	}
	h.ctrl.Tick(3, 0.1)
	if h.ctrl.ActiveBehavior() != nil || a.stops != 1 || !a.Curbed {
		t.Fatalf("expected a stopped and curbed, got active=%v stops=%d curbed=%v", h.ctrl.ActiveBehavior() != nil, a.stops, a.Curbed)
	}
}

func TestPerformPanicExcludedFromEvaluationUntilStopped(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 10), probeTemplate("b", 1))
	a := h.probe(t, "a")
	h.ctrl.Evaluate()
	h.ctrl.Tick(1, 0.1)
	a.panicOn = hookPerform
	for i := uint64(2); i < 12; i++ {
		h.ctrl.Evaluate()
		h.ctrl.Tick(i, 0.1)
	}
	if a.performs != 2 {
		t.Fatalf("expected a to fault once, got %d performs", a.performs)
	}
	if a.stops != 1 || !a.Curbed {
		t.Fatalf("expected a stopped and curbed, got stops=%d curbed=%v", a.stops, a.Curbed)
	}
	if active := h.ctrl.ActiveBehavior(); active == nil || active.Core().Name != "b" {
		t.Fatalf("expected b active, got %q", nameOf(active))
	}
	if len(h.ctrl.faulted) != 0 {
		t.Fatalf("expected fault record cleared after stop, got %d", len(h.ctrl.faulted))
	}
}

func TestCurbDurationIncludesBothBounds(t *testing.T) {
	h := newHarness(t)
	sawLo, sawHi := false, false
	for i := 0; i < 2000; i++ {
		d := h.ctrl.curbDuration(0, 2)
		switch {
		case d < 0 || d > 2:
			t.Fatalf("expected draw within [0, 2], got %d", d)
		case d == 0:
			sawLo = true
		case d == 2:
			sawHi = true
		}
	}
	if !sawLo || !sawHi {
		t.Fatalf("expected both bounds drawn, got lo=%v hi=%v", sawLo, sawHi)
	}
	if d := h.ctrl.curbDuration(time.Second, time.Second); d != time.Second {
		t.Fatalf("expected degenerate range to return its bound, got %s", d)
	}
}

func TestRegisterBehaviorsPublishesSkippedParams(t *testing.T) {
	tmpl := probeTemplate("a", 1).WithParams(map[string]any{"glow": 0.5})
	h := newHarness(t, tmpl)
	skipped := h.events.OfType(loggingbehavior.EventParamSkipped)
	if len(skipped) != 1 {
		t.Fatalf("expected one skipped param event, got %d", len(skipped))
	}
	payload := skipped[0].Payload.(loggingbehavior.ParamSkippedPayload)
	if payload.Param != "glow" || payload.Kind != "probe" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	a := h.probe(t, "a")
	if a.Owner().AgentID != "cruncher-1" || a.Owner().Alarms == nil || a.Owner().Rand == nil {
		t.Fatalf("expected controller to fill the behavior context, got %+v", a.Owner())
	}
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t, probeTemplate("a", 3), probeTemplate("b", 1))
	h.ctrl.Evaluate()
	h.ctrl.Tick(1, 0.1)
	h.ctrl.ForceBehaviorNamed("b")
	snap := h.ctrl.Snapshot()
	if snap.AgentID != "cruncher-1" || snap.Active != "a" || snap.Candidate != "b" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(snap.Behaviors) != 2 || !snap.Behaviors[0].Active || snap.Behaviors[1].Active {
		t.Fatalf("unexpected behavior statuses %+v", snap.Behaviors)
	}
}
