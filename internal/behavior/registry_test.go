package behavior

import (
	"errors"
	"testing"
	"time"

	"depthseeker/internal/state"
)

type tunable struct {
	Base
	weight float64
	label  string
}

func (t *tunable) CalculateUtility() float64 { return t.weight }
func (t *tunable) StartBehavior() {}
func (t *tunable) StopBehavior() {}
func (t *tunable) PerformBehavior(float64) {}

func (t *tunable) SetParam(name string, value any) bool {
	switch name {
	case "weight":
		v, ok := FloatParam(value)
		if ok {
			t.weight = v
		}
		return ok
	case "label":
		v, ok := StringParam(value)
		if ok {
			t.label = v
		}
		return ok
	}
	return false
}

type plain struct {
	Base
}

func (p *plain) CalculateUtility() float64 { return 1 }
func (p *plain) StartBehavior() {}
func (p *plain) StopBehavior() {}
func (p *plain) PerformBehavior(float64) {}

func testFactory() *Factory {
	f := NewFactory()
	f.Register("tunable", func() Behavior { return &tunable{} })
	f.Register("plain", func() Behavior { return &plain{} })
	return f
}

func TestRegisterCopiesKnownParamsAndSkipsUnknown(t *testing.T) {
	reg := NewRegistry(testFactory())
	body := &state.Lifeform{ID: "moth-1", Type: "moth"}
	ctx := Context{AgentID: "moth-1", Type: "moth", Body: body}

	report, err := reg.Register([]Template{{
		Kind:    "tunable",
		Name:    "graze",
		CurbMin: time.Second,
		CurbMax: 3 * time.Second,
		Params: map[string]any{
			"weight": 2,
			"label":  "meadow",
			"colour": "green",
			"unused": true,
		},
	}}, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Registered) != 1 || report.Registered[0] != "graze" {
		t.Fatalf("unexpected registered list %v", report.Registered)
	}
	if len(report.Skipped) != 2 {
		t.Fatalf("expected 2 skipped params, got %+v", report.Skipped)
	}
	if report.Skipped[0].Param != "colour" || report.Skipped[1].Param != "unused" {
		t.Fatalf("expected skipped params in sorted order, got %+v", report.Skipped)
	}

	b, ok := reg.Lookup("graze")
	if !ok {
		t.Fatalf("expected graze to be registered")
	}
	inst := b.(*tunable)
	if inst.weight != 2 || inst.label != "meadow" {
		t.Fatalf("expected params copied, got weight=%f label=%q", inst.weight, inst.label)
	}
	if inst.Kind != "tunable" || inst.CurbMin != time.Second || inst.CurbMax != 3*time.Second {
		t.Fatalf("unexpected base %+v", inst.Base)
	}
	if inst.Owner().AgentID != "moth-1" || inst.Body() != body {
		t.Fatalf("expected instance bound to owner context")
	}
}

func TestRegisterWrongTypeIsSkippedNotFatal(t *testing.T) {
	reg := NewRegistry(testFactory())
	report, err := reg.Register([]Template{{Kind: "tunable", Params: map[string]any{"weight": "heavy"}}}, Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Param != "weight" {
		t.Fatalf("expected weight to be skipped, got %+v", report.Skipped)
	}
}

func TestRegisterWithoutSetterSkipsEveryParam(t *testing.T) {
	reg := NewRegistry(testFactory())
	report, err := reg.Register([]Template{{Kind: "plain", Params: map[string]any{"a": 1, "b": 2}}}, Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Skipped) != 2 {
		t.Fatalf("expected every param skipped, got %+v", report.Skipped)
	}
	if _, ok := reg.Lookup("plain"); !ok {
		t.Fatalf("expected kind to be used as the default name")
	}
}

func TestRegisterCreatesFreshInstances(t *testing.T) {
	reg := NewRegistry(testFactory())
	tmpl := Template{Kind: "tunable", Name: "a", Params: map[string]any{"weight": 1}}
	_, err := reg.Register([]Template{tmpl, tmpl.WithParams(map[string]any{"weight": 5})}, Context{})
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected failed registration to leave registry empty, got %d", reg.Len())
	}

	override := tmpl.WithParams(map[string]any{"weight": 5})
	override.Name = "b"
	if _, err := reg.Register([]Template{tmpl, override}, Context{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, _ := reg.Lookup("a")
	b, _ := reg.Lookup("b")
	if a == b {
		t.Fatalf("expected distinct instances")
	}
	if a.(*tunable).weight != 1 || b.(*tunable).weight != 5 {
		t.Fatalf("expected override applied to the clone only")
	}
	if tmpl.Params["weight"] != 1 {
		t.Fatalf("expected WithParams not to mutate the source template")
	}
	order := reg.Behaviors()
	if order[0] != a || order[1] != b {
		t.Fatalf("expected registration order to be preserved")
	}
}

func TestRegisterUnknownKind(t *testing.T) {
	reg := NewRegistry(testFactory())
	_, err := reg.Register([]Template{{Kind: "plain"}, {Kind: "teleport"}}, Context{})
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected nothing registered, got %d", reg.Len())
	}
}

func TestRegisterNormalizesCurbRange(t *testing.T) {
	reg := NewRegistry(testFactory())
	_, err := reg.Register([]Template{{Kind: "plain", CurbMin: -time.Second, CurbMax: -2 * time.Second}}, Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := reg.Lookup("plain")
	if b.Core().CurbMin != 0 || b.Core().CurbMax != 0 {
		t.Fatalf("expected curb range clamped to zero, got [%s, %s]", b.Core().CurbMin, b.Core().CurbMax)
	}
}

func TestContains(t *testing.T) {
	reg := NewRegistry(testFactory())
	if _, err := reg.Register([]Template{{Kind: "plain"}}, Context{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	owned, _ := reg.Lookup("plain")
	if !reg.Contains(owned) {
		t.Fatalf("expected registry to contain its own behavior")
	}
	stranger := &plain{Base: Base{Name: "plain"}}
	if reg.Contains(stranger) {
		t.Fatalf("expected a foreign instance with the same name to be rejected")
	}
}

func TestDurationParam(t *testing.T) {
	cases := []struct {
		in   any
		want time.Duration
		ok   bool
	}{
		{"750ms", 750 * time.Millisecond, true},
		{1.5, 1500 * time.Millisecond, true},
		{2, 2 * time.Second, true},
		{time.Minute, time.Minute, true},
		{"soon", 0, false},
		{true, 0, false},
	}
	for _, tc := range cases {
		got, ok := DurationParam(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("DurationParam(%v) = %s, %v; expected %s, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
