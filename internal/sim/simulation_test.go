package sim

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/portsim/internal/block"
	"github.com/san-kum/portsim/internal/expr"
	"github.com/san-kum/portsim/internal/system"
)

// eulerStep commits one forward step of length 1.
type eulerStep struct{}

func (eulerStep) Name() string { return "euler-step" }

func (eulerStep) Integrate(p Problem) error {
	t, y := p.Snapshot()
	return p.Commit(t+1, y.AddScaled(1, p.Evaluate()))
}

// commitNaN commits a diverged value for the last variable.
type commitNaN struct{}

func (commitNaN) Name() string { return "nan" }

func (commitNaN) Integrate(p Problem) error {
	t, y := p.Snapshot()
	y[len(y)-1] = math.NaN()
	return p.Commit(t+1, y)
}

func compiled(t *testing.T, root block.Block, opts ...system.Option) *system.System {
	t.Helper()
	sys := system.New(opts...)
	if err := sys.Compile(root); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return sys
}

// doubler feeds y = 2*x, with x defaulting to 5, into dz/dt = y.
func doubler(t *testing.T) *block.CompositeBlock {
	t.Helper()
	f := block.NewFunctional("f")
	if err := f.AddInputPorts(block.PortWithDefault("x", "5")); err != nil {
		t.Fatal(err)
	}
	if err := f.AddParameterAssignments(block.Assign("y", "2*x")); err != nil {
		t.Fatal(err)
	}
	v := block.NewVariable("v")
	if err := v.AddDifferentialAssignments(block.Assign("z", "y")); err != nil {
		t.Fatal(err)
	}
	root := block.NewComposite("root")
	if err := root.AddChildren(f, v); err != nil {
		t.Fatal(err)
	}
	if err := root.AddDirectedWire("f.y", "v.y"); err != nil {
		t.Fatal(err)
	}
	return root
}

// growth is dx/dt = a*x with a required.
func growth(t *testing.T) *block.VariableBlock {
	t.Helper()
	v := block.NewVariable("v")
	if err := v.AddDifferentialAssignments(block.Assign("x", "a*x")); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestNewRequiresCompiledSystem(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for nil system, got %v", err)
	}
	if _, err := New(system.New()); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for uncompiled system, got %v", err)
	}
}

func TestSubstitute(t *testing.T) {
	s, err := New(compiled(t, doubler(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Substitute(); err != nil {
		t.Fatalf("Substitute: %v", err)
	}

	p, _ := s.Parameter("f.y")
	if !expr.Equal(p.Expr, expr.Int(10)) {
		t.Errorf("expected f.y = 10, got %s", p.Expr)
	}
	v, _ := s.Variable("v.z")
	if !expr.Equal(v.Expr, expr.Int(10)) {
		t.Errorf("expected d(v.z)/dt = 10, got %s", v.Expr)
	}

	if err := s.Substitute(); err != nil {
		t.Errorf("expected a second Substitute to be a no-op, got %v", err)
	}
	v, _ = s.Variable("v.z")
	if !expr.Equal(v.Expr, expr.Int(10)) {
		t.Errorf("expected d(v.z)/dt to stay 10, got %s", v.Expr)
	}
}

func TestSubstituteKeepsTime(t *testing.T) {
	sys := system.New()
	if err := sys.AddSystemParameter("temp", "20 + T", ""); err != nil {
		t.Fatal(err)
	}
	v := block.NewVariable("v")
	if err := v.AddInputPorts(block.PortWithDefault("k", "temp/10")); err != nil {
		t.Fatal(err)
	}
	if err := v.AddDifferentialAssignments(block.Assign("x", "k")); err != nil {
		t.Fatal(err)
	}
	if err := sys.Compile(v); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	s, err := New(sys)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Substitute(); err != nil {
		t.Fatalf("Substitute: %v", err)
	}
	x, _ := s.Variable("x")
	if got := expr.FreeSymbols(x.Expr); len(got) != 1 || got[0] != "T" {
		t.Fatalf("expected d(x)/dt to depend on T alone, got %s", x.Expr)
	}
	got, err := expr.Eval(x.Expr, map[expr.Symbol]float64{"T": 10}, expr.Builtins())
	if err != nil || math.Abs(got-3) > 1e-12 {
		t.Errorf("expected d(x)/dt = 3 at T=10, got %g (%v)", got, err)
	}
}

func TestRequiredInputs(t *testing.T) {
	s, err := New(compiled(t, growth(t)))
	if err != nil {
		t.Fatal(err)
	}
	err = s.Substitute()
	if !errors.Is(err, ErrConfig) || !strings.Contains(err.Error(), "a") {
		t.Fatalf("expected ErrConfig naming a, got %v", err)
	}

	if err := s.SetParameters(map[string]string{"a": "0.5"}); err != nil {
		t.Fatalf("SetParameters: %v", err)
	}
	p, _ := s.Parameter("a")
	if p.Class != system.ClassDefaultOptional {
		t.Errorf("expected a set parameter to become %v, got %v", system.ClassDefaultOptional, p.Class)
	}
	if err := s.Substitute(); err != nil {
		t.Fatalf("Substitute: %v", err)
	}
}

func TestSetParameters(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   error
	}{
		{"default parameter", map[string]string{"f.x": "7"}, nil},
		{"time dependent", map[string]string{"f.x": "sin(T)"}, nil},
		{"functional parameter", map[string]string{"f.y": "1"}, ErrConfig},
		{"unknown parameter", map[string]string{"g.q": "1"}, ErrDependency},
		{"references a variable", map[string]string{"f.x": "v.z"}, ErrDependency},
		{"references a parameter", map[string]string{"f.x": "f.y"}, ErrDependency},
		{"bad formula", map[string]string{"f.x": "1 +"}, expr.ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(compiled(t, doubler(t)))
			if err != nil {
				t.Fatal(err)
			}
			err = s.SetParameters(tt.values)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("SetParameters: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			p, _ := s.Parameter("f.x")
			if !expr.Equal(p.Expr, expr.Int(5)) {
				t.Errorf("expected a failed call to leave f.x = 5, got %s", p.Expr)
			}
		})
	}
}

func TestSetParametersAfterSubstitute(t *testing.T) {
	s, err := New(compiled(t, doubler(t)))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Substitute(); err != nil {
		t.Fatal(err)
	}
	if err := s.SetParameters(map[string]string{"f.x": "1"}); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestSimulationsAreIndependent(t *testing.T) {
	sys := compiled(t, doubler(t))
	a, err := New(sys)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(sys)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SetParameters(map[string]string{"f.x": "1"}); err != nil {
		t.Fatal(err)
	}
	if err := a.Simulate(eulerStep{}); err != nil {
		t.Fatal(err)
	}
	if err := b.Simulate(eulerStep{}); err != nil {
		t.Fatal(err)
	}

	if got := a.Result().Final()["v.z"]; got != 2 {
		t.Errorf("expected a to reach v.z = 2, got %g", got)
	}
	if got := b.Result().Final()["v.z"]; got != 10 {
		t.Errorf("expected b to reach v.z = 10, got %g", got)
	}
	p, _ := sys.Parameter("f.x")
	if !expr.Equal(p.Expr, expr.Int(5)) {
		t.Errorf("expected the system to keep f.x = 5, got %s", p.Expr)
	}
	v, _ := sys.Variable("v.z")
	if !expr.Equal(v.Expr, expr.MustParse("f.y")) {
		t.Errorf("expected the system to keep d(v.z)/dt = f.y, got %s", v.Expr)
	}
}

func TestInitialValues(t *testing.T) {
	s, err := New(compiled(t, doubler(t)))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetInitialValues(map[string]float64{"w": 1}); !errors.Is(err, ErrDependency) {
		t.Errorf("expected ErrDependency for an unknown variable, got %v", err)
	}
	if err := s.SetInitialValues(map[string]float64{"v.z": 3}); err != nil {
		t.Fatalf("SetInitialValues: %v", err)
	}
	if err := s.Simulate(eulerStep{}); err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	v, _ := s.Variable("v.z")
	if len(v.Series) != 2 || v.Series[0] != 3 || v.Series[1] != 13 {
		t.Errorf("expected v.z = [3 13], got %v", v.Series)
	}
	if err := s.SetInitialValues(map[string]float64{"v.z": 0}); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig after integration, got %v", err)
	}
}

func TestResult(t *testing.T) {
	s, err := New(compiled(t, doubler(t), system.WithTimeSymbol("time")))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Simulate(eulerStep{}); err != nil {
			t.Fatal(err)
		}
	}
	r := s.Result()
	if r.TimeSymbol != "time" {
		t.Errorf("expected time symbol time, got %s", r.TimeSymbol)
	}
	if len(r.Time) != 4 || r.Time[3] != 3 {
		t.Errorf("expected time [0 1 2 3], got %v", r.Time)
	}
	z, ok := r.Get("v.z")
	if !ok {
		t.Fatal("series v.z missing")
	}
	if len(z.Values) != 4 || z.Values[3] != 30 {
		t.Errorf("expected v.z to reach 30, got %v", z.Values)
	}
	if _, ok := r.Get("f.y"); ok {
		t.Error("parameters should not appear as series")
	}
}

func TestCommitRejectsDivergence(t *testing.T) {
	s, err := New(compiled(t, doubler(t)))
	if err != nil {
		t.Fatal(err)
	}
	err = s.Simulate(commitNaN{})
	var ue *UnstableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnstableError, got %v", err)
	}
	if len(ue.Variables) != 1 || ue.Variables[0] != "v.z" {
		t.Errorf("expected v.z to diverge, got %v", ue.Variables)
	}
	if len(s.Time()) != 1 {
		t.Errorf("expected nothing committed, got %v", s.Time())
	}
}

func TestIndeterminateRateIsUnstable(t *testing.T) {
	v := block.NewVariable("v")
	if err := v.AddInputPorts(block.PortWithDefault("a", "0"), block.PortWithDefault("b", "0")); err != nil {
		t.Fatal(err)
	}
	if err := v.AddDifferentialAssignments(block.Assign("x", "1 + a/b")); err != nil {
		t.Fatal(err)
	}
	s, err := New(compiled(t, v))
	if err != nil {
		t.Fatal(err)
	}
	err = s.Simulate(eulerStep{})
	if !errors.Is(err, ErrUnstable) {
		t.Fatalf("expected ErrUnstable for 0/0, got %v", err)
	}
	x, _ := s.Variable("x")
	if !expr.IsUndefined(x.Expr) {
		t.Errorf("expected d(x)/dt to be undefined after substitution, got %s", x.Expr)
	}
	if len(x.Series) != 1 {
		t.Errorf("expected only the initial value, got %v", x.Series)
	}
}
