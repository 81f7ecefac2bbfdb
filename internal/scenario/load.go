package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/me/workmaster/pkg/model"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"gopkg.in/yaml.v3"
)

// Load reads a scenario file. The format is chosen by extension: .hcl for
// HCL, anything else is parsed as YAML. vars populate the HCL var object.
func Load(path string, vars map[string]string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return ParseHCL(data, path, vars)
	}
	return ParseYAML(data)
}

// ParseYAML decodes and validates a YAML scenario. Unknown fields are errors.
func ParseYAML(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse scenario yaml: %w", err)
	}
	return finish(&s)
}

// hclFile is the top-level structure of an HCL scenario.
type hclFile struct {
	Name   string      `hcl:"name,optional"`
	Ticks  int         `hcl:"ticks"`
	Agents []*hclAgent `hcl:"agent,block"`
	Events []*hclEvent `hcl:"event,block"`
}

type hclAgent struct {
	Name         string     `hcl:"name,label"`
	Priority     int        `hcl:"priority,optional"`
	PriorityExpr string     `hcl:"priority_expr,optional"`
	Detached     bool       `hcl:"detached,optional"`
	Idle         *hclWork   `hcl:"idle,block"`
	Work         []*hclWork `hcl:"work,block"`
}

type hclWork struct {
	Name            string   `hcl:"name,label"`
	Kind            string   `hcl:"kind,optional"`
	Ticks           int      `hcl:"ticks,optional"`
	Script          string   `hcl:"script,optional"`
	Requires        []string `hcl:"requires,optional"`
	Additional      []string `hcl:"additional,optional"`
	Cancelable      bool     `hcl:"cancelable,optional"`
	UpdateTimestamp *bool    `hcl:"update_timestamp,optional"`
}

type hclEvent struct {
	At     int      `hcl:"at"`
	Action string   `hcl:"action"`
	Agent  string   `hcl:"agent,optional"`
	Agents []string `hcl:"agents,optional"`
	Work   *hclWork `hcl:"work,block"`
}

// ParseHCL decodes and validates an HCL scenario. Expressions can reference
// var.<name> for every entry in vars and call a few cty standard functions.
func ParseHCL(data []byte, filename string, vars map[string]string) (*Scenario, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root hclFile
	diags = gohcl.DecodeBody(file.Body, evalContext(vars), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	return finish(root.translate())
}

func evalContext(vars map[string]string) *hcl.EvalContext {
	varObj := cty.EmptyObjectVal
	if len(vars) > 0 {
		vals := make(map[string]cty.Value, len(vars))
		for k, v := range vars {
			vals[k] = cty.StringVal(v)
		}
		varObj = cty.ObjectVal(vals)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"var": varObj},
		Functions: map[string]function.Function{
			"max":    stdlib.MaxFunc,
			"min":    stdlib.MinFunc,
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"concat": stdlib.ConcatFunc,
			"format": stdlib.FormatFunc,
		},
	}
}

func (f *hclFile) translate() *Scenario {
	s := &Scenario{Name: f.Name, Ticks: f.Ticks}
	for _, a := range f.Agents {
		spec := AgentSpec{
			Name:         a.Name,
			Priority:     a.Priority,
			PriorityExpr: a.PriorityExpr,
			Detached:     a.Detached,
		}
		if a.Idle != nil {
			idle := a.Idle.translate()
			spec.Idle = &idle
		}
		for _, w := range a.Work {
			spec.Work = append(spec.Work, w.translate())
		}
		s.Agents = append(s.Agents, spec)
	}
	for _, e := range f.Events {
		ev := EventSpec{
			At:     e.At,
			Action: EventAction(e.Action),
			Agent:  e.Agent,
			Agents: e.Agents,
		}
		if e.Work != nil {
			w := e.Work.translate()
			ev.Work = &w
		}
		s.Events = append(s.Events, ev)
	}
	return s
}

func (w *hclWork) translate() WorkSpec {
	return WorkSpec{
		Name:            w.Name,
		Kind:            model.ExecutorType(w.Kind),
		Ticks:           w.Ticks,
		Script:          w.Script,
		Requires:        w.Requires,
		Additional:      w.Additional,
		Cancelable:      w.Cancelable,
		UpdateTimestamp: w.UpdateTimestamp,
	}
}

func finish(s *Scenario) (*Scenario, error) {
	s.applyDefaults()
	sort.SliceStable(s.Events, func(i, j int) bool { return s.Events[i].At < s.Events[j].At })
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseVars turns key=value pairs into a vars map.
func ParseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid var %q: want key=value", p)
		}
		vars[k] = v
	}
	return vars, nil
}
