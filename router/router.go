// Package router implements the Pattern Router: matching an event's path
// against a spy's ordered regex patterns and producing one CommandSpec per
// match via two-site template expansion.
package router

import (
	"path/filepath"

	"github.com/spyrun/spyrun/config"
	"github.com/spyrun/spyrun/event"
	"github.com/spyrun/spyrun/template"
)

// Router matches events against a single spy's ordered patterns.
type Router struct {
	spyName string
	output  string
	vars    template.Context
	engine  *template.Engine
	patterns []*config.PatternConfig
}

func New(spyName, output string, vars template.Context, patterns []*config.PatternConfig) *Router {
	return &Router{
		spyName:  spyName,
		output:   output,
		vars:     vars,
		engine:   template.New(),
		patterns: patterns,
	}
}

// Route evaluates every pattern against ev in declaration order, returning
// one CommandSpec per match. A pattern whose template expansion fails logs
// nothing itself (the caller decides); it is simply excluded from the
// result, along with the error for that pattern.
func (r *Router) Route(ev *event.Event) ([]*event.CommandSpec, []error) {
	var specs []*event.CommandSpec
	var errs []error

	ctx := r.context(ev)

	for _, p := range r.patterns {
		if !p.Regexp.Compiled.MatchString(ev.Path) {
			continue
		}

		site := r.spyName + ".patterns"
		cmd, err := r.engine.Expand(config.StringVal(p.Cmd), ctx, site+".cmd")
		if err != nil {
			errs = append(errs, err)
			continue
		}

		args := make([]string, 0, len(p.Arg))
		failed := false
		for _, raw := range p.Arg {
			a, err := r.engine.Expand(raw, ctx, site+".arg")
			if err != nil {
				errs = append(errs, err)
				failed = true
				break
			}
			args = append(args, a)
		}
		if failed {
			continue
		}

		specs = append(specs, &event.CommandSpec{
			SpyName:    r.spyName,
			Cmd:        cmd,
			Args:       args,
			Cwd:        ctx["cmd_dir"],
			OutputFile: filepath.Join(r.output, r.spyName, ev.Stem()),
			Event:      ev,
		})
	}

	return specs, errs
}

// context merges the spy's resolved vars with the event's own context keys,
// the latter taking precedence: event fields are available alongside vars
// at dispatch time.
func (r *Router) context(ev *event.Event) template.Context {
	ctx := template.Context{}
	for k, v := range r.vars {
		ctx[k] = v
	}
	for k, v := range ev.Context() {
		ctx[k] = v
	}
	return ctx
}
