// Package template implements spyrun's placeholder expansion language:
// `{{ name }}` substitutes a context entry, and `{{ helper(arg=value) }}`
// invokes one of a small, closed set of built-in helpers (cwd, env). It is
// deliberately not text/template — the helper-call syntax (`env(arg="NAME")`)
// has no actions or pipelines, so a hand-rolled matcher serves the grammar
// better than forcing it through Go's template actions.
package template

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Context is the mapping from placeholder name to its expansion value.
// Values may themselves be the product of an earlier expansion (vars are
// expanded in ascending key order so later keys may reference earlier
// ones).
type Context map[string]string

// Helper resolves a helper call given its parsed arguments.
type Helper func(args map[string]string) (string, error)

// Engine expands placeholder strings against a Context plus a fixed set of
// helpers. It is stateless and safe to share across spies/goroutines.
type Engine struct {
	helpers map[string]Helper
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*(\(([^)]*)\))?\s*\}\}`)
var argRe = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*=\s*"([^"]*)"`)

// New builds an Engine with the built-in helper set (cwd, env) registered.
// cwd is captured once, at construction time: the process working
// directory at startup.
func New() *Engine {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	e := &Engine{helpers: make(map[string]Helper, 2)}
	e.helpers["cwd"] = func(map[string]string) (string, error) {
		return wd, nil
	}
	e.helpers["env"] = func(args map[string]string) (string, error) {
		name, ok := args["arg"]
		if !ok {
			return "", errors.New(`env helper requires arg="NAME"`)
		}
		return os.Getenv(name), nil
	}
	return e
}

// Expand replaces every `{{ ... }}` placeholder in tmpl using ctx and the
// engine's helpers. An unresolved name or helper is a hard error naming the
// offending placeholder and, when site is non-empty, the template site it
// came from.
func (e *Engine) Expand(tmpl string, ctx Context, site string) (string, error) {
	var outerErr error

	result := placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		if outerErr != nil {
			return match
		}

		sub := placeholderRe.FindStringSubmatch(match)
		name := sub[1]
		callArgs := sub[3]
		hasCall := sub[2] != ""

		if hasCall {
			helper, ok := e.helpers[name]
			if !ok {
				outerErr = siteErr(site, fmt.Sprintf("unknown helper %q", name))
				return match
			}
			args := parseArgs(callArgs)
			v, err := helper(args)
			if err != nil {
				outerErr = siteErr(site, fmt.Sprintf("helper %q: %s", name, err))
				return match
			}
			return v
		}

		v, ok := ctx[name]
		if !ok {
			outerErr = siteErr(site, fmt.Sprintf("undefined placeholder %q", name))
			return match
		}
		return v
	})

	if outerErr != nil {
		return "", outerErr
	}
	return result, nil
}

func parseArgs(s string) map[string]string {
	args := make(map[string]string)
	for _, m := range argRe.FindAllStringSubmatch(s, -1) {
		args[m[1]] = m[2]
	}
	return args
}

func siteErr(site, msg string) error {
	if site == "" {
		return errors.New(msg)
	}
	return errors.Errorf("%s: %s", site, msg)
}

// HasPlaceholder reports whether s still contains an unexpanded `{{ }}`
// placeholder. Used by tests asserting idempotence on resolved strings.
func HasPlaceholder(s string) bool {
	return strings.Contains(s, "{{")
}
