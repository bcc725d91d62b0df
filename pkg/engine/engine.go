// Package engine evaluates livebuild scripts. A script is zygomys Lisp
// whose builtins place, extrude, select, mirror and destroy modules in the
// scene held by an Engine.
//
// Scripts are not transactional: forms that ran before a failing form keep
// their effect on the scene.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/elfin/pkg/assembly"
	"github.com/chazu/elfin/pkg/extrude"
	zygo "github.com/glycerine/zygomys/zygo"
	"go.uber.org/zap"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a failing builtin.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Result is the output of a successful evaluation.
type Result struct {
	// Value is the printed value of the last form.
	Value string
	// Created names the modules the script added, in creation order.
	Created []string
}

// Engine runs scripts against one scene. Evaluations are serialized: a
// script never observes the scene while another one is mutating it.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	run     sync.Mutex
	ext     *extrude.Extruder
	log     *zap.Logger
	timeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithTimeout overrides EvalTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine returns an engine whose builtins act through ext.
func NewEngine(ext *extrude.Extruder, opts ...Option) *Engine {
	e := &Engine{
		ext:     ext,
		log:     zap.NewNop(),
		timeout: EvalTimeout,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Scene returns the scene scripts operate on.
func (e *Engine) Scene() *assembly.Scene { return e.ext.Scene() }

// Evaluate runs source in a fresh sandbox.
//
// Return semantics:
//   - On success: returns result + nil errors + nil error
//   - On parse/eval failure: returns nil result + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Result, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		e.run.Lock()
		defer e.run.Unlock()
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("engine: panic during evaluation: %v", r)}
			}
		}()

		res, evalErrs, err := e.evaluate(source)
		ch <- evalResult{result: res, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, e.timeout, &e.mu, &e.generation)
}

func (e *Engine) evaluate(source string) (*Result, []EvalError, error) {
	if strings.TrimSpace(source) == "" {
		return &Result{}, nil, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()

	ses := &session{ext: e.ext, scene: e.ext.Scene(), log: e.log}
	registerBuiltins(env, ses)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}

	v, err := env.Run()
	if err != nil {
		evalErrs := parseZygomysError(err)
		e.log.Debug("script failed", zap.String("error", evalErrs[0].Error()), zap.Int("created", len(ses.created)))
		return nil, evalErrs, nil
	}

	res := &Result{Created: ses.createdNames()}
	if v != nil {
		res.Value = v.SexpString(nil)
	}
	e.log.Info("script evaluated", zap.Int("created", len(res.Created)))
	return res, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError
// values, extracting a line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
