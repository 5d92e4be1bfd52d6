// Package script provides the Lisp scripting console for roomweld. It
// wraps zygomys in a sandboxed environment whose builtins drive the
// entity store, the wall graph and the alignment optimizer, so an editing
// session can be replayed as a batch script.
package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/roomweld/pkg/config"
	"github.com/chazu/roomweld/pkg/scene"
	"github.com/chazu/roomweld/pkg/walls"
)

// Session is the live state a script operates on.
type Session struct {
	Store *scene.Store
	Graph *walls.Graph
	Cfg   config.Editor
}

// staged returns a deep copy of the session state for one evaluation to
// mutate. The allocator is shared: IDs issued by a run that is later
// discarded are simply never reused.
func (s *Session) staged() *Session {
	store := scene.NewStore(s.Store.Alloc())
	for _, r := range s.Store.Rooms() {
		store.PutRoom(r.Clone())
	}
	for _, p := range s.Store.FreePlanes() {
		store.PutPlane(p.Clone())
	}
	return &Session{
		Store: store,
		Graph: walls.FromEdges(s.Graph.Edges()),
		Cfg:   s.Cfg,
	}
}

// adopt replaces the live state with a staged copy's state.
func (s *Session) adopt(stage *Session) {
	rooms := make(map[scene.ID]*scene.Room)
	for _, r := range stage.Store.Rooms() {
		rooms[r.ID] = r
	}
	free := make(map[scene.ID]*scene.Plane)
	for _, p := range stage.Store.FreePlanes() {
		free[p.ID] = p
	}
	s.Store.ReplaceAll(rooms, free)
	s.Graph.Reset(stage.Graph.Edges())
}

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in script code.
type EvalError struct {
	Line    int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates scripts against a session. Each call to Run creates a
// fresh sandboxed environment; only the session state persists between
// runs.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	session    *Session
	timeout    time.Duration
}

// NewEngine creates an engine over the session. The timeout bounds a
// single Run; zero uses the session config.
func NewEngine(s *Session, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = time.Duration(s.Cfg.ScriptTimeoutSeconds) * time.Second
	}
	return &Engine{session: s, timeout: timeout}
}

// runResult passes one evaluation's output through the timeout channel.
type runResult struct {
	output []string
	errors []EvalError
	err    error
}

// Run evaluates script source against the session. The builtins mutate a
// staged copy of the session; the live session adopts the staged state only
// when evaluation finishes in time, without errors, and has not been
// superseded by a newer Run. A timed-out or failed run therefore leaves
// the session exactly as it was, even though its goroutine may still be
// executing against the abandoned stage.
//
// Return semantics:
//   - On success: transcript lines + nil errors + nil error
//   - On parse/eval failure: nil + eval errors + nil error
//   - On fatal failure (timeout, panic): nil + nil + error
func (e *Engine) Run(source string) ([]string, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	stage := e.session.staged()
	e.mu.Unlock()

	ch := make(chan runResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- runResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		out, evalErrs := e.evaluate(source, stage)
		ch <- runResult{output: out, errors: evalErrs}
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.generation {
			return nil, nil, fmt.Errorf("evaluation superseded by newer request")
		}
		if res.err == nil && len(res.errors) == 0 {
			e.session.adopt(stage)
		}
		return res.output, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", e.timeout)
	}
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox,
// against the run's staged session.
func (e *Engine) evaluate(source string, stage *Session) ([]string, []EvalError) {
	if strings.TrimSpace(source) == "" {
		return nil, nil
	}

	// Sandbox mode keeps script code away from the filesystem and
	// syscalls; only the registered builtins touch the outside world.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	tr := &transcript{}
	registerBuiltins(env, stage, tr)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygoError(err)
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygoError(err)
	}
	return tr.lines, nil
}

// transcript collects the human-readable output of the builtins.
type transcript struct {
	lines []string
}

func (t *transcript) printf(format string, args ...any) {
	t.lines = append(t.lines, fmt.Sprintf(format, args...))
}

var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// parseZygoError converts a zygomys error into EvalError values, pulling
// out the line number when the message carries one.
func parseZygoError(err error) []EvalError {
	msg := err.Error()
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
