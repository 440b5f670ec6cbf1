package qa

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"devhelper/internal/browser"
	"devhelper/internal/logging"
)

// DefaultNavigationTimeout bounds the initial page load.
const DefaultNavigationTimeout = 30 * time.Second

// Result is the outcome of one scenario.
type Result struct {
	Description string `json:"description"`
	Action      string `json:"action"`
	Target      string `json:"target"`
	Expected    string `json:"expected"`
	Passed      bool   `json:"passed"`
	Actual      string `json:"actual,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ScenarioRecorder receives one callback per executed scenario.
type ScenarioRecorder interface {
	RecordScenario(action string, passed bool)
}

// Executor runs scenarios against a live page.
type Executor struct {
	engine            browser.Engine
	navigationTimeout time.Duration
	recorder          ScenarioRecorder
}

// NewExecutor creates an executor. A zero timeout uses DefaultNavigationTimeout;
// recorder may be nil.
func NewExecutor(engine browser.Engine, navigationTimeout time.Duration, recorder ScenarioRecorder) *Executor {
	if navigationTimeout <= 0 {
		navigationTimeout = DefaultNavigationTimeout
	}
	return &Executor{engine: engine, navigationTimeout: navigationTimeout, recorder: recorder}
}

// Execute opens one session, navigates once, then runs every scenario in
// order. Scenario failures are recorded in their results. A launch or
// navigation failure aborts with no results. The session is closed on every
// path.
func (e *Executor) Execute(ctx context.Context, url string, scenarios Scenarios) (results []Result, err error) {
	session, err := e.engine.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logging.BrowserWarn("Closing browser session: %v", cerr)
		}
	}()

	page, err := session.Open(ctx, url, e.navigationTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNavigation, err)
	}

	results = make([]Result, 0, len(scenarios))
	for i, s := range scenarios {
		r := e.executeOne(ctx, page, s)
		logging.QADebug("Scenario %d/%d %s %q passed=%v", i+1, len(scenarios), r.Action, r.Target, r.Passed)
		if e.recorder != nil {
			e.recorder.RecordScenario(r.Action, r.Passed)
		}
		results = append(results, r)
	}
	return results, nil
}

func (e *Executor) executeOne(ctx context.Context, page browser.Page, s Scenario) (r Result) {
	if s.Action == nil {
		return Result{Description: s.Description, Error: "scenario has no action"}
	}
	r = Result{
		Description: s.Description,
		Action:      string(s.Action.Kind()),
		Target:      s.Action.Selector(),
		Expected:    s.Action.Want(),
	}
	defer func() {
		if p := recover(); p != nil {
			r.Passed = false
			r.Actual = ""
			r.Error = fmt.Sprint(p)
		}
	}()

	passed, actual, err := runAction(ctx, page, s.Action)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Passed = passed
	r.Actual = actual
	return r
}

func runAction(ctx context.Context, page browser.Page, action Action) (passed bool, actual string, err error) {
	switch a := action.(type) {
	case CheckStyle:
		el, found, err := page.Locate(ctx, a.Target)
		if err != nil {
			return false, "", err
		}
		if !found {
			return false, "", nil
		}
		style, err := page.ComputedStyle(ctx, el)
		if err != nil {
			return false, "", err
		}
		b, err := json.Marshal(style)
		if err != nil {
			return false, "", err
		}
		actual := string(b)
		return strings.Contains(strings.ToLower(actual), strings.ToLower(a.Expected)), actual, nil

	case CheckText:
		text, err := page.Text(ctx, a.Target)
		if err != nil {
			return false, "", err
		}
		return strings.Contains(text, a.Expected), text, nil

	case CheckVisibility:
		_, found, err := page.Locate(ctx, a.Target)
		if err != nil {
			return false, "", err
		}
		actual := "hidden"
		if found {
			actual = "visible"
		}
		return strings.Contains(strings.ToLower(a.Expected), actual), actual, nil

	case Click:
		if err := page.Click(ctx, a.Target); err != nil {
			return false, "", err
		}
		return true, "clicked", nil

	default:
		panic(fmt.Sprintf("qa: unhandled action %T", action))
	}
}
