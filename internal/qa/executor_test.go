package qa

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devhelper/internal/browser"
)

func fixturePage() map[string]*fakeElement {
	return map[string]*fakeElement{
		"#title": {text: "Welcome back"},
		".banner": {style: browser.Style{
			BackgroundColor: "rgb(0, 128, 0)",
			Color:           "rgb(255, 255, 255)",
			FontSize:        "18px",
		}},
		"#menu":   {},
		"#broken": {clickErr: errors.New("element is covered by #overlay")},
	}
}

func TestExecutor_ActionSemantics(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   Result
	}{
		{
			name:   "check_text contains",
			action: CheckText{Target: "#title", Expected: "Welcome"},
			want:   Result{Action: "check_text", Target: "#title", Expected: "Welcome", Passed: true, Actual: "Welcome back"},
		},
		{
			name:   "check_text is case-sensitive",
			action: CheckText{Target: "#title", Expected: "welcome"},
			want:   Result{Action: "check_text", Target: "#title", Expected: "welcome", Passed: false, Actual: "Welcome back"},
		},
		{
			name:   "check_text missing element is an error",
			action: CheckText{Target: "#nope", Expected: "x"},
			want:   Result{Action: "check_text", Target: "#nope", Expected: "x", Error: "element not found: #nope"},
		},
		{
			name:   "check_style case-insensitive substring",
			action: CheckStyle{Target: ".banner", Expected: "RGB(0, 128, 0)"},
			want: Result{Action: "check_style", Target: ".banner", Expected: "RGB(0, 128, 0)", Passed: true,
				Actual: `{"backgroundColor":"rgb(0, 128, 0)","color":"rgb(255, 255, 255)","fontSize":"18px"}`},
		},
		{
			name:   "check_style matches property names too",
			action: CheckStyle{Target: ".banner", Expected: `"fontsize":"18px"`},
			want: Result{Action: "check_style", Target: ".banner", Expected: `"fontsize":"18px"`, Passed: true,
				Actual: `{"backgroundColor":"rgb(0, 128, 0)","color":"rgb(255, 255, 255)","fontSize":"18px"}`},
		},
		{
			name:   "check_style missing element fails without error",
			action: CheckStyle{Target: ".gone", Expected: "red"},
			want:   Result{Action: "check_style", Target: ".gone", Expected: "red", Passed: false},
		},
		{
			name:   "check_visibility hidden when absent",
			action: CheckVisibility{Target: "#banner", Expected: "hidden"},
			want:   Result{Action: "check_visibility", Target: "#banner", Expected: "hidden", Passed: true, Actual: "hidden"},
		},
		{
			name:   "check_visibility visible when present",
			action: CheckVisibility{Target: "#menu", Expected: "Should be VISIBLE"},
			want:   Result{Action: "check_visibility", Target: "#menu", Expected: "Should be VISIBLE", Passed: true, Actual: "visible"},
		},
		{
			name:   "check_visibility mismatch",
			action: CheckVisibility{Target: "#menu", Expected: "hidden"},
			want:   Result{Action: "check_visibility", Target: "#menu", Expected: "hidden", Passed: false, Actual: "visible"},
		},
		{
			name:   "check_visibility loose heuristic",
			action: CheckVisibility{Target: "#menu", Expected: "visible or hidden"},
			want:   Result{Action: "check_visibility", Target: "#menu", Expected: "visible or hidden", Passed: true, Actual: "visible"},
		},
		{
			name:   "check_visibility invalid selector",
			action: CheckVisibility{Target: "div!!", Expected: "visible"},
			want:   Result{Action: "check_visibility", Target: "div!!", Expected: "visible", Error: `invalid selector "div!!"`},
		},
		{
			name:   "click",
			action: Click{Target: "#menu", Note: "menu opens"},
			want:   Result{Action: "click", Target: "#menu", Expected: "menu opens", Passed: true, Actual: "clicked"},
		},
		{
			name:   "click failure",
			action: Click{Target: "#broken"},
			want:   Result{Action: "click", Target: "#broken", Error: "element is covered by #overlay"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newFakeEngine(fixturePage())
			results, err := NewExecutor(engine, 0, nil).Execute(context.Background(), "http://portal", Scenarios{{Action: tt.action}})
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, tt.want, results[0])
		})
	}
}

func TestExecutor_OrderAndSessionDiscipline(t *testing.T) {
	page := fixturePage()
	page["#menu"].onClick = func(p *fakePage) {
		p.elements["#dropdown"] = &fakeElement{text: "Settings"}
	}
	engine := newFakeEngine(page)
	rec := &countingRecorder{}

	scenarios := Scenarios{
		{Description: "dropdown closed", Action: CheckVisibility{Target: "#dropdown", Expected: "hidden"}},
		{Description: "open menu", Action: Click{Target: "#menu"}},
		{Description: "dropdown open", Action: CheckText{Target: "#dropdown", Expected: "Settings"}},
		{Description: "bad selector", Action: CheckText{Target: "!!", Expected: "x"}},
		{Description: "title", Action: CheckText{Target: "#title", Expected: "Welcome"}},
	}

	results, err := NewExecutor(engine, 0, rec).Execute(context.Background(), "http://portal/home", scenarios)
	require.NoError(t, err)

	require.Len(t, results, len(scenarios))
	for i, r := range results {
		assert.Equal(t, scenarios[i].Description, r.Description)
	}
	assert.True(t, results[0].Passed)
	assert.True(t, results[2].Passed, "later scenarios see state changed by earlier clicks")
	assert.False(t, results[3].Passed)
	assert.NotEmpty(t, results[3].Error)
	assert.True(t, results[4].Passed, "a failing scenario does not stop the run")

	assert.Equal(t, 1, engine.launches)
	assert.Equal(t, []string{"http://portal/home"}, engine.session.opened)
	assert.Equal(t, 1, engine.session.closes)
	assert.Equal(t, []string{
		"check_visibility:true", "click:true", "check_text:true", "check_text:false", "check_text:true",
	}, rec.scenarios)
}

func TestExecutor_NavigationFailure(t *testing.T) {
	engine := newFakeEngine(fixturePage())
	engine.session.openErr = errors.New("net::ERR_CONNECTION_REFUSED")

	results, err := NewExecutor(engine, 0, nil).Execute(context.Background(), "http://unreachable", Scenarios{
		{Action: Click{Target: "#menu"}},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNavigation)
	assert.Contains(t, err.Error(), "ERR_CONNECTION_REFUSED")
	assert.Nil(t, results)
	assert.Equal(t, 1, engine.session.closes, "session closed exactly once")
	assert.Empty(t, engine.session.page.clicks)
}

func TestExecutor_LaunchFailure(t *testing.T) {
	engine := &fakeEngine{launchErr: errors.New("chrome not found")}
	_, err := NewExecutor(engine, 0, nil).Execute(context.Background(), "http://portal", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNavigation)
	assert.Contains(t, err.Error(), "launch browser")
}

func TestExecutor_EmptyPlan(t *testing.T) {
	engine := newFakeEngine(nil)
	results, err := NewExecutor(engine, 0, nil).Execute(context.Background(), "http://portal", Scenarios{})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, 1, engine.session.closes)
}

func TestExecutor_NilActionRecorded(t *testing.T) {
	engine := newFakeEngine(nil)
	results, err := NewExecutor(engine, 0, nil).Execute(context.Background(), "http://portal", Scenarios{{Description: "empty"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, "scenario has no action", results[0].Error)
}
