package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRodEngine_FillsDefaults(t *testing.T) {
	e := NewRodEngine(Config{Headless: true})
	assert.Equal(t, 1366, e.cfg.ViewportWidth)
	assert.Equal(t, 768, e.cfg.ViewportHeight)
	assert.Equal(t, 10*time.Second, e.cfg.ActionTimeout)
	assert.Empty(t, e.ControlURL(), "chrome starts lazily")
}

func TestShutdownBeforeLaunch(t *testing.T) {
	e := NewRodEngine(DefaultConfig())
	assert.NoError(t, e.Shutdown())
	assert.NoError(t, e.Shutdown())
}

func TestRodElementSelector(t *testing.T) {
	var el Element = &rodElement{selector: ".banner"}
	assert.Equal(t, ".banner", el.Selector())
}
