package widget

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type icons map[string]string

func (i icons) SVG(name string) (string, bool) {
	s, ok := i[name]
	return s, ok
}

var testIcons = icons{
	"download": `<svg id="download"></svg>`,
	"reload":   `<svg id="reload"></svg>`,
}

func TestAddonCompact_ReloadSuppressedWhileLoading(t *testing.T) {
	var fired int32
	addon := NewAddonCompact("jobmanager.log", "/api/cluster/jobmanager/log")
	addon.OnReload(func() { atomic.AddInt32(&fired, 1) })

	addon.SetLoading(true)
	assert.ErrorIs(t, addon.Reload(), ErrReloadInProgress)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))

	addon.SetLoading(false)
	assert.NoError(t, addon.Reload())
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
	assert.False(t, addon.Loading())
}

func TestAddonCompact_ReloadLoadingWhileRunning(t *testing.T) {
	addon := NewAddonCompact("x.log", "/x")
	var sawLoading bool
	addon.OnReload(func() { sawLoading = addon.Loading() })

	require.NoError(t, addon.Reload())
	assert.True(t, sawLoading)
	assert.False(t, addon.Loading())
}

func TestAddonCompact_ConcurrentReloadFiresOnce(t *testing.T) {
	var fired int32
	started := make(chan struct{})
	release := make(chan struct{})

	addon := NewAddonCompact("x.log", "/x")
	addon.OnReload(func() {
		atomic.AddInt32(&fired, 1)
		close(started)
		<-release
	})

	done := make(chan error, 1)
	go func() { done <- addon.Reload() }()
	<-started

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.ErrorIs(t, addon.Reload(), ErrReloadInProgress)
		}()
	}
	wg.Wait()

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestAddonCompact_ReloadWithoutCallback(t *testing.T) {
	addon := NewAddonCompact("x.log", "/x")
	assert.ErrorIs(t, addon.Reload(), ErrNoReloadHandler)
	assert.False(t, addon.Loading())
}

func TestAddonCompact_Render(t *testing.T) {
	addon := NewAddonCompact("jobmanager.log", "/api/cluster/jobmanager/log")

	var b strings.Builder
	require.NoError(t, addon.Render(&b, testIcons))
	html := b.String()

	assert.Contains(t, html, `href="/api/cluster/jobmanager/log"`)
	assert.Contains(t, html, `download="jobmanager.log"`)
	assert.Contains(t, html, `<svg id="download"></svg>`)
	assert.Contains(t, html, `<svg id="reload"></svg>`)
	assert.NotContains(t, html, "disabled")

	addon.SetLoading(true)
	b.Reset()
	require.NoError(t, addon.Render(&b, testIcons))
	assert.Contains(t, b.String(), "disabled")
	assert.Contains(t, b.String(), "addon-reload loading")
}

func TestAddonCompact_RenderEscapesName(t *testing.T) {
	addon := NewAddonCompact(`"><script>alert(1)</script>`, "/log")

	var b strings.Builder
	require.NoError(t, addon.Render(&b, testIcons))
	assert.NotContains(t, b.String(), "<script>")
}

func TestAddonCompact_RenderMissingIcon(t *testing.T) {
	addon := NewAddonCompact("x.log", "/x")

	var b strings.Builder
	err := addon.Render(&b, icons{"download": "<svg/>"})
	assert.ErrorContains(t, err, `"reload"`)
}
