// Package widget renders reusable dashboard controls.
package widget

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"sync"
)

// IconSource resolves icon markup by name.
type IconSource interface {
	SVG(name string) (string, bool)
}

var addonCompactTemplate = template.Must(template.New("addon-compact").Parse(
	`<div class="addon-compact">` +
		`{{if .DownloadHref}}<a class="addon-download" href="{{.DownloadHref}}" download="{{.DownloadName}}" title="Download {{.DownloadName}}">{{.DownloadIcon}}</a>{{end}}` +
		`<button type="submit" class="addon-reload{{if .Loading}} loading{{end}}" formaction="/ui/reload" formmethod="post"{{if .Loading}} disabled{{end}} title="Reload">{{.ReloadIcon}}</button>` +
		`</div>`))

// AddonCompact is the compact addon bar shown next to log views: a download link and a reload
// button. Reload requests are dropped while Loading is set.
type AddonCompact struct {
	DownloadName string
	DownloadHref string

	mu       sync.Mutex
	loading  bool
	onReload func()
}

// NewAddonCompact creates the control.
func NewAddonCompact(downloadName, downloadHref string) *AddonCompact {
	return &AddonCompact{
		DownloadName: downloadName,
		DownloadHref: downloadHref,
	}
}

// OnReload registers the reload callback.
func (a *AddonCompact) OnReload(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onReload = fn
}

// SetLoading sets the loading flag.
func (a *AddonCompact) SetLoading(loading bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loading = loading
}

// Loading reports whether a reload is in progress.
func (a *AddonCompact) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

// ErrReloadInProgress is returned by Reload while a reload is running.
var ErrReloadInProgress = errors.New("reload already in progress")

// ErrNoReloadHandler is returned by Reload when no callback is registered.
var ErrNoReloadHandler = errors.New("reload is not available")

// Reload runs the reload callback with Loading set for its duration. Concurrent calls are
// dropped with ErrReloadInProgress.
func (a *AddonCompact) Reload() error {
	a.mu.Lock()
	fn := a.onReload
	if fn == nil {
		a.mu.Unlock()
		return ErrNoReloadHandler
	}
	if a.loading {
		a.mu.Unlock()
		return ErrReloadInProgress
	}
	a.loading = true
	a.mu.Unlock()

	defer a.SetLoading(false)
	fn()
	return nil
}

// Render writes the control's HTML. Both the download and reload icons must be registered.
func (a *AddonCompact) Render(w io.Writer, icons IconSource) error {
	download, ok := icons.SVG("download")
	if !ok {
		return fmt.Errorf("addon-compact: icon %q is not registered", "download")
	}
	reload, ok := icons.SVG("reload")
	if !ok {
		return fmt.Errorf("addon-compact: icon %q is not registered", "reload")
	}

	return addonCompactTemplate.Execute(w, struct {
		DownloadName string
		DownloadHref string
		Loading      bool
		DownloadIcon template.HTML
		ReloadIcon   template.HTML
	}{
		DownloadName: a.DownloadName,
		DownloadHref: a.DownloadHref,
		Loading:      a.Loading(),
		// icon markup comes from the startup manifest, not from requests
		DownloadIcon: template.HTML(download),
		ReloadIcon:   template.HTML(reload),
	})
}
