package ui

import (
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/archtrace/pkg/loader"
	"github.com/vanderheijden86/archtrace/pkg/model"
	"github.com/vanderheijden86/archtrace/pkg/trace"
	"github.com/vanderheijden86/archtrace/pkg/watcher"
)

// FileChangedMsg is sent when the architecture file changes on disk.
type FileChangedMsg struct{}

// DataLoadedMsg carries a reloaded architecture, or the reason it could
// not be loaded.
type DataLoadedMsg struct {
	Arch model.Architecture
	Err  error
}

// frameMsg fires one frame after a trace was scheduled. gen is the
// scheduler generation at scheduling time; a newer trigger makes it stale.
type frameMsg struct {
	gen uint64
}

type clipboardMsg struct {
	what string
	err  error
}

// WatchFileCmd waits for the next change reported by w.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// LoadDataCmd reloads the architecture file at path.
func LoadDataCmd(path string) tea.Cmd {
	return func() tea.Msg {
		arch, err := loader.LoadFile(path)
		return DataLoadedMsg{Arch: arch, Err: err}
	}
}

func frameCmd(gen uint64) tea.Cmd {
	return tea.Tick(trace.DefaultFrameInterval, func(time.Time) tea.Msg {
		return frameMsg{gen: gen}
	})
}

// clipboardWrite is swapped in tests; CI machines have no clipboard.
var clipboardWrite = clipboard.WriteAll

func copyCmd(what, text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{what: what, err: clipboardWrite(text)}
	}
}
