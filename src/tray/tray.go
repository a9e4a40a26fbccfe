// Package tray shows the resident's system tray icon and menu.
package tray

import (
	"log"
	"strings"
	"sync"

	"github.com/getlantern/systray"
)

const appTitle = "Screen Schedule"

type Handlers struct {
	OnCapture func()
	OnQuit    func()
}

var (
	mu         sync.Mutex
	ready      bool
	tooltip    = appTitle
	aboutExtra []string
)

// Run shows the tray icon and blocks until Quit. It must be called from
// the main goroutine on platforms that require it.
func Run(h Handlers, onReady func()) {
	systray.Run(func() {
		systray.SetIcon(Icon())
		systray.SetTitle(appTitle)

		mu.Lock()
		ready = true
		systray.SetTooltip(tooltip)
		mu.Unlock()

		mCapture := systray.AddMenuItem("Capture", "Capture the screen and extract schedules")
		mAbout := systray.AddMenuItem("About", "About "+appTitle)
		systray.AddSeparator()
		mQuit := systray.AddMenuItem("Quit", "Quit "+appTitle)

		go func() {
			for {
				select {
				case <-mCapture.ClickedCh:
					if h.OnCapture != nil {
						h.OnCapture()
					}
				case <-mAbout.ClickedCh:
					showAbout(appTitle, AboutText())
				case <-mQuit.ClickedCh:
					log.Printf("tray: quit requested")
					if h.OnQuit != nil {
						h.OnQuit()
					}
					systray.Quit()
					return
				}
			}
		}()
		if onReady != nil {
			onReady()
		}
	}, func() {
		mu.Lock()
		ready = false
		mu.Unlock()
	})
}

func Quit() { systray.Quit() }

// UpdateTooltip sets the tooltip now, or when the tray becomes ready.
func UpdateTooltip(text string) {
	mu.Lock()
	defer mu.Unlock()
	tooltip = text
	if ready {
		systray.SetTooltip(text)
	}
}

// SetAboutExtra appends a line to the About dialog.
func SetAboutExtra(line string) {
	mu.Lock()
	aboutExtra = append(aboutExtra, line)
	mu.Unlock()
}

func AboutText() string {
	mu.Lock()
	defer mu.Unlock()
	lines := append([]string{appTitle, "Capture the screen to turn text into calendar entries."}, aboutExtra...)
	return strings.Join(lines, "\n")
}
