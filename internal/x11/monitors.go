package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"

	"github.com/1broseidon/evepreview/internal/geometry"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

func (m Monitor) contains(x, y int) bool {
	return x >= m.X && x < m.X+m.Width && y >= m.Y && y < m.Y+m.Height
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	// Initialize RandR if not already done
	if err := randr.Init(c.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		outputName := fmt.Sprintf("Monitor%d", i)
		outputInfo, err := randr.GetOutputInfo(c.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			outputName = string(outputInfo.Name)
		}

		monitors = append(monitors, Monitor{
			ID:     i,
			Name:   outputName,
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		})
	}

	if len(monitors) == 0 {
		monitors = append(monitors, Monitor{
			Name:   "screen",
			Width:  int(c.Screen.WidthInPixels),
			Height: int(c.Screen.HeightInPixels),
		})
	}
	return monitors, nil
}

// ClampToMonitors keeps r fully visible on the monitor holding its top-left
// corner, or on the first monitor when that corner is off every screen.
// Rects larger than the monitor are pinned to its top-left.
func ClampToMonitors(r geometry.Rect, monitors []Monitor) geometry.Position {
	pos := r.Position()
	if len(monitors) == 0 {
		return pos
	}

	mon := monitors[0]
	for _, m := range monitors {
		if m.contains(int(r.X), int(r.Y)) {
			mon = m
			break
		}
	}

	x := clampAxis(int(r.X), int(r.Width), mon.X, mon.Width)
	y := clampAxis(int(r.Y), int(r.Height), mon.Y, mon.Height)
	return geometry.Position{X: int16(x), Y: int16(y)}
}

func clampAxis(pos, size, start, length int) int {
	if end := start + length; pos+size > end {
		pos = end - size
	}
	if pos < start {
		pos = start
	}
	return pos
}
