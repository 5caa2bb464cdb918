// Package main - viewport.go
//
// This file manages viewport geometry: dimensions recovered from tracer
// recordings, the three horizontal screen zones, and the named region
// catalog calibrated as fractions of the 412x815 reference layout.
package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
)

const (
	defaultViewportWidth  = 412
	defaultViewportHeight = 815
)

// Viewport is the web app canvas size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// DefaultViewport returns the reference layout dimensions.
func DefaultViewport() Viewport {
	return Viewport{Width: defaultViewportWidth, Height: defaultViewportHeight}
}

type traceEvent struct {
	WebAppState *struct {
		ViewportHeight      float64 `json:"viewportHeight"`
		ViewportStableWidth float64 `json:"viewportStableWidth"`
	} `json:"webAppState"`
}

// LoadViewport recovers the viewport from the newest trace recording under
// recordingsDir (tracer/trace_*/interactions.json, last event carrying a
// webAppState wins). Any failure falls back to the 412x815 default; the
// caller decides whether to log it.
func LoadViewport(recordingsDir string) Viewport {
	vp := DefaultViewport()
	dirs, err := filepath.Glob(filepath.Join(recordingsDir, "tracer", "trace_*"))
	if err != nil || len(dirs) == 0 {
		return vp
	}
	sort.Slice(dirs, func(i, j int) bool {
		fi, erri := os.Stat(dirs[i])
		fj, errj := os.Stat(dirs[j])
		if erri != nil || errj != nil {
			return dirs[i] < dirs[j]
		}
		return fi.ModTime().Before(fj.ModTime())
	})
	raw, err := os.ReadFile(filepath.Join(dirs[len(dirs)-1], "interactions.json"))
	if err != nil {
		return vp
	}
	var events []traceEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return vp
	}
	for i := len(events) - 1; i >= 0; i-- {
		st := events[i].WebAppState
		if st == nil {
			continue
		}
		if st.ViewportStableWidth > 0 {
			vp.Width = int(st.ViewportStableWidth)
		}
		if st.ViewportHeight > 0 {
			vp.Height = int(st.ViewportHeight)
		}
		return vp
	}
	return vp
}

// Zones are the three equal horizontal bands of the screen, used to scope
// OCR queries to the part of the layout a control lives in.
type Zones struct {
	Top    Region
	Middle Region
	Bottom Region
}

// SplitZones divides the viewport into three full-width thirds.
func SplitZones(vp Viewport) Zones {
	w := float64(vp.Width)
	h := float64(vp.Height) / 3
	return Zones{
		Top:    Rect(0, 0, w, h),
		Middle: Rect(0, h, w, 2*h),
		Bottom: Rect(0, 2*h, w, 3*h),
	}
}

// Layout resolves the named region catalog against a concrete viewport.
// The fractional calibrations were measured on the 412x815 reference layout
// and scale linearly with viewport size.
type Layout struct {
	VP Viewport
}

func NewLayout(vp Viewport) *Layout {
	return &Layout{VP: vp}
}

// frac builds an axis-aligned region from x/y fractions of the viewport.
func (l *Layout) frac(x1, y1, x2, y2 float64) Region {
	w := float64(l.VP.Width)
	h := float64(l.VP.Height)
	return Rect(w*x1, h*y1, w*x2, h*y2)
}

// quad builds a free quadrilateral from per-corner fractions.
func (l *Layout) quad(tlx, tly, trx, try_, blx, bly, brx, bry float64) Region {
	w := float64(l.VP.Width)
	h := float64(l.VP.Height)
	return Region{
		TopLeft:     Point{w * tlx, h * tly},
		TopRight:    Point{w * trx, h * try_},
		BottomLeft:  Point{w * blx, h * bly},
		BottomRight: Point{w * brx, h * bry},
	}
}

// Pixel converts a point measured on the reference layout to the live
// viewport.
func (l *Layout) Pixel(refX, refY float64) Point {
	return Point{
		X: refX / defaultViewportWidth * float64(l.VP.Width),
		Y: refY / defaultViewportHeight * float64(l.VP.Height),
	}
}

// CancelArea is the neutral spot in the top-right corner clicked to dismiss
// overlays without hitting game controls.
func (l *Layout) CancelArea() Region {
	return l.quad(
		0.8665, 0.1411,
		0.9417, 0.1460,
		0.8762, 0.1669,
		0.9345, 0.1681,
	)
}

// PowerArea covers the power delta indicator on the equipment comparison
// screen.
func (l *Layout) PowerArea() Region {
	return l.frac(0.6335, 0.5730, 0.9296, 0.6859)
}

// ChestButton is the chest icon on the main menu.
func (l *Layout) ChestButton() Region {
	return l.frac(0.4847, 0.8629, 0.5022, 0.8975)
}

// ChestCounter covers the remaining-chests number under the chest icon.
func (l *Layout) ChestCounter() Region {
	return l.frac(0.3369, 0.7877, 0.5996, 1.0)
}

// AutosellButton is the autosell toggle on the item screen.
func (l *Layout) AutosellButton() Region {
	return l.quad(
		0.5680, 0.8405,
		0.6311, 0.8405,
		0.5704, 0.8626,
		0.6214, 0.8589,
	)
}

// AutosellCheckbox covers the checkbox plus its label, the crop the
// classifier looks at.
func (l *Layout) AutosellCheckbox() Region {
	return l.quad(
		0.5510, 0.8380,
		0.8714, 0.8233,
		0.5388, 0.8650,
		0.8714, 0.8589,
	)
}

// EquipButton is the equip action on the item screen.
func (l *Layout) EquipButton() Region {
	return l.quad(
		0.5607, 0.8712,
		0.8689, 0.8663,
		0.5413, 0.9239,
		0.8495, 0.9190,
	)
}

// SellButton is the sell action on the item screen.
func (l *Layout) SellButton() Region {
	return l.frac(0.1481, 0.8650, 0.4515, 0.9229)
}

// AutoEquipButton is the auto-equip shortcut on the item screen.
func (l *Layout) AutoEquipButton() Region {
	return l.frac(0.7575, 0.8565, 0.8252, 0.8797)
}

// LevelStatsBar spans the level and stats strip above the item actions.
func (l *Layout) LevelStatsBar() Region {
	return l.frac(0.0364, 0.6331, 0.9805, 0.6935)
}

// BossButton is the boss entry in the middle of the screen.
func (l *Layout) BossButton() Region {
	return l.frac(0.4611, 0.4911, 0.5465, 0.5151)
}

// AutoSkillButton is the auto-skill toggle.
func (l *Layout) AutoSkillButton() Region {
	return l.frac(0.1414, 0.5688, 0.1699, 0.5959)
}

// AutoSkillArea is the wider crop around the toggle used for glow
// detection.
func (l *Layout) AutoSkillArea() Region {
	return l.frac(0.1212, 0.5454, 0.1688, 0.6969)
}

// TaskButton opens the tasks screen from the main menu.
func (l *Layout) TaskButton() Region {
	return l.frac(0.2136, 0.9288, 0.3083, 0.9633)
}

// DailyTaskTab selects the daily tab inside the tasks screen.
func (l *Layout) DailyTaskTab() Region {
	return l.frac(0.3030, 0.8711, 0.5095, 0.8960)
}

// DailyTaskRewards is the reward claim row on the daily tab.
func (l *Layout) DailyTaskRewards() Region {
	return l.frac(0.6845, 0.2601, 0.8471, 0.2969)
}

// InviteButton opens the invite screen from the main menu.
func (l *Layout) InviteButton() Region {
	return l.frac(0.7038, 0.9301, 0.7670, 0.9571)
}

// InviteFriendButton is the invite-a-friend row.
func (l *Layout) InviteFriendButton() Region {
	return l.frac(0.3350, 0.8798, 0.6796, 0.9080)
}

// InviteDailyReward is the daily reward row on the invite screen.
func (l *Layout) InviteDailyReward() Region {
	return l.frac(0.5947, 0.7926, 0.8981, 0.8196)
}

// InviteDailyRewardClaim is the claim button of that row.
func (l *Layout) InviteDailyRewardClaim() Region {
	return l.frac(0.6650, 0.7926, 0.8981, 0.8270)
}

// BackButton is the back arrow in the top-left corner.
func (l *Layout) BackButton() Region {
	return l.quad(
		0.0631, 0.0798,
		0.1214, 0.0798,
		0.0631, 0.0920,
		0.1117, 0.0920,
	)
}

// ShopButton opens the shop from the main menu.
func (l *Layout) ShopButton() Region {
	return l.frac(0.8495, 0.9202, 0.9466, 0.9571)
}

// ShopFreeChest is the free chest row inside the shop.
func (l *Layout) ShopFreeChest() Region {
	return l.frac(0.1262, 0.3742, 0.3034, 0.3865)
}

// TrophyButton is the trophy icon in the top-left of the main menu.
func (l *Layout) TrophyButton() Region {
	return l.frac(0.0607, 0.1252, 0.1214, 0.1571)
}

// TrophyLikeButton is the like button inside the trophy screen.
func (l *Layout) TrophyLikeButton() Region {
	return l.frac(0.5825, 0.2393, 0.6068, 0.2454)
}

// MailRewards is the claim button inside the mailbox envelope.
func (l *Layout) MailRewards() Region {
	return l.frac(0.6165, 0.7877, 0.8131, 0.8172)
}
