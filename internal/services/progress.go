package services

import (
	"time"

	"reunion-countdown/internal/models"
)

// MountainDays is the lookback window: the climb starts this many days before the target
const MountainDays = 30

const msPerDay = 24 * 60 * 60 * 1000

// Climber anchors, in percent of the scene width and fraction of its height
const (
	leftBaseX   = 15.0
	rightBaseX  = 85.0
	summitX     = 50.0
	summitRatio = 0.78
)

// Progress maps the remaining time onto [0,1]: 0 at MountainDays or more, 1 at the target.
// A reached countdown is pinned at 1.
func Progress(now time.Time, target *models.TargetInstant, reached bool) float64 {
	if reached {
		return 1
	}
	if target == nil {
		return 0
	}

	remainingDays := float64(target.UTC.UnixMilli()-now.UnixMilli()) / msPerDay
	switch {
	case remainingDays >= MountainDays:
		return 0
	case remainingDays <= 0:
		return 1
	default:
		return 1 - remainingDays/MountainDays
	}
}

// CaptionFor bands a progress value into a caption category
func CaptionFor(progress float64, hasTarget bool) models.Caption {
	switch {
	case !hasTarget:
		return models.CaptionNotStarted
	case progress >= 1:
		return models.CaptionArrived
	case progress <= 0:
		return models.CaptionRestingAtBase
	case progress < 0.5:
		return models.CaptionClimbing
	default:
		return models.CaptionNearSummit
	}
}

// Climbers places the two characters between their base and summit anchors
func Climbers(progress float64) []models.ClimberPosition {
	p := clamp01(progress)
	return []models.ClimberPosition{
		{Name: "penguin", Left: lerp(leftBaseX, summitX, p), Bottom: lerp(0, summitRatio, p)},
		{Name: "piggy", Left: lerp(rightBaseX, summitX, p), Bottom: lerp(0, summitRatio, p)},
	}
}

func lerp(from, to, p float64) float64 {
	return from + (to-from)*p
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
