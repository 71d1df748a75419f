package models

import "time"

// TargetInstant is the saved countdown target together with the fields it was entered with
type TargetInstant struct {
	UTC       time.Time `json:"utc"`
	LocalDate string    `json:"local_date"`
	LocalTime string    `json:"local_time"`
	TZOffset  string    `json:"tz_offset"`
}

// TargetForm holds the values shown in the "change date" form
type TargetForm struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
}

// Status is the categorical countdown status
type Status string

const (
	StatusUnset   Status = "unset"
	StatusArrived Status = "arrived"
	StatusFinal   Status = "final"
	StatusWeek    Status = "week"
	StatusMonth   Status = "month"
	StatusFar     Status = "far"
)

// Countdown is the remaining time decomposed for display
type Countdown struct {
	Days    int64  `json:"days"`
	Hours   int64  `json:"hours"`
	Minutes int64  `json:"minutes"`
	Seconds int64  `json:"seconds"`
	Status  Status `json:"status"`
}

// Caption is the categorical mountain caption
type Caption string

const (
	CaptionNotStarted    Caption = "not_started"
	CaptionArrived       Caption = "arrived"
	CaptionRestingAtBase Caption = "resting_at_base"
	CaptionClimbing      Caption = "climbing"
	CaptionNearSummit    Caption = "near_summit"
)

// ClimberPosition places one character on the mountain scene.
// Left is a percentage of the scene width, Bottom a fraction of its height.
type ClimberPosition struct {
	Name   string  `json:"name"`
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
}

// Snapshot is everything the presentation layer needs for one tick
type Snapshot struct {
	Countdown
	StatusMessage  string            `json:"status_message"`
	Progress       float64           `json:"progress"`
	Caption        Caption           `json:"caption"`
	CaptionMessage string            `json:"caption_message"`
	Climbers       []ClimberPosition `json:"climbers"`
	Target         *TargetInstant    `json:"target,omitempty"`
	Reached        bool              `json:"reached"`
	Now            time.Time         `json:"now"`
}

// Photo is one entry of the fixed puzzle catalog
type Photo struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Caption string `json:"caption"`
	Date    string `json:"date"`
}

// PhotoRound is a sampled subset of the catalog in the order the user arranged it
type PhotoRound struct {
	ID        string    `json:"id"`
	Photos    []Photo   `json:"photos"`
	CreatedAt time.Time `json:"created_at"`
}
