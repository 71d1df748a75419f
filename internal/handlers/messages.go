package handlers

import (
	"fmt"

	"reunion-countdown/internal/models"
	"reunion-countdown/internal/services"
)

var statusMessages = map[models.Status]string{
	models.StatusUnset:   "Please choose our next reunion date 💌",
	models.StatusArrived: "It’s time! You can be together! 🥹💛",
	models.StatusFinal:   "Almost there… final countdown!! 🫶",
	models.StatusWeek:    "Less than a week left… hang in there 💖",
	models.StatusMonth:   "Getting closer day by day 🌙",
	models.StatusFar:     "Time left until our next reunion",
}

var captionMessages = map[models.Caption]string{
	models.CaptionNotStarted:    "Set a date and we’ll start climbing together 🐧🐷",
	models.CaptionArrived:       "You made it to the top together 🏔️💖",
	models.CaptionRestingAtBase: fmt.Sprintf("More than %d days left… resting at the base 🏕️", services.MountainDays),
	models.CaptionClimbing:      "You two started climbing… every day brings you closer 🧗‍♀️🧗‍♂️",
	models.CaptionNearSummit:    "You’re high up the mountain now… almost at the top! 🌄",
}

var rejectMessages = map[services.RejectReason]string{
	services.ReasonCancelled: "Cancelled ✋",
	services.ReasonEmpty:     "Password can’t be empty ❌",
	services.ReasonWrong:     "Wrong password ❌",
}

const (
	msgMissingDate  = "Please select a date first 💌"
	msgSaved        = "Saved! Now counting down until that day 💕"
	msgOrderCorrect = "Perfect! You remembered everything in order 🥹💛"
	msgOrderWrong   = "Not quite… rearrange and try again 💭"
)

// Present fills in the display strings of a snapshot
func Present(s models.Snapshot) models.Snapshot {
	s.StatusMessage = statusMessages[s.Status]
	s.CaptionMessage = captionMessages[s.Caption]
	return s
}

func checkMessage(correct bool) string {
	if correct {
		return msgOrderCorrect
	}
	return msgOrderWrong
}
