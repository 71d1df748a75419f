package services

import (
	"context"
	"fmt"

	"reunion-countdown/internal/config"
	"reunion-countdown/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

const (
	arrivalTitle = "It's time!"
	arrivalBody  = "You can be together now."
)

// LogNotifier records the arrival in the log
type LogNotifier struct{}

// NotifyArrived logs the arrival
func (LogNotifier) NotifyArrived(_ context.Context, target models.TargetInstant) error {
	log.Info().
		Str("local_date", target.LocalDate).
		Str("local_time", target.LocalTime).
		Str("tz_offset", target.TZOffset).
		Msg(arrivalTitle)
	return nil
}

// Pusher is the part of the APNs client the notifier uses
type Pusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// APNsNotifier pushes the one-shot arrival message to the registered devices
type APNsNotifier struct {
	client  Pusher
	topic   string
	devices []string
}

// NewAPNsNotifier creates a token-authenticated APNs notifier
func NewAPNsNotifier(cfg config.PushConfig) (*APNsNotifier, error) {
	authKey, err := token.AuthKeyFromFile(cfg.AuthKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return newAPNsNotifier(client, cfg.Topic, cfg.DeviceTokens), nil
}

func newAPNsNotifier(client Pusher, topic string, devices []string) *APNsNotifier {
	return &APNsNotifier{
		client:  client,
		topic:   topic,
		devices: append([]string(nil), devices...),
	}
}

// NotifyArrived sends the arrival push to every device; it reports the first failure
func (n *APNsNotifier) NotifyArrived(ctx context.Context, target models.TargetInstant) error {
	p := payload.NewPayload().
		AlertTitle(arrivalTitle).
		AlertBody(arrivalBody).
		Sound("default").
		Custom("target_utc", FormatInstant(target.UTC))

	var firstErr error
	for _, device := range n.devices {
		res, err := n.client.PushWithContext(ctx, &apns2.Notification{
			DeviceToken: device,
			Topic:       n.topic,
			Payload:     p,
		})
		if err == nil && !res.Sent() {
			err = fmt.Errorf("apns rejected push: %d %s", res.StatusCode, res.Reason)
		}
		if err != nil {
			log.Error().Err(err).Str("device", device).Msg("Failed to push arrival notification")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Info().Str("device", device).Str("apns_id", res.ApnsID).Msg("Arrival notification pushed")
	}
	return firstErr
}

var (
	_ ArrivalNotifier = LogNotifier{}
	_ ArrivalNotifier = (*APNsNotifier)(nil)
)
