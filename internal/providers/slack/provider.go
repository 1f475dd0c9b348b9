// Package slack posts operator alerts to a Slack channel.
package slack

import "context"

// Provider delivers a message to one channel. Delivery failures are
// reported but never block the trial lifecycle run.
type Provider interface {
	PostMessage(ctx context.Context, channelID string, message string) error
}

// NoOpProvider discards messages. It stands in whenever no webhook is
// configured, so installs without Slack still run.
type NoOpProvider struct{}

func (p *NoOpProvider) PostMessage(ctx context.Context, channelID string, message string) error {
	return nil
}
