// Package notifier pushes operator alerts to chat channels.
package notifier

import "context"

// TextNotifier sends a pre-rendered message.
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}
