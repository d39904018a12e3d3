package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/persona-chat/internal/events"
	"github.com/spec-kit/persona-chat/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartEventForwarder attaches forwarder to every event type. A nil
// forwarder leaves events in-process only.
func StartEventForwarder(dispatcher events.Dispatcher, forwarder *events.NATSForwarder, logger *zap.Logger) {
	if forwarder == nil {
		logger.Info("NATS_URL not set; events stay in-process")
		return
	}
	forwarder.Attach(dispatcher)
	logger.Info("forwarding events to NATS")
}
