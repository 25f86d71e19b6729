package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/field-ticket-service/internal/service"
)

// StartNotificationWorker attaches the notification handlers to the event
// dispatcher. Handlers run inline with each publish.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		logger.Info("notification worker disabled")
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("notification worker started")
}
