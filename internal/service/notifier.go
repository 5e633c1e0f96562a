package service

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/logger"
	"autograde-backend/internal/repository"
)

// messageSender is the part of the FCM client the notifier uses.
type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type fcmNotifier struct {
	client        messageSender
	appraiserRepo repository.AppraiserRepository
}

// NewFCMClient initialises Firebase Cloud Messaging from a service account file.
func NewFCMClient(ctx context.Context, credentialsFile string) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return client, nil
}

// NewFCMNotifier pushes notices to the device registered by the appraiser.
func NewFCMNotifier(client messageSender, appraiserRepo repository.AppraiserRepository) Notifier {
	return &fcmNotifier{client: client, appraiserRepo: appraiserRepo}
}

func (n *fcmNotifier) Notify(ctx context.Context, appraiserID int32, sessionID string, notice domain.Notice) error {
	a, err := n.appraiserRepo.GetByID(ctx, appraiserID)
	if err != nil {
		return fmt.Errorf("load appraiser: %w", err)
	}
	if a.DeviceToken == "" {
		return nil
	}

	msg := &messaging.Message{
		Token: a.DeviceToken,
		Notification: &messaging.Notification{
			Title: kindLabel(notice.Kind),
			Body:  notice.Message,
		},
		Data: map[string]string{
			"session_id": sessionID,
			"kind":       string(notice.Kind),
			"level":      string(notice.Level),
		},
	}

	started := time.Now()
	logger.ExternalServiceCall("fcm", "Send", "appraiserID", appraiserID)
	_, err = n.client.Send(ctx, msg)
	logger.ExternalServiceResult("fcm", "Send", started, err, "appraiserID", appraiserID)
	return err
}

type logNotifier struct{}

// NewLogNotifier writes notices to the log only.
func NewLogNotifier() Notifier {
	return logNotifier{}
}

func (logNotifier) Notify(ctx context.Context, appraiserID int32, sessionID string, n domain.Notice) error {
	logger.WithSession(sessionID).Info("Enrichment notice", "appraiser_id", appraiserID, "kind", n.Kind, "level", n.Level, "message", n.Message)
	return nil
}
