package activities

import (
	"context"
	"fmt"
	"strconv"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/notification"
)

func (a *Activities) SendPropertyPublishingNotification(ctx context.Context, in NotificationInput) (models.Outcome, error) {
	in.Kind = models.KindProperty

	return a.notifyPublished(ctx, in), nil
}

func (a *Activities) SendProjectPublishingNotification(ctx context.Context, in NotificationInput) (models.Outcome, error) {
	in.Kind = models.KindProject

	return a.notifyPublished(ctx, in), nil
}

func (a *Activities) SendPGHostelPublishingNotification(ctx context.Context, in NotificationInput) (models.Outcome, error) {
	in.Kind = models.KindPGHostel

	return a.notifyPublished(ctx, in), nil
}

func (a *Activities) SendDeveloperPublishingNotification(ctx context.Context, in NotificationInput) (models.Outcome, error) {
	in.Kind = models.KindDeveloper

	return a.notifyPublished(ctx, in), nil
}

// SendOnboardingNotification welcomes a partner or business. Like every notification
// it swallows delivery failures.
func (a *Activities) SendOnboardingNotification(ctx context.Context, in NotificationInput) (models.Outcome, error) {
	subject := "Welcome to EstateDesk"
	body := fmt.Sprintf("Your %s is ready.", lowerLabel(in.Kind))

	if in.IsUpdate {
		subject = "Your profile was updated"
		body = fmt.Sprintf("Your %s was updated.", lowerLabel(in.Kind))
	}

	return a.send(ctx, in, subject, body), nil
}

func (a *Activities) notifyPublished(ctx context.Context, in NotificationInput) models.Outcome {
	verb := "published"
	if in.IsUpdate {
		verb = "updated"
	}

	subject := fmt.Sprintf("%s %s", label(in.Kind), verb)

	body := fmt.Sprintf("Your %s #%d was %s.", lowerLabel(in.Kind), in.EntityID, verb)
	if in.Name != "" {
		body = fmt.Sprintf("Your %s %q (#%d) was %s.", lowerLabel(in.Kind), in.Name, in.EntityID, verb)
	}

	return a.send(ctx, in, subject, body)
}

func (a *Activities) send(ctx context.Context, in NotificationInput, subject, body string) models.Outcome {
	recipient := in.Email
	if recipient == "" {
		recipient = "user:" + strconv.FormatInt(in.UserID, 10)
	}

	err := a.sender.Send(ctx, notification.Message{
		To:      recipient,
		Subject: subject,
		Body:    body,
		Metadata: map[string]string{
			notification.KindMetadataKey: string(in.Kind),
			"entityId":                   strconv.FormatInt(in.EntityID, 10),
		},
	})
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to send notification", "kind", in.Kind, "user_id", in.UserID, "error", err)

		return models.Failed(models.CodeDeliveryFailed, "Notification not delivered: "+err.Error())
	}

	return models.Succeeded("Notification sent")
}

func lowerLabel(kind models.EntityKind) string {
	switch kind {
	case models.KindPGHostel:
		return "PG/hostel listing"
	case models.KindDeveloper:
		return "developer profile"
	case models.KindPartner:
		return "partner profile"
	case models.KindBusiness:
		return "business profile"
	default:
		return string(kind)
	}
}
