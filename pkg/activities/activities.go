// Package activities implements the retryable steps that publishing and onboarding
// workflows are composed of. Every activity takes one structured argument, returns an
// Outcome-shaped result for expected failures and an error only for faults.
package activities

import (
	"log/slog"

	"github.com/estatedesk/partnerflow/pkg/config"
	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/estatedesk/partnerflow/pkg/notification"
	"github.com/estatedesk/partnerflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

type Activities struct {
	store    persistence.Persistence
	sender   notification.Sender
	credits  config.CreditsConfig
	validate *validator.Validate
	logger   *slog.Logger
}

func New(store persistence.Persistence, sender notification.Sender, credits config.CreditsConfig, logger *slog.Logger) *Activities {
	return &Activities{
		store:    store,
		sender:   sender,
		credits:  credits,
		validate: newValidator(),
		logger:   logger.With("component", "activities"),
	}
}

// Functions returns every activity keyed by its registered name.
func (a *Activities) Functions() map[string]any {
	return map[string]any{
		ValidatePropertyData:  a.ValidatePropertyData,
		ValidateProjectData:   a.ValidateProjectData,
		ValidatePGHostelData:  a.ValidatePGHostelData,
		ValidateDeveloperData: a.ValidateDeveloperData,
		ValidatePartnerData:   a.ValidatePartnerData,
		ValidateBusinessData:  a.ValidateBusinessData,

		FindPublishedEntity: a.FindPublishedEntity,

		CreatePropertyRecord:  a.CreatePropertyRecord,
		UpdatePropertyRecord:  a.UpdatePropertyRecord,
		CreateProjectRecord:   a.CreateProjectRecord,
		UpdateProjectRecord:   a.UpdateProjectRecord,
		CreatePGHostelRecord:  a.CreatePGHostelRecord,
		UpdatePGHostelRecord:  a.UpdatePGHostelRecord,
		CreateDeveloperRecord: a.CreateDeveloperRecord,
		UpdateDeveloperRecord: a.UpdateDeveloperRecord,
		CreatePartnerProfile:  a.CreatePartnerProfile,
		UpdatePartnerProfile:  a.UpdatePartnerProfile,
		CreateBusinessProfile: a.CreateBusinessProfile,
		UpdateBusinessProfile: a.UpdateBusinessProfile,

		DiscardPublishedEntity: a.DiscardPublishedEntity,

		CheckPublishingCredits:  a.CheckPublishingCredits,
		DeductPublishingCredits: a.DeductPublishingCredits,
		GrantWelcomeCredits:     a.GrantWelcomeCredits,

		UpdateListingDraftStatus: a.UpdateListingDraftStatus,

		SendPropertyPublishingNotification:  a.SendPropertyPublishingNotification,
		SendProjectPublishingNotification:   a.SendProjectPublishingNotification,
		SendPGHostelPublishingNotification:  a.SendPGHostelPublishingNotification,
		SendDeveloperPublishingNotification: a.SendDeveloperPublishingNotification,
		SendOnboardingNotification:          a.SendOnboardingNotification,
	}
}

type kindInfo struct {
	label     string
	nameField string
}

var kinds = map[models.EntityKind]kindInfo{
	models.KindProperty:  {label: "Property", nameField: "title"},
	models.KindProject:   {label: "Project", nameField: "projectName"},
	models.KindPGHostel:  {label: "PG/Hostel", nameField: "name"},
	models.KindDeveloper: {label: "Developer profile", nameField: "developerName"},
	models.KindPartner:   {label: "Partner profile", nameField: "name"},
	models.KindBusiness:  {label: "Business profile", nameField: "businessName"},
}

func label(kind models.EntityKind) string {
	if info, ok := kinds[kind]; ok {
		return info.label
	}

	return string(kind)
}

func displayName(kind models.EntityKind, data map[string]any) string {
	name, _ := data[kinds[kind].nameField].(string)

	return name
}
