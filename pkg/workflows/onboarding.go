package workflows

import (
	"fmt"

	"github.com/estatedesk/partnerflow/pkg/activities"
	"github.com/estatedesk/partnerflow/pkg/models"
)

// onboarding creates or refreshes a user's partner or business profile.
type onboarding struct {
	kind     models.EntityKind
	label    string
	dataKey  string
	idKey    string
	validate string
	create   string
	update   string
}

var (
	partnerOnboarding = onboarding{
		kind:     models.KindPartner,
		label:    "Partner profile",
		dataKey:  "partnerData",
		idKey:    "partnerId",
		validate: activities.ValidatePartnerData,
		create:   activities.CreatePartnerProfile,
		update:   activities.UpdatePartnerProfile,
	}

	businessOnboarding = onboarding{
		kind:     models.KindBusiness,
		label:    "Business profile",
		dataKey:  "businessData",
		idKey:    "businessId",
		validate: activities.ValidateBusinessData,
		create:   activities.CreateBusinessProfile,
		update:   activities.UpdateBusinessProfile,
	}
)

// run persists the profile, then grants welcome credits and sends a welcome message.
// Unlike the publishing fee, a failed grant does not fail the run.
func (o onboarding) run(exec Executor, input models.WorkflowInput) (models.WorkflowResult, error) {
	logger := exec.Logger()

	req, problems := decodeInput(input, o.dataKey, false)
	if len(problems) > 0 {
		return validationFailed(problems), nil
	}

	logger.Info("Onboarding started", "kind", o.kind, "user_id", req.UserID)

	exec.SetState(PhaseValidate)

	var validation activities.ValidationResult
	if err := exec.Execute(validationStep, o.validate, req.Data, &validation); err != nil {
		return models.WorkflowResult{}, err
	}

	if !validation.Success {
		exec.SetState(string(models.StateFailedValidation))

		return validationFailed(validation.Errors), nil
	}

	exec.SetState(PhaseCheckExisting)

	var existing activities.LookupResult

	lookup := activities.LookupInput{Kind: o.kind, UserID: req.UserID}
	if err := exec.Execute(validationStep, activities.FindPublishedEntity, lookup, &existing); err != nil {
		return models.WorkflowResult{}, err
	}

	exec.SetState(PhasePersist)

	record := activities.RecordInput{UserID: req.UserID, Data: req.Data}

	persist := o.create
	if existing.Found {
		persist = o.update
		record.EntityID = existing.EntityID
	}

	var saved activities.RecordResult
	if err := exec.Execute(persistenceStep, persist, record, &saved); err != nil {
		if canceled(err) {
			return models.WorkflowResult{}, err
		}

		logger.Error("Failed to save profile", "kind", o.kind, "user_id", req.UserID, "error", err)
		exec.SetState(string(models.StateFailedPersist))

		return failed(models.StateFailedPersist, "Failed to save "+o.label), nil
	}

	if !saved.Success {
		exec.SetState(string(models.StateFailedPersist))

		return failed(models.StateFailedPersist, saved.Message), nil
	}

	var granted int64

	if !saved.IsUpdate {
		exec.SetState(PhaseGrantCredits)

		var grant activities.CreditResult

		credit := activities.CreditInput{UserID: req.UserID, Kind: o.kind}
		if err := exec.Execute(creditStep, activities.GrantWelcomeCredits, credit, &grant); err != nil {
			if canceled(err) {
				return models.WorkflowResult{}, err
			}

			logger.Warn("Failed to grant welcome credits", "kind", o.kind, "user_id", req.UserID, "error", err)
		} else if grant.Success && !grant.AlreadyApplied {
			granted = grant.Amount
		}
	}

	exec.SetState(PhaseNotify)

	email, _ := req.Data["email"].(string)
	if req.Email != "" {
		email = req.Email
	}

	note := activities.NotificationInput{
		UserID:   req.UserID,
		Kind:     o.kind,
		EntityID: saved.EntityID,
		IsUpdate: saved.IsUpdate,
		Email:    email,
	}

	var sent models.Outcome
	if err := exec.Execute(notificationStep, activities.SendOnboardingNotification, note, &sent); err != nil {
		if canceled(err) {
			return models.WorkflowResult{}, err
		}

		logger.Warn("Failed to send welcome notification", "kind", o.kind, "user_id", req.UserID, "error", err)
	}

	exec.SetState(string(models.StateSucceeded))

	verb := "created"
	if saved.IsUpdate {
		verb = "updated"
	}

	return models.WorkflowResult{
		Success: true,
		Message: fmt.Sprintf("%s %s successfully", o.label, verb),
		Data: map[string]any{
			o.idKey:          saved.EntityID,
			"isUpdate":       saved.IsUpdate,
			"welcomeCredits": granted,
		},
		State: models.StateSucceeded,
	}, nil
}
