package workflows

import (
	"github.com/estatedesk/partnerflow/pkg/activities"
	"github.com/estatedesk/partnerflow/pkg/models"
)

// publishing is the listing publication flow, parameterized by entity kind.
type publishing struct {
	kind      models.EntityKind
	label     string
	dataKey   string
	idKey     string
	nameField string
	validate  string
	create    string
	update    string
	notify    string
}

var (
	propertyPublishing = publishing{
		kind:      models.KindProperty,
		label:     "Property",
		dataKey:   "propertyData",
		idKey:     "propertyId",
		nameField: "title",
		validate:  activities.ValidatePropertyData,
		create:    activities.CreatePropertyRecord,
		update:    activities.UpdatePropertyRecord,
		notify:    activities.SendPropertyPublishingNotification,
	}

	projectPublishing = publishing{
		kind:      models.KindProject,
		label:     "Project",
		dataKey:   "projectData",
		idKey:     "projectId",
		nameField: "projectName",
		validate:  activities.ValidateProjectData,
		create:    activities.CreateProjectRecord,
		update:    activities.UpdateProjectRecord,
		notify:    activities.SendProjectPublishingNotification,
	}

	pgHostelPublishing = publishing{
		kind:      models.KindPGHostel,
		label:     "PG/Hostel",
		dataKey:   "pgHostelData",
		idKey:     "pgHostelId",
		nameField: "name",
		validate:  activities.ValidatePGHostelData,
		create:    activities.CreatePGHostelRecord,
		update:    activities.UpdatePGHostelRecord,
		notify:    activities.SendPGHostelPublishingNotification,
	}

	developerPublishing = publishing{
		kind:      models.KindDeveloper,
		label:     "Developer profile",
		dataKey:   "developerData",
		idKey:     "developerId",
		nameField: "developerName",
		validate:  activities.ValidateDeveloperData,
		create:    activities.CreateDeveloperRecord,
		update:    activities.UpdateDeveloperRecord,
		notify:    activities.SendDeveloperPublishingNotification,
	}
)

// run validates the draft payload, creates or updates the published entity, charges
// the publishing fee once per entity and then marks the draft and notifies the owner.
// A record created by this run is discarded again when the fee cannot be charged.
func (p publishing) run(exec Executor, input models.WorkflowInput) (models.WorkflowResult, error) {
	logger := exec.Logger()

	req, problems := decodeInput(input, p.dataKey, true)
	if len(problems) > 0 {
		return validationFailed(problems), nil
	}

	logger.Info("Publishing started", "kind", p.kind, "user_id", req.UserID, "draft_id", req.DraftID)

	exec.SetState(PhaseValidate)

	var validation activities.ValidationResult
	if err := exec.Execute(validationStep, p.validate, req.Data, &validation); err != nil {
		return models.WorkflowResult{}, err
	}

	if !validation.Success {
		exec.SetState(string(models.StateFailedValidation))

		return validationFailed(validation.Errors), nil
	}

	exec.SetState(PhaseCheckExisting)

	var existing activities.LookupResult

	lookup := activities.LookupInput{Kind: p.kind, DraftID: req.DraftID, UserID: req.UserID}
	if err := exec.Execute(validationStep, activities.FindPublishedEntity, lookup, &existing); err != nil {
		return models.WorkflowResult{}, err
	}

	if !existing.Found {
		exec.SetState(PhaseCheckCredits)

		var check activities.CreditResult

		credit := activities.CreditInput{UserID: req.UserID, Kind: p.kind}
		if err := exec.Execute(creditStep, activities.CheckPublishingCredits, credit, &check); err != nil {
			return models.WorkflowResult{}, err
		}

		if !check.Success {
			exec.SetState(string(models.StateFailedPayment))

			return failed(models.StateFailedPayment, check.Message), nil
		}
	}

	exec.SetState(PhasePersist)

	record := activities.RecordInput{UserID: req.UserID, DraftID: req.DraftID, Data: req.Data}

	persist := p.create
	if existing.Found {
		persist = p.update
		record.EntityID = existing.EntityID
	}

	var saved activities.RecordResult
	if err := exec.Execute(persistenceStep, persist, record, &saved); err != nil {
		if canceled(err) {
			return models.WorkflowResult{}, err
		}

		logger.Error("Failed to save record", "kind", p.kind, "draft_id", req.DraftID, "error", err)
		exec.SetState(string(models.StateFailedPersist))

		return failed(models.StateFailedPersist, "Failed to save "+p.label), nil
	}

	if !saved.Success {
		exec.SetState(string(models.StateFailedPersist))

		return failed(models.StateFailedPersist, saved.Message), nil
	}

	exec.SetState(PhaseDeductCredits)

	var debit activities.CreditResult

	charge := activities.CreditInput{UserID: req.UserID, Kind: p.kind, EntityID: saved.EntityID}
	if err := exec.Execute(creditStep, activities.DeductPublishingCredits, charge, &debit); err != nil {
		p.discard(exec, saved)

		return models.WorkflowResult{}, err
	}

	if !debit.Success {
		p.discard(exec, saved)
		exec.SetState(string(models.StateFailedPayment))

		return failed(models.StateFailedPayment, debit.Message), nil
	}

	exec.SetState(PhaseUpdateDraft)

	var marked models.Outcome

	status := activities.DraftStatusInput{DraftID: req.DraftID, Status: models.DraftStatusPublished, EntityID: saved.EntityID}
	if err := exec.Execute(persistenceStep, activities.UpdateListingDraftStatus, status, &marked); err != nil {
		if canceled(err) {
			return models.WorkflowResult{}, err
		}

		logger.Warn("Failed to update draft status", "draft_id", req.DraftID, "error", err)
	} else if !marked.Success {
		logger.Warn("Draft status not updated", "draft_id", req.DraftID, "message", marked.Message)
	}

	exec.SetState(PhaseNotify)

	name, _ := req.Data[p.nameField].(string)
	note := activities.NotificationInput{
		UserID:   req.UserID,
		Kind:     p.kind,
		EntityID: saved.EntityID,
		IsUpdate: saved.IsUpdate,
		Name:     name,
		Email:    req.Email,
	}

	var sent models.Outcome
	if err := exec.Execute(notificationStep, p.notify, note, &sent); err != nil {
		if canceled(err) {
			return models.WorkflowResult{}, err
		}

		logger.Warn("Failed to send notification", "kind", p.kind, "entity_id", saved.EntityID, "error", err)
	}

	exec.SetState(string(models.StateSucceeded))

	charged := debit.Amount
	if debit.AlreadyApplied {
		charged = 0
	}

	logger.Info("Publishing completed", "kind", p.kind, "entity_id", saved.EntityID, "is_update", saved.IsUpdate)

	return succeeded(p.label, saved.IsUpdate, map[string]any{
		p.idKey:           saved.EntityID,
		"isUpdate":        saved.IsUpdate,
		"creditsDeducted": charged,
	}), nil
}

// discard removes a record inserted by this run, also when the run was cancelled while
// charging. Failures are logged; the record then stays behind unpaid and is picked up
// by the update branch on the next attempt.
func (p publishing) discard(exec Executor, saved activities.RecordResult) {
	if !saved.Created {
		return
	}

	exec.SetState(PhaseDiscard)

	var outcome models.Outcome

	in := activities.DiscardInput{Kind: p.kind, EntityID: saved.EntityID}
	if err := exec.Compensate(persistenceStep, activities.DiscardPublishedEntity, in, &outcome); err != nil {
		exec.Logger().Error("Failed to discard unpaid record", "kind", p.kind, "entity_id", saved.EntityID, "error", err)
	}
}
