package activities

// Registered activity names. Workflows refer to activities by these names so the
// same definition can run on a Temporal worker or in process.
const (
	ValidatePropertyData  = "ValidatePropertyData"
	ValidateProjectData   = "ValidateProjectData"
	ValidatePGHostelData  = "ValidatePGHostelData"
	ValidateDeveloperData = "ValidateDeveloperData"
	ValidatePartnerData   = "ValidatePartnerData"
	ValidateBusinessData  = "ValidateBusinessData"

	FindPublishedEntity = "FindPublishedEntity"

	CreatePropertyRecord  = "CreatePropertyRecord"
	UpdatePropertyRecord  = "UpdatePropertyRecord"
	CreateProjectRecord   = "CreateProjectRecord"
	UpdateProjectRecord   = "UpdateProjectRecord"
	CreatePGHostelRecord  = "CreatePGHostelRecord"
	UpdatePGHostelRecord  = "UpdatePGHostelRecord"
	CreateDeveloperRecord = "CreateDeveloperRecord"
	UpdateDeveloperRecord = "UpdateDeveloperRecord"
	CreatePartnerProfile  = "CreatePartnerProfile"
	UpdatePartnerProfile  = "UpdatePartnerProfile"
	CreateBusinessProfile = "CreateBusinessProfile"
	UpdateBusinessProfile = "UpdateBusinessProfile"

	DiscardPublishedEntity = "DiscardPublishedEntity"

	CheckPublishingCredits  = "CheckPublishingCredits"
	DeductPublishingCredits = "DeductPublishingCredits"
	GrantWelcomeCredits     = "GrantWelcomeCredits"

	UpdateListingDraftStatus = "UpdateListingDraftStatus"

	SendPropertyPublishingNotification  = "SendPropertyPublishingNotification"
	SendProjectPublishingNotification   = "SendProjectPublishingNotification"
	SendPGHostelPublishingNotification  = "SendPGHostelPublishingNotification"
	SendDeveloperPublishingNotification = "SendDeveloperPublishingNotification"
	SendOnboardingNotification          = "SendOnboardingNotification"
)
