package dto

// AccessRuleInput is one visibility rule in an update payload.
type AccessRuleInput struct {
	Scope    string `json:"scope" validate:"required,oneof=module lesson"`
	TargetID string `json:"target_id" validate:"required"`
	Visible  *bool  `json:"visible" validate:"required"`
}

// AccessControlUpdateRequest replaces visibility rules for a course.
type AccessControlUpdateRequest struct {
	Rules []AccessRuleInput `json:"rules" validate:"required,min=1,dive"`
}

// PrivacyUpdateRequest updates the caller's privacy settings.
type PrivacyUpdateRequest struct {
	ProfileVisibility string `json:"profile_visibility" validate:"required,oneof=public enrolled private"`
	ShareProgress     *bool  `json:"share_progress" validate:"required"`
	Searchable        *bool  `json:"searchable" validate:"required"`
}
