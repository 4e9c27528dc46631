package models

// Plan is a subscription record owned by the licensing subsystem. The
// rate-limit columns are nullable on purpose: plans issued before a
// category existed simply have no value for it.
type Plan struct {
	Name             string `gorm:"primaryKey" json:"name"`
	CustomRateLimits bool   `gorm:"not null;default:false" json:"custom_rate_limits"`

	ReadLimit           *int `json:"read_limit,omitempty"`
	WriteLimit          *int `json:"write_limit,omitempty"`
	PublicEndpointLimit *int `json:"public_endpoint_limit,omitempty"`
	SecretsLimit        *int `json:"secrets_limit,omitempty"`
	AuthLimit           *int `json:"auth_limit,omitempty"`
	InviteUserLimit     *int `json:"invite_user_limit,omitempty"`
	MFALimit            *int `gorm:"column:mfa_limit" json:"mfa_limit,omitempty"`
	CreationLimit       *int `json:"creation_limit,omitempty"`
}

func (Plan) TableName() string {
	return "plans"
}
