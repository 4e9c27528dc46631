package ratelimit

// Category names a class of request with its own independent threshold.
type Category string

const (
	CategoryRead           Category = "read"
	CategoryWrite          Category = "write"
	CategoryPublicEndpoint Category = "publicEndpoint"
	CategorySecrets        Category = "secrets"
	CategoryAuth           Category = "auth"
	CategoryInviteUser     Category = "inviteUser"
	CategoryMFA            Category = "mfa"
	CategoryCreation       Category = "creation"
)

// Categories lists every known category, in a stable order.
func Categories() []Category {
	return []Category{
		CategoryRead,
		CategoryWrite,
		CategoryPublicEndpoint,
		CategorySecrets,
		CategoryAuth,
		CategoryInviteUser,
		CategoryMFA,
		CategoryCreation,
	}
}

// Limits holds a threshold (requests per minute) for every category.
// A Limits value is always fully populated - there is no "unset" state.
type Limits struct {
	Read           int `json:"read"`
	Write          int `json:"write"`
	PublicEndpoint int `json:"publicEndpoint"`
	Secrets        int `json:"secrets"`
	Auth           int `json:"auth"`
	InviteUser     int `json:"inviteUser"`
	MFA            int `json:"mfa"`
	Creation       int `json:"creation"`
}

func (l Limits) Get(c Category) int {
	switch c {
	case CategoryRead:
		return l.Read
	case CategoryWrite:
		return l.Write
	case CategoryPublicEndpoint:
		return l.PublicEndpoint
	case CategorySecrets:
		return l.Secrets
	case CategoryAuth:
		return l.Auth
	case CategoryInviteUser:
		return l.InviteUser
	case CategoryMFA:
		return l.MFA
	case CategoryCreation:
		return l.Creation
	default:
		return 0
	}
}

// PlanLimits is the same shape as Limits with every field optional.
// Plan records issued before a category existed simply omit it.
type PlanLimits struct {
	Read           *int `json:"read,omitempty"`
	Write          *int `json:"write,omitempty"`
	PublicEndpoint *int `json:"publicEndpoint,omitempty"`
	Secrets        *int `json:"secrets,omitempty"`
	Auth           *int `json:"auth,omitempty"`
	InviteUser     *int `json:"inviteUser,omitempty"`
	MFA            *int `json:"mfa,omitempty"`
	Creation       *int `json:"creation,omitempty"`
}

// Plan is the slice of an organization's subscription record that rate
// limiting cares about. Limits may be nil or partially populated.
type Plan struct {
	Name             string      `json:"name"`
	CustomRateLimits bool        `json:"custom_rate_limits"`
	Limits           *PlanLimits `json:"limits"`
}
