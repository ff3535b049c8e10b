package domain

// RoutePolicy states who may reach paths starting with Prefix.
// Public routes skip authentication entirely; an empty Roles list on a
// non-public route means any authenticated identity.
type RoutePolicy struct {
	Prefix string     `json:"prefix" yaml:"prefix"`
	Public bool       `json:"public" yaml:"public"`
	Roles  []RoleName `json:"roles"  yaml:"roles"`
}

// LandingPaths are the post-login redirect targets by role priority.
type LandingPaths struct {
	Admin   string `yaml:"admin"`
	Vendor  string `yaml:"vendor"`
	Default string `yaml:"default"`
}
