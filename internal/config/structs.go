package config

import (
	"github.com/trodix/keycloak-activiti-app-ext/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode     bool        `mapstructure:"devMode" json:"devMode"` // enable dev mode for development
	DB          DB          `mapstructure:"db" json:"db"`
	Log         logger.Log  `mapstructure:"log" json:"log"`
	Webserver   Webserver   `mapstructure:"webserver" json:"webserver"`
	Tenant      string      `mapstructure:"tenant" json:"tenant"` // explicit tenant name, empty to auto-detect
	Sync        Sync        `mapstructure:"sync" json:"sync"`
	Roles       Roles       `mapstructure:"roles" json:"roles"`
	Interceptor Interceptor `mapstructure:"interceptor" json:"interceptor"`
	Keycloak    Keycloak    `mapstructure:"keycloak" json:"keycloak"`
	AIS         AIS         `mapstructure:"ais" json:"ais"`
	LDAP        LDAP        `mapstructure:"ldap" json:"ldap"`
	OOTB        OOTB        `mapstructure:"ootb" json:"ootb"`
	Admin       Admin       `mapstructure:"admin" json:"admin"`
}

// Webserver implement webserver settings.
type Webserver struct {
	Port         int `mapstructure:"port" json:"port" validate:"gt=0,lt=65536"`
	ShutDownTime int `mapstructure:"shutDownTime" json:"shutDownTime"` // seconds to wait for in-flight requests
}

// Sync toggles the individual reconciliation steps.
type Sync struct {
	CreateMissingUser          bool   `mapstructure:"createMissingUser" json:"createMissingUser"`
	ClearNewUserDefaultGroups  bool   `mapstructure:"clearNewUserDefaultGroups" json:"clearNewUserDefaultGroups"`
	CreateMissingGroup         bool   `mapstructure:"createMissingGroup" json:"createMissingGroup"`
	SyncGroupAdd               bool   `mapstructure:"syncGroupAdd" json:"syncGroupAdd"`
	SyncGroupRemove            bool   `mapstructure:"syncGroupRemove" json:"syncGroupRemove"`
	SyncInternalGroups         bool   `mapstructure:"syncInternalGroups" json:"syncInternalGroups"`
	SyncGroupsAsOrganization   bool   `mapstructure:"syncGroupsAsOrganization" json:"syncGroupsAsOrganization"`
	SourceTag                  string `mapstructure:"sourceTag" json:"sourceTag" validate:"required"`
	EnableDuplicateGroupRepair bool   `mapstructure:"enableDuplicateGroupRepair" json:"enableDuplicateGroupRepair"`
}

// Roles holds the comma separated role mapping pattern lists.
type Roles struct {
	ResourceIncludes   string `mapstructure:"resourceIncludes" json:"resourceIncludes"`
	FormatPatterns     string `mapstructure:"formatPatterns" json:"formatPatterns"`
	FormatReplacements string `mapstructure:"formatReplacements" json:"formatReplacements"`
	Includes           string `mapstructure:"includes" json:"includes"`
	Excludes           string `mapstructure:"excludes" json:"excludes"`
}

// Interceptor configures the authentication interceptor.
type Interceptor struct {
	// SkipPostAuthenticate lists principal names whose group sync is skipped.
	SkipPostAuthenticate []string `mapstructure:"skipPostAuthenticate" json:"skipPostAuthenticate"`
}

// Strategy is the part every authentication strategy shares.
type Strategy struct {
	Enabled  bool `mapstructure:"enabled" json:"enabled"`
	Priority int  `mapstructure:"priority" json:"priority"`
}

// Keycloak configures bearer token authentication.
type Keycloak struct {
	Strategy          `mapstructure:",squash"`
	IssuerURL         string `mapstructure:"issuerURL" json:"issuerURL" validate:"required_if=Enabled true,omitempty,url"`
	ClientID          string `mapstructure:"clientID" json:"clientID"`
	SkipClientIDCheck bool   `mapstructure:"skipClientIDCheck" json:"skipClientIDCheck"`
}

// AIS configures the identity service password grant strategy.
type AIS struct {
	Strategy     `mapstructure:",squash"`
	IssuerURL    string   `mapstructure:"issuerURL" json:"issuerURL" validate:"required_if=Enabled true,omitempty,url"`
	ClientID     string   `mapstructure:"clientID" json:"clientID" validate:"required_if=Enabled true"`
	ClientSecret string   `mapstructure:"clientSecret" json:"-"`
	Scopes       []string `mapstructure:"scopes" json:"scopes"`
}

// LDAP configures directory authentication.
type LDAP struct {
	Strategy      `mapstructure:",squash"`
	Host          string `mapstructure:"host" json:"host" validate:"required_if=Enabled true"`
	Port          int    `mapstructure:"port" json:"port"`
	UseSSL        bool   `mapstructure:"useSSL" json:"useSSL"`
	UseTLS        bool   `mapstructure:"useTLS" json:"useTLS"`
	SkipVerify    bool   `mapstructure:"skipVerify" json:"skipVerify"`
	BindDN        string `mapstructure:"bindDN" json:"bindDN"`
	BindPassword  string `mapstructure:"bindPassword" json:"-"`
	BaseDN        string `mapstructure:"baseDN" json:"baseDN" validate:"required_if=Enabled true"`
	UserFilter    string `mapstructure:"userFilter" json:"userFilter"`
	GroupBaseDN   string `mapstructure:"groupBaseDN" json:"groupBaseDN"`
	GroupFilter   string `mapstructure:"groupFilter" json:"groupFilter"`
	GroupNameAttr string `mapstructure:"groupNameAttr" json:"groupNameAttr"`
	Timeout       int    `mapstructure:"timeout" json:"timeout"` // seconds
}

// OOTB configures the local account strategy.
type OOTB struct {
	Strategy `mapstructure:",squash"`
}

// Admin configures the administrative data fixers.
type Admin struct {
	Group AdminGroup `mapstructure:"group" json:"group"`
	// Users are emails added to the admin group at startup.
	Users []string   `mapstructure:"users" json:"users"`
	Reset AdminReset `mapstructure:"reset" json:"reset"`
}

// AdminGroup identifies the administrative group.
type AdminGroup struct {
	Name       string `mapstructure:"name" json:"name"`
	ExternalID string `mapstructure:"externalID" json:"externalID"`
	Validate   bool   `mapstructure:"validate" json:"validate"`
}

// AdminReset configures the admin password reset. An empty password disables it.
type AdminReset struct {
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"-"`
}
