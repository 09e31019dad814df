// Package config loads the service configuration through viper.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. KEYCLOAK_EXT_SYNC_SOURCETAG.
	EnvPrefix = "KEYCLOAK_EXT"
	// JSONEnv holds a JSON document merged over the file configuration.
	JSONEnv = EnvPrefix + "_CONFIG_JSON"
)

// ReadConfig reads the config file at path, applies environment overrides and
// the JSON override blob, and validates the result. An empty path reads
// ./etc/main.toml.
func ReadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = "./etc/main.toml"
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// override it from env
	if blob := os.Getenv(JSONEnv); blob != "" {
		v.SetConfigType("json")
		if err := v.MergeConfig(strings.NewReader(blob)); err != nil {
			return Config{}, errors.Wrap(err, "failed to merge "+JSONEnv)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}

	return c, Validate(c)
}

// setDefaults registers every recognised key so environment overrides apply
// even when the file omits the key.
func setDefaults(v *viper.Viper) {
	defaults := map[string]any{
		"devMode": false,

		"db.engine": "sqlite",
		"db.name":   "keycloak-ext.db",
		"db.host":   "",
		"db.port":   0,
		"db.user":   "",
		"db.extras": "",

		"log.level":              "info",
		"log.serviceName":        "keycloak-ext",
		"log.reportCaller":       false,
		"log.accessLogToConsole": false,
		"log.disableHealthz":     true,
		"log.console.enabled":    true,
		"log.console.pretty":     false,
		"log.file.enabled":       false,
		"log.file.path":          "./log",
		"log.file.access":        "access.log",
		"log.file.error":         "error.log",
		"log.file.info":          "info.log",
		"log.file.trace":         "trace.log",
		"log.file.warn":          "warn.log",

		"webserver.port":         8080,
		"webserver.shutDownTime": 5,

		"tenant":                           "",
		"interceptor.skipPostAuthenticate": []string{},

		"sync.createMissingUser":          true,
		"sync.clearNewUserDefaultGroups":  true,
		"sync.createMissingGroup":         true,
		"sync.syncGroupAdd":               true,
		"sync.syncGroupRemove":            true,
		"sync.syncInternalGroups":         false,
		"sync.syncGroupsAsOrganization":   false,
		"sync.sourceTag":                  "ais",
		"sync.enableDuplicateGroupRepair": false,

		"roles.resourceIncludes":   "",
		"roles.formatPatterns":     "",
		"roles.formatReplacements": "",
		"roles.includes":           "",
		"roles.excludes":           "",

		"keycloak.enabled":           false,
		"keycloak.priority":          -5,
		"keycloak.issuerURL":         "",
		"keycloak.clientID":          "",
		"keycloak.skipClientIDCheck": true,

		"ais.enabled":      false,
		"ais.priority":     -10,
		"ais.issuerURL":    "",
		"ais.clientID":     "",
		"ais.clientSecret": "",
		"ais.scopes":       []string{"openid", "profile", "email"},

		"ldap.enabled":       false,
		"ldap.priority":      5,
		"ldap.host":          "",
		"ldap.port":          389,
		"ldap.useSSL":        false,
		"ldap.useTLS":        false,
		"ldap.skipVerify":    false,
		"ldap.bindDN":        "",
		"ldap.bindPassword":  "",
		"ldap.baseDN":        "",
		"ldap.userFilter":    "(mail={username})",
		"ldap.groupBaseDN":   "",
		"ldap.groupFilter":   "(member={userdn})",
		"ldap.groupNameAttr": "cn",
		"ldap.timeout":       10,

		"ootb.enabled":  true,
		"ootb.priority": 0,

		"admin.group.name":       "admins",
		"admin.group.externalID": "",
		"admin.group.validate":   false,
		"admin.users":            []string{},
		"admin.reset.username":   "admin",
		"admin.reset.password":   "",
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Validate checks the struct tags of c.
func Validate(c Config) error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(fmt.Errorf("%w: %w", ErrInvalidConfig, err), "config validation")
	}

	return nil
}

// DumpConfigJSON config as JSON String. Secrets are omitted.
func DumpConfigJSON(c Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}
