package auth

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"
)

// ProviderLDAP names the directory provider.
const ProviderLDAP = "ldap"

// LDAPConfig holds LDAP/Active Directory configuration for authentication.
type LDAPConfig struct {
	// Enabled indicates if LDAP authentication is enabled.
	Enabled bool
	// Host is the LDAP server hostname or IP address.
	Host string
	// Port is the LDAP server port (typically 389 for LDAP, 636 for LDAPS).
	Port int
	// UseSSL enables LDAPS (LDAP over SSL/TLS).
	UseSSL bool
	// UseTLS enables StartTLS to upgrade an LDAP connection to TLS.
	UseTLS bool
	// SkipVerify skips TLS certificate verification (insecure, for testing only).
	SkipVerify bool
	// BindDN is the distinguished name to bind with for performing searches.
	BindDN string
	// BindPassword is the password for the bind DN.
	BindPassword string
	// BaseDN is the base distinguished name for user searches.
	BaseDN string
	// UserFilter finds the user, {username} is replaced with the login name.
	UserFilter string
	// GroupBaseDN is the base distinguished name for group searches.
	GroupBaseDN string
	// GroupFilter finds the user's groups, {userdn} is replaced with the user's DN.
	GroupFilter string
	// UsernameAttr is the LDAP attribute containing the username (e.g., "uid", "sAMAccountName").
	UsernameAttr string
	// EmailAttr is the LDAP attribute containing the email address.
	EmailAttr string
	// FirstNameAttr is the LDAP attribute containing the given name.
	FirstNameAttr string
	// LastNameAttr is the LDAP attribute containing the surname.
	LastNameAttr string
	// GroupNameAttr names the group attribute reported as a role (e.g., "cn").
	GroupNameAttr string
	// Timeout is the connection timeout in seconds.
	Timeout int
}

// LDAPProvider authenticates against a directory and reports the user's
// groups as realm roles.
type LDAPProvider struct {
	config *LDAPConfig
}

var _ Provider = (*LDAPProvider)(nil)

// NewLDAPProvider creates a new LDAP provider.
func NewLDAPProvider(config *LDAPConfig) (*LDAPProvider, error) {
	if !config.Enabled {
		return nil, ErrLDAPDisabled
	}

	setDefault := func(field *string, value string) {
		if *field == "" {
			*field = value
		}
	}

	setDefault(&config.UserFilter, "(mail={username})")
	setDefault(&config.GroupFilter, "(member={userdn})")
	setDefault(&config.UsernameAttr, "uid")
	setDefault(&config.EmailAttr, "mail")
	setDefault(&config.FirstNameAttr, "givenName")
	setDefault(&config.LastNameAttr, "sn")
	setDefault(&config.GroupNameAttr, "cn")

	if config.Port == 0 {
		config.Port = 389
	}

	if config.Timeout == 0 {
		config.Timeout = 10
	}

	return &LDAPProvider{config: config}, nil
}

// Supports accepts username/password credentials.
func (p *LDAPProvider) Supports(a *Authentication) bool {
	return a.Name != "" && a.Password != ""
}

// Connect establishes a connection to the LDAP server.
func (p *LDAPProvider) Connect() (*ldap.Conn, error) {
	hostPort := net.JoinHostPort(p.config.Host, strconv.Itoa(p.config.Port))

	scheme := "ldap://"
	if p.config.UseSSL {
		scheme = "ldaps://"
	}

	var tlsConfig *tls.Config
	if p.config.UseSSL || p.config.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: p.config.SkipVerify, //nolint:gosec // opt-in for test directories
			ServerName:         p.config.Host,
		}
	}

	timeout := time.Duration(p.config.Timeout) * time.Second

	conn, err := ldap.DialURL(scheme+hostPort,
		ldap.DialWithTLSConfig(tlsConfig),
		ldap.DialWithDialer(&net.Dialer{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	if !p.config.UseSSL && p.config.UseTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			if errClose := conn.Close(); errClose != nil {
				log.Error().Err(errClose).Msg("failed to close LDAP connection")
			}

			return nil, fmt.Errorf("failed to start TLS: %w", errStartTLS)
		}
	}

	conn.SetTimeout(timeout)

	return conn, nil
}

// Authenticate binds as the user and collects the user's directory groups.
func (p *LDAPProvider) Authenticate(ctx context.Context, a *Authentication) (*Authentication, error) {
	conn, err := p.Connect()
	if err != nil {
		return nil, authFailed(ProviderLDAP, err)
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Ctx(ctx).Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if err = p.bindService(conn); err != nil {
		return nil, authFailed(ProviderLDAP, err)
	}

	entry, err := p.searchUserEntry(conn, a.Name)
	if err != nil {
		return nil, authFailed(ProviderLDAP, err)
	}

	if err = conn.Bind(entry.DN, a.Password); err != nil {
		return nil, authFailed(ProviderLDAP, fmt.Errorf("%w: %w", ErrBadCredentials, err))
	}

	// group searches run as the service account again
	if err = p.bindService(conn); err != nil {
		return nil, authFailed(ProviderLDAP, err)
	}

	groups, err := p.userGroups(conn, entry.DN)
	if err != nil {
		return nil, authFailed(ProviderLDAP, fmt.Errorf("failed to get user groups: %w", err))
	}

	token := &AccessToken{
		Subject:           entry.DN,
		PreferredUsername: entry.GetAttributeValue(p.config.UsernameAttr),
		Email:             entry.GetAttributeValue(p.config.EmailAttr),
		GivenName:         entry.GetAttributeValue(p.config.FirstNameAttr),
		FamilyName:        entry.GetAttributeValue(p.config.LastNameAttr),
		RealmAccess:       &Access{Roles: groups},
	}

	out := authenticated(a, ProviderLDAP)
	if name := token.PrincipalName(); name != "" {
		out.Name = name
	}
	out.Token = token
	out.Authorities = token.Authorities()

	return out, nil
}

// bindService binds with the configured service account, if any.
func (p *LDAPProvider) bindService(conn *ldap.Conn) error {
	if p.config.BindDN == "" {
		return nil
	}

	if err := conn.Bind(p.config.BindDN, p.config.BindPassword); err != nil {
		return fmt.Errorf("failed to bind with service account: %w", err)
	}

	return nil
}

// UserFilter returns the user search filter for username.
func (p *LDAPProvider) UserFilter(username string) string {
	return strings.ReplaceAll(p.config.UserFilter, "{username}", ldap.EscapeFilter(username))
}

// GroupFilter returns the group search filter for the user DN.
func (p *LDAPProvider) GroupFilter(userDN string) string {
	return strings.ReplaceAll(p.config.GroupFilter, "{userdn}", ldap.EscapeFilter(userDN))
}

// searchUserEntry searches LDAP for the given username and returns a single entry.
func (p *LDAPProvider) searchUserEntry(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	searchRequest := ldap.NewSearchRequest(
		p.config.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // Size limit
		p.config.Timeout,
		false,
		p.UserFilter(username),
		[]string{
			p.config.UsernameAttr,
			p.config.EmailAttr,
			p.config.FirstNameAttr,
			p.config.LastNameAttr,
			"dn",
		},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search for user: %w", err)
	}

	switch len(searchResult.Entries) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
		return searchResult.Entries[0], nil
	default:
		return nil, ErrMultipleUsersFound
	}
}

// userGroups returns the group names of the user.
func (p *LDAPProvider) userGroups(conn *ldap.Conn, userDN string) ([]string, error) {
	if p.config.GroupBaseDN == "" {
		return []string{}, nil
	}

	searchRequest := ldap.NewSearchRequest(
		p.config.GroupBaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		p.config.Timeout,
		false,
		p.GroupFilter(userDN),
		[]string{p.config.GroupNameAttr},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search for groups: %w", err)
	}

	groups := make([]string, 0, len(searchResult.Entries))
	for _, entry := range searchResult.Entries {
		if name := entry.GetAttributeValue(p.config.GroupNameAttr); name != "" {
			groups = append(groups, name)
		}
	}

	return groups, nil
}

// TestConnection dials the server and binds with the service account.
func (p *LDAPProvider) TestConnection() error {
	conn, err := p.Connect()
	if err != nil {
		return err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	return p.bindService(conn)
}
