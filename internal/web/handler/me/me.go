// Package me serves the authenticated identity.
package me

import (
	"github.com/gofiber/fiber/v3"

	"github.com/trodix/keycloak-activiti-app-ext/internal/web/handler"
	"github.com/trodix/keycloak-activiti-app-ext/internal/web/middleware/authn"
)

// Path is relative to the API group.
const Path = handler.RootPath + "me"

// Response describes the authenticated principal.
type Response struct {
	Name        string   `json:"name"`
	Provider    string   `json:"provider"`
	Authorities []string `json:"authorities"`
	FirstName   string   `json:"firstName,omitempty"`
	LastName    string   `json:"lastName,omitempty"`
}

// Service handles the identity endpoint.
type Service struct{}

// Handler is the identity handler.
var Handler = Service{} //nolint:gochecknoglobals

var _ handler.Service = Handler

// Init registers the route.
func (s Service) Init(router fiber.Router) error {
	router.Get(Path, s.Get)

	return nil
}

// Get returns the authenticated principal.
func (s Service) Get(c fiber.Ctx) error {
	a, ok := authn.FromLocals(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	resp := Response{
		Name:        a.Name,
		Provider:    a.Provider,
		Authorities: a.Authorities,
	}
	if resp.Authorities == nil {
		resp.Authorities = []string{}
	}
	if a.Token != nil {
		resp.FirstName = a.Token.GivenName
		resp.LastName = a.Token.FamilyName
	}

	return c.JSON(resp)
}
