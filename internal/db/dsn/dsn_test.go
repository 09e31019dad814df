package dsn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trodix/keycloak-activiti-app-ext/internal/config"
)

func TestCreate(t *testing.T) {
	testCases := []struct {
		name     string
		db       config.DB
		expected string
	}{
		{
			name:     "mysql",
			db:       config.DB{Engine: "mysql", User: "u", Password: "p", Host: "db", Port: 3306, Name: "idm", Extras: "parseTime=true"},
			expected: "u:p@tcp(db:3306)/idm?parseTime=true",
		},
		{
			name:     "mysql without extras",
			db:       config.DB{Engine: "mysql", User: "u", Password: "p", Host: "db", Port: 3306, Name: "idm"},
			expected: "u:p@tcp(db:3306)/idm",
		},
		{
			name:     "postgres",
			db:       config.DB{Engine: "postgres", User: "u", Password: "p", Host: "db", Port: 5432, Name: "idm", Extras: "sslmode=disable"},
			expected: "host=db port=5432 user=u password=p dbname=idm sslmode=disable",
		},
		{
			name:     "sqlite",
			db:       config.DB{Engine: "sqlite", Name: "keycloak-ext.db"},
			expected: "keycloak-ext.db",
		},
		{
			name:     "sqlite with pragmas",
			db:       config.DB{Engine: "sqlite", Name: "keycloak-ext.db", Extras: "_pragma=foreign_keys(1)"},
			expected: "keycloak-ext.db?_pragma=foreign_keys(1)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Create(tc.db))
		})
	}
}
