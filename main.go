package main

import (
	"os"

	"github.com/trodix/keycloak-activiti-app-ext/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
