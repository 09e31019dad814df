package config

// DB holds the database configuration settings.
type DB struct {
	Engine   string `mapstructure:"engine" json:"engine" validate:"oneof=sqlite mysql postgres"`
	Extras   string `mapstructure:"extras" json:"extras"`
	Host     string `mapstructure:"host" json:"host" validate:"required_unless=Engine sqlite"`
	Port     int    `mapstructure:"port" json:"port"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"-"`
	Name     string `mapstructure:"name" json:"name" validate:"required"`
}
