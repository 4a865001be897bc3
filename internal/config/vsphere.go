package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/joshuapare/cbtkit/internal/vsphere"
	"github.com/joshuapare/cbtkit/pkg/types"
)

// vcenterEnv maps VCENTER_HOST, VCENTER_USER, VCENTER_PASS and
// VCENTER_INSECURE.
type vcenterEnv struct {
	Host     string `envconfig:"HOST"`
	User     string `envconfig:"USER"`
	Password string `envconfig:"PASS"`
	Insecure bool   `envconfig:"INSECURE" default:"true"`
}

// LoadVSphere reads the connection settings from the environment after
// loading dotenv, if that file exists. Variables already set in the
// environment win over the file.
func LoadVSphere(dotenv string) (vsphere.Config, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return vsphere.Config{}, types.Wrap(types.ErrKindConfig, err, "load "+dotenv)
		}
	}
	var env vcenterEnv
	if err := envconfig.Process("VCENTER", &env); err != nil {
		return vsphere.Config{}, types.Wrap(types.ErrKindConfig, err, "read vCenter environment")
	}
	cfg := vsphere.Config{
		Host:     env.Host,
		User:     env.User,
		Password: env.Password,
		Insecure: env.Insecure,
	}
	if err := cfg.Validate(); err != nil {
		return vsphere.Config{}, err
	}
	return cfg, nil
}
