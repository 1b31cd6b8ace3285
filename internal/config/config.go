package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Port     int      `koanf:"port"`
	Cors     Cors     `koanf:"cors"`
	Auth     Auth     `koanf:"auth"`
	Database Database `koanf:"db"`
	Storage  Storage  `koanf:"storage"`
}

type Cors struct {
	// Origin is a comma-separated list of allowed origins, or "*" for any.
	Origin string `koanf:"origin"`
}

type Auth struct {
	Secret string `koanf:"secret"`
	// TokenTTL is a Go duration string, e.g. "168h" for 7 days.
	TokenTTL string `koanf:"tokenttl"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Storage struct {
	// Dir is the preferred data directory for file-backed storage. Further
	// candidates are tried when it is not writable.
	Dir string `koanf:"dir"`
}

// Load builds the configuration from struct defaults, an optional YAML file
// and PRODIGE_-prefixed environment variables, in that order of precedence.
// A .env file in the working directory is applied to the environment first.
func Load(path string) (Application, error) {
	if err := godotenv.Load(); err == nil {
		log.Info("Loaded environment from .env file")
	}

	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Port: 5000,
		Cors: Cors{
			Origin: "*",
		},
		Auth: Auth{
			Secret:   "dev-only-secret",
			TokenTTL: "168h",
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "prodige",
			Pass:   "",
			Name:   "prodige",
			Schema: "public",
		},
		Storage: Storage{
			Dir: "./data",
		},
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config defaults: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "PRODIGE_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "PRODIGE_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
