/*
Copyright 2026 The Flux authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config builds the endpoint registry and the client identity from
// the environment, an optional .env file and an optional endpoints file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/drone/envsubst"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	"github.com/Wjiuwa/KeyGenOverApi/credentials"
	"github.com/Wjiuwa/KeyGenOverApi/snapshot"
)

const (
	// EnvClientKey holds the client key.
	EnvClientKey = "CLIENT_KEY"
	// EnvPrivateKey holds the private key.
	EnvPrivateKey = "PRIVATE_KEY"
)

const (
	flagEnvFile         = "env-file"
	flagEndpointsFile   = "endpoints-file"
	flagSnapshotPath    = "snapshot-path"
	flagRefreshInterval = "refresh-interval"
	flagHTTPRetries     = "http-retries"
	flagFetchTimeout    = "fetch-timeout"
)

// Endpoint names an endpoint and the environment variable holding its base
// URL.
type Endpoint struct {
	Name string
	Env  string
}

// DefaultEndpoints is the registry used when no endpoints file is given.
var DefaultEndpoints = []Endpoint{
	{Name: "External_AM", Env: "BASE_URL1"},
	{Name: "External_ST", Env: "BASE_URL2"},
	{Name: "Internal_AM", Env: "BASE_URL3"},
	{Name: "Internal_ST", Env: "BASE_URL4"},
	{Name: "Pro_ST", Env: "BASE_URL5"},
	{Name: "Pro_AM", Env: "BASE_URL6"},
}

// Endpoint identifiers become section names of the snapshot file.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Options contains the configuration options of the process.
//
// The struct can be bound to the flag set of a command, and the
// configuration loaded once the flags are parsed:
//
//	var opts config.Options
//	opts.BindFlags(cmd.PersistentFlags())
//	...
//	cfg, err := opts.Load()
type Options struct {
	// EnvFile is a dotenv file read for variables that are not set in the
	// environment. A missing file is ignored.
	EnvFile string
	// EndpointsFile is a YAML file replacing the default registry.
	EndpointsFile string
	// SnapshotPath is where the snapshot file is written.
	SnapshotPath string
	// RefreshInterval is the wait between two refresh rounds.
	RefreshInterval time.Duration
	// HTTPRetries is the number of retries of a public key request.
	HTTPRetries int
	// FetchTimeout bounds a public key request.
	FetchTimeout time.Duration
}

// BindFlags will parse the given pflag.FlagSet for configuration flags and
// set the Options accordingly.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.EnvFile, flagEnvFile, ".env",
		"Path to a dotenv file with variables that are not set in the environment.")
	fs.StringVar(&o.EndpointsFile, flagEndpointsFile, "",
		"Path to a YAML file mapping endpoint identifiers to base URLs. Values may reference environment variables.")
	fs.StringVar(&o.SnapshotPath, flagSnapshotPath, snapshot.DefaultPath,
		"Path of the snapshot file.")
	fs.DurationVar(&o.RefreshInterval, flagRefreshInterval, credentials.DefaultRefreshInterval,
		"The wait between two refresh rounds of all endpoints.")
	fs.IntVar(&o.HTTPRetries, flagHTTPRetries, 0,
		"The number of retries of a failed public key request.")
	fs.DurationVar(&o.FetchTimeout, flagFetchTimeout, credentials.DefaultFetchTimeout,
		"The timeout of a public key request.")
}

// Config is the loaded configuration.
type Config struct {
	// Registry maps endpoint identifiers to base URLs. An empty base URL
	// marks an endpoint that is not configured.
	Registry map[string]string
	Identity credentials.Identity
}

// endpointsFile is the content of the endpoints file.
type endpointsFile struct {
	Endpoints map[string]string `json:"endpoints"`
}

// Load returns the Config described by the Options.
func (o Options) Load() (*Config, error) {
	env, err := newEnvironment(o.EnvFile)
	if err != nil {
		return nil, err
	}

	var registry map[string]string
	if o.EndpointsFile != "" {
		registry, err = loadEndpointsFile(o.EndpointsFile, env)
	} else {
		registry = defaultRegistry(env)
	}
	if err != nil {
		return nil, err
	}
	if err := validateRegistry(registry); err != nil {
		return nil, err
	}

	identity := credentials.Identity{
		ClientKey:  env.get(EnvClientKey),
		PrivateKey: env.get(EnvPrivateKey),
	}
	if err := identity.Validate(); err != nil {
		return nil, fmt.Errorf("%s and %s must be set: %w", EnvClientKey, EnvPrivateKey, err)
	}

	return &Config{Registry: registry, Identity: identity}, nil
}

func defaultRegistry(env *environment) map[string]string {
	registry := make(map[string]string, len(DefaultEndpoints))
	for _, e := range DefaultEndpoints {
		registry[e.Name] = env.get(e.Env)
	}
	return registry
}

func loadEndpointsFile(path string, env *environment) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoints file: %w", err)
	}

	var f endpointsFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse endpoints file '%s': %w", path, err)
	}
	if len(f.Endpoints) == 0 {
		return nil, fmt.Errorf("endpoints file '%s' defines no endpoints", path)
	}

	registry := make(map[string]string, len(f.Endpoints))
	for name, value := range f.Endpoints {
		base, err := envsubst.Eval(value, env.get)
		if err != nil {
			return nil, fmt.Errorf("failed to expand base URL of endpoint '%s': %w", name, err)
		}
		registry[name] = base
	}
	return registry, nil
}

func validateRegistry(registry map[string]string) error {
	var errs []error
	for name, base := range registry {
		if !identifierPattern.MatchString(name) {
			errs = append(errs, fmt.Errorf("invalid endpoint identifier '%s': must match %s", name, identifierPattern))
			continue
		}
		if base == "" {
			continue
		}
		u, err := url.Parse(base)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid base URL of endpoint '%s': %w", name, err))
			continue
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid base URL of endpoint '%s': must be an absolute http or https URL", name))
		}
	}
	return errors.Join(errs...)
}

// environment resolves variables from the process environment first and
// from the dotenv file second. The process environment is never modified.
type environment struct {
	dotenv map[string]string
}

func newEnvironment(envFile string) (*environment, error) {
	env := &environment{dotenv: map[string]string{}}
	if envFile == "" {
		return env, nil
	}
	values, err := godotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return env, nil
		}
		return nil, fmt.Errorf("failed to read env file '%s': %w", envFile, err)
	}
	env.dotenv = values
	return env, nil
}

func (e *environment) get(key string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return e.dotenv[key]
}
