/*
Package config loads limiton registry policies from files and the
environment.

# Overview

config wraps a map[string]any and provides typed accessor methods that
handle missing keys and type mismatches gracefully by returning default
values. Policies live under a top-level "registries" map keyed by
registry name:

	registries:
	  db-pool:
	    capacity: 4
	    overflow: pump
	  printer:
	    capacity: 1
	    strict_args: true
	  workers: 8   # bare capacity, reject mode

# Basic Usage

	cfg, err := config.FromFile("limits.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	policy, err := cfg.Policy("db-pool")
	if err != nil {
	    log.Fatal(err) // ErrPolicyNotFound or *limiton.ConfigurationError
	}
	reg, err := limiton.New[Conn](policy, limiton.WithName("db-pool"))

# Environment

PolicyFromEnv reads CAPACITY, OVERFLOW and STRICT_ARGS under a prefix.
LoadDotenv fills the environment from .env files first:

	_ = config.LoadDotenv()
	policy, err := config.PolicyFromEnv(config.EnvPrefix("db-pool")) // LIMITON_DB_POOL_

# Validation

Every decoded policy goes through the same checks as limiton.New:
capacities must be integral and at least one, and overflow must be
"reject" or "pump".

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation.
*/
package config
