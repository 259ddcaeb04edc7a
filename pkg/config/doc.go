/*
Package config loads the daemon's AppConfig (spec §6 "Configuration
collaborator") from a YAML file, then layers environment variables, matching
precedence CLI > env > file > defaults — the CLI layer is applied by
cmd/warpconnectd binding cobra/pflag flags on top of the value Load returns.

AppConfig is the single immutable value the rest of the daemon depends on;
nothing downstream re-reads the file or the environment. Validate enforces
the load-time Configuration error class from spec §7: a RoutingRule carrying
a protocol or port range is rejected outright (spec.md §9's Open Question,
resolved in SPEC_FULL.md §6: plain kernel routes cannot express L4 policy,
so such a rule is a config error rather than a silently-ignored field).
*/
package config
