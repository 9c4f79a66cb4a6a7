// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Two roots exist: AnalyzerConfig for the tracker and GeneratorConfig for the
// mock price source.
package config
