// Package config loads sonto configuration.
//
// Configuration is assembled in layers: built-in defaults, then each YAML or
// JSON file added to the Loader, then SONTO_* environment variables. Every
// file layer is checked against an embedded JSON Schema before it is merged,
// and the merged result is checked again by Config.Validate.
//
//	loader := config.NewLoader()
//	loader.AddLayer("sonto.yaml")
//	cfg, err := loader.Load()
//	if err != nil {
//		return err
//	}
//
// Recognized environment variables:
//
//	SONTO_ONTOLOGY_SOURCE, SONTO_ONTOLOGY_ARCHIVE_ENTRY
//	SONTO_LOG_LEVEL, SONTO_LOG_FORMAT
//	SONTO_METRICS_ENABLED, SONTO_METRICS_PORT
//	SONTO_NATS_URLS (comma separated), SONTO_NATS_USERNAME, SONTO_NATS_PASSWORD, SONTO_NATS_TOKEN
//	SONTO_SERVICE_ENABLED, SONTO_SERVICE_SUBJECT_PREFIX,
//	SONTO_SERVICE_SNAPSHOT_INTERVAL, SONTO_SERVICE_INSTANCE_ID
//
// Load errors are fatal: a process must not start on a configuration it
// could not read.
package config
