// Package config handles loading and validating Flostat core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (FLOSTAT_SECTION_KEY)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (broker credentials, FCM server key, Influx token)
//     should be set via environment variables rather than the file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Broker.Host)
package config
