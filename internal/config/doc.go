// Package config handles configuration loading for mythic-registry.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from MYTHIC_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/mythic/registry.yaml
//  3. ~/.config/mythic/registry.yaml
//
// Values can reference environment variables as ${VAR_NAME}. Keys missing
// from the file keep the values from Default.
//
// # Configuration Sections
//
//	server:
//	  grpc_addr: "localhost:50051"
//	  http_addr: "localhost:8080"
//
//	database:
//	  driver: "sqlite"             # sqlite, bolt, memory
//	  path: "/var/lib/mythic/registry.db"
//
//	registry:
//	  program_id: "myThHf7Ec8WEFiVFeUEiuq1KPPmx3udRF7hehPQBaa3"
//	  addressing: "counter"        # counter, name
//	  limits:
//	    max_name_len: 30
//	    max_label_len: 50
//	    max_description_len: 100
//	    max_content_type_len: 20
//	    max_value_len: 100
//	    max_collections: 5
//	    max_items: 10
//
//	auth:
//	  signature_max_age: "5m"
//	  nonce_cache_size: 10000
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
