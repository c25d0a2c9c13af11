package cmd

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing vodforge configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the effective configuration",
	Long: `Dump the effective configuration values in YAML format.

This shows all configuration options after applying the config file and
environment variables. Redirect the output to a file to create a
configuration template:

  vodforge config dump > config.yaml

Configuration can be set via:
  - Config file (config.yaml in ., ./configs, /etc/vodforge, $HOME/.vodforge)
  - Environment variables (VODFORGE_SERVER_PORT, VODFORGE_QUEUE_CONCURRENCY, etc.)
  - Command-line flags (for some options)

Environment variables use the VODFORGE_ prefix and underscores for nesting.
Example: queue.max_retry -> VODFORGE_QUEUE_MAX_RETRY`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a config struct to a map keyed by mapstructure tags,
// formatting durations for human readability.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = fieldType.Name
		}

		switch value := field.Interface().(type) {
		case time.Duration:
			result[key] = value.String()
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(field.Interface())
			} else {
				result[key] = field.Interface()
			}
		}
	}
	return result
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	yamlData, err := yaml.Marshal(toMap(cfg))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# vodforge Configuration File")
	fmt.Println("# ===========================")
	fmt.Println("#")
	fmt.Println("# Values reflect the current config file and environment.")
	fmt.Println("# Duration format: 30s, 5m, 1h")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides:")
	fmt.Println("#   VODFORGE_SERVER_HOST, VODFORGE_SERVER_PORT")
	fmt.Println("#   VODFORGE_DATABASE_DSN")
	fmt.Println("#   VODFORGE_QUEUE_CONCURRENCY, VODFORGE_QUEUE_MAX_RETRY")
	fmt.Println("#   VODFORGE_LOGGING_LEVEL, VODFORGE_LOGGING_FORMAT")
	fmt.Println("#   etc.")
	fmt.Println("#")
	fmt.Println("")
	fmt.Print(string(yamlData))

	return nil
}
