package utils

import (
	"fmt"
	"go/types"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ConfigOption describes one configuration knob: a cobra flag bound to an
// environment variable through viper, written into ConfigKey when SetValue
// runs.
type ConfigOption struct {
	// Name is the flag name, e.g. "database-dsn".
	Name string
	// EnvVar is the environment variable bound to the flag. Defaults to the
	// CONSTANT_CASE transform of Name, e.g. "DATABASE_DSN".
	EnvVar string
	Usage  string
	// OptType drives the flag type and the default assignment in SetValue.
	// Only String, Int and Bool are used in this project.
	OptType     types.BasicKind
	FlagDefault interface{}
	Required    bool
	// ConfigKey points at the field the resolved value is written into.
	ConfigKey interface{}
	// CustomSetValue overrides the default assignment. It reads the viper
	// value, validates it and writes into ConfigKey.
	CustomSetValue func(co *ConfigOption) error

	flag *pflag.Flag
}

// ConfigOptions is a group of ConfigOption that is initialized and set
// together.
type ConfigOptions []*ConfigOption

// Init registers every option as a persistent flag of cmd and binds it to
// viper.
func (cos ConfigOptions) Init(cmd *cobra.Command) error {
	for _, co := range cos {
		if err := co.Init(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Require calls Require on every option.
func (cos ConfigOptions) Require() {
	for _, co := range cos {
		co.Require()
	}
}

// SetValues calls SetValue on every option.
func (cos ConfigOptions) SetValues() error {
	for _, co := range cos {
		if err := co.SetValue(); err != nil {
			return fmt.Errorf("setting value of config option %q: %w", co.Name, err)
		}
	}
	return nil
}

// Init registers the option as a persistent flag of cmd and binds it to its
// environment variable.
func (co *ConfigOption) Init(cmd *cobra.Command) error {
	if co.EnvVar == "" {
		co.EnvVar = strings.ToUpper(strings.ReplaceAll(co.Name, "-", "_"))
	}

	if err := co.setFlag(cmd); err != nil {
		return err
	}

	if err := viper.BindPFlag(co.Name, co.flag); err != nil {
		return fmt.Errorf("binding flag %q: %w", co.Name, err)
	}
	if err := viper.BindEnv(co.Name, co.EnvVar); err != nil {
		return fmt.Errorf("binding env var %q: %w", co.EnvVar, err)
	}
	return nil
}

// Require aborts the program when a required option resolves to an empty
// value.
func (co *ConfigOption) Require() {
	if co.Required && viper.GetString(co.Name) == "" {
		log.Fatalf("Invalid config: %s is missing. Specify --%s on the command line or set the %s environment variable.", co.Name, co.Name, co.EnvVar)
	}
}

// SetValue writes the resolved value into ConfigKey, delegating to
// CustomSetValue when one is provided.
func (co *ConfigOption) SetValue() error {
	if co.CustomSetValue != nil {
		return co.CustomSetValue(co)
	}
	if co.ConfigKey == nil {
		return nil
	}

	switch co.OptType {
	case types.String:
		key, ok := co.ConfigKey.(*string)
		if !ok {
			return fmt.Errorf("config key must be a *string, but got a %T instead", co.ConfigKey)
		}
		*key = viper.GetString(co.Name)
	case types.Int:
		key, ok := co.ConfigKey.(*int)
		if !ok {
			return fmt.Errorf("config key must be a *int, but got a %T instead", co.ConfigKey)
		}
		*key = viper.GetInt(co.Name)
	case types.Bool:
		key, ok := co.ConfigKey.(*bool)
		if !ok {
			return fmt.Errorf("config key must be a *bool, but got a %T instead", co.ConfigKey)
		}
		*key = viper.GetBool(co.Name)
	default:
		return fmt.Errorf("unsupported option type %v", co.OptType)
	}
	return nil
}

// UsageText is the flag help text, suffixed with the environment variable
// name.
func (co *ConfigOption) UsageText() string {
	return fmt.Sprintf("%s (%s)", co.Usage, co.EnvVar)
}

// IsExplicitlySet reports whether the option was set through the command line
// or the environment, as opposed to carrying its default.
func IsExplicitlySet(co *ConfigOption) bool {
	if co.flag != nil && co.flag.Changed {
		return true
	}
	_, ok := os.LookupEnv(co.EnvVar)
	return ok
}

func (co *ConfigOption) setFlag(cmd *cobra.Command) error {
	switch co.OptType {
	case types.String:
		// pflag always needs a default, so a missing one becomes "".
		if co.FlagDefault == nil {
			co.FlagDefault = ""
		}
		cmd.PersistentFlags().String(co.Name, co.FlagDefault.(string), co.UsageText())
	case types.Int:
		cmd.PersistentFlags().Int(co.Name, co.FlagDefault.(int), co.UsageText())
	case types.Bool:
		cmd.PersistentFlags().Bool(co.Name, co.FlagDefault.(bool), co.UsageText())
	default:
		return fmt.Errorf("config option %q has an unsupported type %v", co.Name, co.OptType)
	}

	co.flag = cmd.PersistentFlags().Lookup(co.Name)
	return nil
}
