package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/ninjapay/payments-reconciler/internal/provider"
)

func SetConfigOptionLogLevel(co *ConfigOption) error {
	// parse string to logLevel object
	logLevelStr := viper.GetString(co.Name)
	logLevel, err := log.ParseLevel(logLevelStr)
	if err != nil {
		return fmt.Errorf("couldn't parse log level: %w", err)
	}

	// update the configKey
	key, ok := co.ConfigKey.(*log.Level)
	if !ok {
		return fmt.Errorf("configKey has an invalid type %T", co.ConfigKey)
	}
	*key = logLevel

	// Log for debugging
	if IsExplicitlySet(co) {
		log.Debugf("Setting log level to: %q", logLevel)
		log.SetLevel(*key)
	} else {
		log.Debugf("Using default log level: %q", logLevel)
	}
	return nil
}

func SetCorsAllowedOrigins(co *ConfigOption) error {
	corsAllowedOriginsOptions := viper.GetString(co.Name)

	if corsAllowedOriginsOptions == "" {
		return fmt.Errorf("cors allowed addresses cannot be empty")
	}

	corsAllowedOrigins := strings.Split(corsAllowedOriginsOptions, ",")

	// validate addresses
	for _, address := range corsAllowedOrigins {
		_, err := url.ParseRequestURI(address)
		if err != nil {
			return fmt.Errorf("error parsing cors addresses: %w", err)
		}
		if address == "*" {
			log.Warn(`The value "*" for the CORS Allowed Origins is too permissive and not recommended.`)
		}
	}

	key, ok := co.ConfigKey.(*[]string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string slice, but got a %T instead", co.ConfigKey)
	}
	*key = corsAllowedOrigins

	return nil
}

// SetConfigOptionURLString validates the incoming value as a URL before
// assigning it.
func SetConfigOptionURLString(co *ConfigOption) error {
	u := viper.GetString(co.Name)

	if u == "" {
		return fmt.Errorf("%s cannot be empty", co.Name)
	}
	if !govalidator.IsURL(u) {
		return fmt.Errorf("%s is not a valid URL: %q", co.Name, u)
	}

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string, but got a %T instead", co.ConfigKey)
	}
	*key = u

	return nil
}

// SetConfigOptionInt64List parses a comma-separated list of positive
// integers, e.g. "60,180,900,1800".
func SetConfigOptionInt64List(co *ConfigOption) error {
	listStr := viper.GetString(co.Name)

	if listStr == "" {
		return fmt.Errorf("%s cannot be empty", co.Name)
	}

	parts := strings.Split(listStr, ",")
	list := make([]int64, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return fmt.Errorf("parsing %q as a list of integers: %w", listStr, err)
		}
		if value <= 0 {
			return fmt.Errorf("%s values must be positive, got %d", co.Name, value)
		}
		list = append(list, value)
	}

	key, ok := co.ConfigKey.(*[]int64)
	if !ok {
		return fmt.Errorf("the expected type for this config key is an int64 slice, but got a %T instead", co.ConfigKey)
	}
	*key = list

	return nil
}

// SetConfigOptionProviderNames parses a comma-separated list of payment
// provider names, validating each one against the adapters this binary ships.
func SetConfigOptionProviderNames(co *ConfigOption) error {
	listStr := viper.GetString(co.Name)

	if listStr == "" {
		return fmt.Errorf("polling providers cannot be empty")
	}

	knownProviders := map[string]bool{
		provider.StripeProviderName: true,
		provider.PayPalProviderName: true,
		provider.WebpayProviderName: true,
	}

	names := make([]string, 0)
	for _, part := range strings.Split(listStr, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if !knownProviders[name] {
			return fmt.Errorf("unknown payment provider %q", name)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return fmt.Errorf("polling providers cannot be empty")
	}

	key, ok := co.ConfigKey.(*[]string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string slice, but got a %T instead", co.ConfigKey)
	}
	*key = names

	return nil
}
