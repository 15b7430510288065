package os

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ahoy-jon/SQLContainer-sub000/errors"
)

// LoadEnvFile sets KEY=VALUE lines of filename as environment variables.
// A missing file is not an error.
func LoadEnvFile(filename string) error {
	_, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return errors.Wrap(err, "ERROR_IN_LOAD_ENV_FILE_STAT_FILENAME")
	}

	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "ERROR_IN_LOAD_ENV_FILE_OPEN")
	}
	defer func() {
		_ = file.Close()
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if err := os.Setenv(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])); err != nil {
			return errors.Wrap(err, "ERROR_IN_LOAD_ENV_FILE_SETENV")
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "ERROR_IN_LOAD_ENV_FILE_SCAN")
	}
	return nil
}

func GetEnvDefaultValue(key string, defaultValue string) string {
	value, isPresent := os.LookupEnv(key)
	if !isPresent {
		value = defaultValue
	}
	return value
}

func GetEnvDefaultValueAsInt(key string, defaultValue int) (int, error) {
	value, isPresent := os.LookupEnv(key)
	if !isPresent {
		return defaultValue, nil
	}
	valueInt, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, errors.Wrapf(err, "ENV_VALUE_IS_NOT_INT:%s", key)
	}
	return valueInt, nil
}

func GetEnvDefaultValueAsBool(key string, defaultValue bool) bool {
	value, isPresent := os.LookupEnv(key)
	if !isPresent {
		return defaultValue
	}
	return (strings.ToUpper(value) == "TRUE") || (value == "1")
}

// GetEnvDefaultValueAsDuration parses values such as "10s" or "500ms".
func GetEnvDefaultValueAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, isPresent := os.LookupEnv(key)
	if !isPresent {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, errors.Wrapf(err, "ENV_VALUE_IS_NOT_DURATION:%s", key)
	}
	return d, nil
}
