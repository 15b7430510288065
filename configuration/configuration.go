package configuration

import (
	"bytes"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/log"
	utilsOs "github.com/ahoy-jon/SQLContainer-sub000/utils/os"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPageLength   = 100
	DefaultCacheRatio   = 2
	DefaultSizeValidity = 10 * time.Second
)

type DatabaseConfiguration struct {
	NameId             string `yaml:"nameid"`
	DatabaseType       string `yaml:"database_type"`
	Address            string `yaml:"address"`
	UserName           string `yaml:"user_name"`
	UserPassword       string `yaml:"user_password"`
	DatabaseName       string `yaml:"database_name"`
	ConnectionOptions  string `yaml:"connection_options,omitempty"`
	MaxOpenConnections int    `yaml:"max_open_connections,omitempty"`
	MustConnected      bool   `yaml:"must_connected,omitempty"`
}

// ContainerConfiguration holds the defaults applied to every new container.
type ContainerConfiguration struct {
	PageLength   int           `yaml:"page_length"`
	CacheRatio   int           `yaml:"cache_ratio"`
	SizeValidity time.Duration `yaml:"size_validity"`
	AutoCommit   bool          `yaml:"auto_commit"`
}

type DXConfiguration struct {
	Databases map[string]*DatabaseConfiguration `yaml:"databases"`
	Container ContainerConfiguration            `yaml:"container"`
}

func Default() *DXConfiguration {
	return &DXConfiguration{
		Databases: map[string]*DatabaseConfiguration{},
		Container: ContainerConfiguration{
			PageLength:   DefaultPageLength,
			CacheRatio:   DefaultCacheRatio,
			SizeValidity: DefaultSizeValidity,
		},
	}
}

// Load reads a YAML configuration file and applies environment overrides.
func Load(path string) (*DXConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "CONFIGURATION_FILE_READ_ERROR:%s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "CONFIGURATION_FILE:%s", path)
	}
	log.Log.Infof("Configuration %s loaded (%d databases)", path, len(c.Databases))
	return c, nil
}

// Parse decodes YAML over the defaults, rejecting unknown fields, then applies
// environment overrides and validates the result.
func Parse(data []byte) (*DXConfiguration, error) {
	c := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return nil, errors.Wrap(err, "CONFIGURATION_PARSE_ERROR")
	}
	if c.Databases == nil {
		c.Databases = map[string]*DatabaseConfiguration{}
	}
	for nameId, d := range c.Databases {
		if d == nil {
			return nil, errors.Validationf("DATABASE_CONFIGURATION_IS_EMPTY:%s", nameId)
		}
		if d.NameId == "" {
			d.NameId = nameId
		}
	}
	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// EnvPrefix returns the prefix of the environment variables overriding a
// database entry: DB_<NAMEID>_, upper cased with dashes as underscores.
func EnvPrefix(nameId string) string {
	return "DB_" + strings.ToUpper(strings.ReplaceAll(nameId, "-", "_")) + "_"
}

// ApplyEnv overrides values from the environment: DB_<NAMEID>_ADDRESS and the
// like for databases, CONTAINER_PAGE_LENGTH and the like for container defaults.
func (c *DXConfiguration) ApplyEnv() (err error) {
	for _, nameId := range c.DatabaseNameIds() {
		d := c.Databases[nameId]
		p := EnvPrefix(nameId)
		d.DatabaseType = utilsOs.GetEnvDefaultValue(p+"DATABASE_TYPE", d.DatabaseType)
		d.Address = utilsOs.GetEnvDefaultValue(p+"ADDRESS", d.Address)
		d.UserName = utilsOs.GetEnvDefaultValue(p+"USER_NAME", d.UserName)
		d.UserPassword = utilsOs.GetEnvDefaultValue(p+"USER_PASSWORD", d.UserPassword)
		d.DatabaseName = utilsOs.GetEnvDefaultValue(p+"DATABASE_NAME", d.DatabaseName)
		d.ConnectionOptions = utilsOs.GetEnvDefaultValue(p+"CONNECTION_OPTIONS", d.ConnectionOptions)
		d.MustConnected = utilsOs.GetEnvDefaultValueAsBool(p+"MUST_CONNECTED", d.MustConnected)
		d.MaxOpenConnections, err = utilsOs.GetEnvDefaultValueAsInt(p+"MAX_OPEN_CONNECTIONS", d.MaxOpenConnections)
		if err != nil {
			return err
		}
	}

	c.Container.PageLength, err = utilsOs.GetEnvDefaultValueAsInt("CONTAINER_PAGE_LENGTH", c.Container.PageLength)
	if err != nil {
		return err
	}
	c.Container.CacheRatio, err = utilsOs.GetEnvDefaultValueAsInt("CONTAINER_CACHE_RATIO", c.Container.CacheRatio)
	if err != nil {
		return err
	}
	c.Container.SizeValidity, err = utilsOs.GetEnvDefaultValueAsDuration("CONTAINER_SIZE_VALIDITY", c.Container.SizeValidity)
	if err != nil {
		return err
	}
	c.Container.AutoCommit = utilsOs.GetEnvDefaultValueAsBool("CONTAINER_AUTO_COMMIT", c.Container.AutoCommit)
	return nil
}

func (c *DXConfiguration) Validate() error {
	if c.Container.PageLength <= 0 {
		return errors.Validationf("CONTAINER_PAGE_LENGTH_MUST_BE_POSITIVE:%d", c.Container.PageLength)
	}
	if c.Container.CacheRatio <= 0 {
		return errors.Validationf("CONTAINER_CACHE_RATIO_MUST_BE_POSITIVE:%d", c.Container.CacheRatio)
	}
	if c.Container.SizeValidity < 0 {
		return errors.Validationf("CONTAINER_SIZE_VALIDITY_MUST_NOT_BE_NEGATIVE:%s", c.Container.SizeValidity)
	}
	for _, nameId := range c.DatabaseNameIds() {
		d := c.Databases[nameId]
		if d.DatabaseType == "" {
			return errors.Validationf("DATABASE_TYPE_NOT_CONFIGURED:%s", nameId)
		}
		if d.MaxOpenConnections < 0 {
			return errors.Validationf("MAX_OPEN_CONNECTIONS_MUST_NOT_BE_NEGATIVE:%s", nameId)
		}
	}
	return nil
}

// DatabaseNameIds lists the configured databases in name order.
func (c *DXConfiguration) DatabaseNameIds() []string {
	ids := make([]string, 0, len(c.Databases))
	for id := range c.Databases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *DXConfiguration) Database(nameId string) (*DatabaseConfiguration, error) {
	d, ok := c.Databases[nameId]
	if !ok {
		return nil, errors.Validationf("DATABASE_CONFIGURATION_NOT_FOUND:%s", nameId)
	}
	return d, nil
}
