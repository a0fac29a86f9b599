// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package configuration

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"
)

var ErrInvalidConfig = errors.New("invalid config")

// ConcernConfig is a concern as written in configuration sources, together
// with the ABI of its contract.
type ConcernConfig struct {
	Contract string `koanf:"contract"`
	User     string `koanf:"user"`
	Abi      string `koanf:"abi"`
}

func ConcernConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".contract", "", "concern's contract address")
	f.String(prefix+".user", "", "concern's user address")
	f.String(prefix+".abi", "", "path to the JSON ABI of the concern's contract")
}

func (c *ConcernConfig) isSet() bool {
	return c.Contract != "" || c.User != "" || c.Abi != ""
}

// resolve checks that the concern is well formed, either having all
// arguments or none. It returns false if the concern is absent.
func (c *ConcernConfig) resolve() (Concern, ConcernAbi, bool, error) {
	if !c.isSet() {
		return Concern{}, ConcernAbi{}, false, nil
	}
	if c.Contract == "" {
		return Concern{}, ConcernAbi{}, false, fmt.Errorf("%w: concern's contract should be specified", ErrInvalidConfig)
	}
	if c.User == "" {
		return Concern{}, ConcernAbi{}, false, fmt.Errorf("%w: concern's user should be specified", ErrInvalidConfig)
	}
	if c.Abi == "" {
		return Concern{}, ConcernAbi{}, false, fmt.Errorf("%w: concern's abi should be specified", ErrInvalidConfig)
	}
	if !common.IsHexAddress(c.Contract) {
		return Concern{}, ConcernAbi{}, false, fmt.Errorf("%w: failed to parse contract address %q", ErrInvalidConfig, c.Contract)
	}
	if !common.IsHexAddress(c.User) {
		return Concern{}, ConcernAbi{}, false, fmt.Errorf("%w: failed to parse user address %q", ErrInvalidConfig, c.User)
	}
	concern := Concern{
		ContractAddress: common.HexToAddress(c.Contract),
		UserAddress:     common.HexToAddress(c.User),
	}
	return concern, ConcernAbi{Abi: c.Abi}, true, nil
}

type Config struct {
	URL         string          `koanf:"url"`
	Testing     bool            `koanf:"testing"`
	MaxDelay    time.Duration   `koanf:"max-delay"`
	WarnDelay   time.Duration   `koanf:"warn-delay"`
	ChainID     uint64          `koanf:"chain-id"`
	WorkingPath string          `koanf:"working-path"`
	MainConcern ConcernConfig   `koanf:"main-concern"`
	Concerns    []ConcernConfig `koanf:"concerns"`
}

var ConfigDefault = Config{
	URL:         "",
	Testing:     false,
	MaxDelay:    500 * time.Second,
	WarnDelay:   100 * time.Second,
	ChainID:     0,
	WorkingPath: "",
	MainConcern: ConcernConfig{},
	Concerns:    nil,
}

func ConfigAddOptions(f *flag.FlagSet) {
	f.String("url", ConfigDefault.URL, "url for the Ethereum node")
	f.Bool("testing", ConfigDefault.Testing, "indicates the use of a testing environment (skips node delay checks)")
	f.Duration("max-delay", ConfigDefault.MaxDelay, "maximal acceptable delay of the Ethereum node's latest block")
	f.Duration("warn-delay", ConfigDefault.WarnDelay, "delay of the Ethereum node's latest block that triggers warnings")
	f.Uint64("chain-id", ConfigDefault.ChainID, "if set other than 0, the chain id reported by the node must match")
	f.String("working-path", ConfigDefault.WorkingPath, "directory for the dispatcher's local files")
	ConcernConfigAddOptions("main-concern", f)
}

// Configuration is the validated form of Config.
type Configuration struct {
	URL         string
	Testing     bool
	MaxDelay    time.Duration
	WarnDelay   time.Duration
	ChainID     uint64
	WorkingPath string
	MainConcern Concern
	// Concerns holds the extra concerns followed by the main concern.
	Concerns []Concern
	Abis     map[Concern]ConcernAbi
}

func (c *Config) Validate() error {
	_, err := c.Resolve()
	return err
}

func (c *Config) Resolve() (*Configuration, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("%w: need to provide url (config file, command line or env)", ErrInvalidConfig)
	}
	if c.WorkingPath == "" {
		return nil, fmt.Errorf("%w: need to provide working path (config file, command line or env)", ErrInvalidConfig)
	}
	if c.MaxDelay < c.WarnDelay {
		return nil, fmt.Errorf("%w: max-delay (%v) should be larger than warn-delay (%v)", ErrInvalidConfig, c.MaxDelay, c.WarnDelay)
	}
	mainConcern, mainAbi, ok, err := c.MainConcern.resolve()
	if err != nil {
		return nil, fmt.Errorf("main concern: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: need to provide main concern (config file, command line or env)", ErrInvalidConfig)
	}
	resolved := &Configuration{
		URL:         c.URL,
		Testing:     c.Testing,
		MaxDelay:    c.MaxDelay,
		WarnDelay:   c.WarnDelay,
		ChainID:     c.ChainID,
		WorkingPath: c.WorkingPath,
		MainConcern: mainConcern,
		Abis:        make(map[Concern]ConcernAbi),
	}
	for i := range c.Concerns {
		concern, abi, ok, err := c.Concerns[i].resolve()
		if err != nil {
			return nil, fmt.Errorf("concern %v: %w", i, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: concern %v is empty", ErrInvalidConfig, i)
		}
		resolved.Abis[concern] = abi
		resolved.Concerns = append(resolved.Concerns, concern)
	}
	resolved.Abis[mainConcern] = mainAbi
	resolved.Concerns = append(resolved.Concerns, mainConcern)
	return resolved, nil
}

// AbiFor finds the ABI configured for a contract, regardless of the user
// half of the concern.
func (c *Configuration) AbiFor(contract common.Address) (ConcernAbi, bool) {
	for concern, abi := range c.Abis {
		if concern.ContractAddress == contract {
			return abi, true
		}
	}
	return ConcernAbi{}, false
}

// ResolvePath makes a relative path relative to the working path.
func (c *Configuration) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.WorkingPath, path)
}

func (c *Configuration) String() string {
	return fmt.Sprintf(
		"{url: %v, testing: %v, max delay: %v, warning delay: %v, main concern: %v, number of extra concerns: %v}",
		c.URL, c.Testing, c.MaxDelay, c.WarnDelay, c.MainConcern, len(c.Concerns)-1,
	)
}
