package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug              = "debug"
	ConfigBookPath           = "book-path"
	ConfigBookRequired       = "book-required"
	ConfigTTableSize         = "ttable-size"
	ConfigTTableMemFraction  = "ttable-mem-fraction"
	ConfigDynamicOrderMaxPly = "dynamic-order-max-ply"
	ConfigNodeBudget         = "node-budget"
	ConfigTimeLimit          = "time-limit"
	ConfigCPUProfile         = "cpu-profile"
	ConfigMemProfile         = "mem-profile"
)

// Config wraps a viper instance. Settings come from command-line flags,
// then CONNECT4_-prefixed environment variables (CONNECT4_BOOK_PATH and
// so on), then the defaults below.
type Config struct {
	*viper.Viper
	args []string
}

func DefaultConfig() *Config {
	c := &Config{Viper: viper.New()}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigBookPath, "./data/7x6.book")
	c.SetDefault(ConfigBookRequired, false)
	c.SetDefault(ConfigTTableSize, 0)
	c.SetDefault(ConfigTTableMemFraction, 0.0)
	c.SetDefault(ConfigDynamicOrderMaxPly, 42)
	c.SetDefault(ConfigNodeBudget, 0)
	c.SetDefault(ConfigTimeLimit, "0s")
	c.SetDefault(ConfigCPUProfile, "")
	c.SetDefault(ConfigMemProfile, "")
}

// Load parses command-line arguments. Commands that take flags of their
// own register them with extraFlags; all flags end up readable through
// the viper getters. Arguments left over after the flags are available
// from Args.
func (c *Config) Load(args []string, extraFlags ...func(fs *pflag.FlagSet)) error {
	if c.Viper == nil {
		c.Viper = viper.New()
		c.setDefaults()
	}
	fs := pflag.NewFlagSet("connect4", pflag.ContinueOnError)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigBookPath, "./data/7x6.book", "opening book file; .db or .sqlite files are read as SQLite")
	fs.Bool(ConfigBookRequired, false, "fail if the opening book cannot be loaded")
	fs.Int(ConfigTTableSize, 0, "transposition table capacity (rounded up to a prime); 0 for the default")
	fs.Float64(ConfigTTableMemFraction, 0, "size the transposition table to this fraction of system memory")
	fs.Int(ConfigDynamicOrderMaxPly, 42, "use threat-count move ordering below this many stones")
	fs.Uint64(ConfigNodeBudget, 0, "give up a solve after this many nodes; 0 for no limit")
	fs.Duration(ConfigTimeLimit, 0, "give up a solve after this long; 0 for no limit")
	fs.String(ConfigCPUProfile, "", "write a CPU profile to this file")
	fs.String(ConfigMemProfile, "", "write a memory profile to this file")
	for _, f := range extraFlags {
		f(fs)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	c.SetEnvPrefix("connect4")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()
	c.args = fs.Args()
	return nil
}

// Args returns the positional arguments left after flag parsing.
func (c *Config) Args() []string {
	return c.args
}

// AdjustRelativePaths makes relative data paths relative to basepath
// (usually the executable's directory) when they do not exist relative to
// the working directory.
func (c *Config) AdjustRelativePaths(basepath string) {
	for _, key := range []string{ConfigBookPath} {
		p := c.GetString(key)
		if p == "" || filepath.IsAbs(p) {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			continue
		}
		c.Set(key, filepath.Join(basepath, p))
	}
}
