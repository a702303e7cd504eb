package internal

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Flag binds a cobra flag to a package-level configuration value. The default
// is taken from the named environment variable when it is set.
type Flag struct {
	Name   string
	EnvVar string
	Usage  string

	String    *string
	StringDef string

	Uint    *uint
	UintDef uint

	Uint16    *uint16
	Uint16Def uint16
}

// Flag definitions.
var (
	EnvFlag = Flag{
		Name:      "env",
		EnvVar:    "TFTP_ENV",
		Usage:     "deployment environment (dev|prod)",
		String:    &Env,
		StringDef: "dev",
	}
	LogLevelFlag = Flag{
		Name:      "log-level",
		EnvVar:    "TFTP_LOG_LEVEL",
		Usage:     "log verbosity (trace|debug|info|warn|error)",
		String:    &LogLevel,
		StringDef: "info",
	}

	PortFlag = Flag{
		Name:      "port",
		EnvVar:    "TFTP_PORT",
		Usage:     "UDP port of the rendezvous socket",
		Uint16:    &Port,
		Uint16Def: 69,
	}
	RootDirFlag = Flag{
		Name:      "root",
		EnvVar:    "TFTP_ROOT",
		Usage:     "directory served to clients",
		String:    &RootDir,
		StringDef: ".",
	}

	TimeoutMSFlag = Flag{
		Name:    "timeout-ms",
		EnvVar:  "TFTP_TIMEOUT_MS",
		Usage:   "per-attempt wait for a peer response, in milliseconds",
		Uint:    &TimeoutMS,
		UintDef: 5000,
	}
	MaxRetriesFlag = Flag{
		Name:    "max-retries",
		EnvVar:  "TFTP_MAX_RETRIES",
		Usage:   "retransmissions of one block before a transfer is abandoned",
		Uint:    &MaxRetries,
		UintDef: 3,
	}
)

// RegisterCommandFlags registers the given flags on the command.
func RegisterCommandFlags(cmd *cobra.Command, flags []*Flag) error {
	for _, f := range flags {
		if err := f.register(cmd); err != nil {
			return errors.Wrapf(err, "register flag %s failed", f.Name)
		}
	}
	return nil
}

func (f *Flag) register(cmd *cobra.Command) error {
	fs := cmd.PersistentFlags()
	switch {
	case f.String != nil:
		fs.StringVar(f.String, f.Name, envString(f.EnvVar, f.StringDef), f.Usage)
	case f.Uint != nil:
		def, err := envUint(f.EnvVar, uint64(f.UintDef), strconv.IntSize)
		if err != nil {
			return err
		}
		fs.UintVar(f.Uint, f.Name, uint(def), f.Usage)
	case f.Uint16 != nil:
		def, err := envUint(f.EnvVar, uint64(f.Uint16Def), 16)
		if err != nil {
			return err
		}
		fs.Uint16Var(f.Uint16, f.Name, uint16(def), f.Usage)
	default:
		return errors.Errorf("flag %s has no value target", f.Name)
	}
	return nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envUint(key string, def uint64, bits int) (uint64, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def, nil
	}
	parsed, err := strconv.ParseUint(v, 10, bits)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s failed", key)
	}
	return parsed, nil
}
