package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	EnvironmentVariablePrefix = "KVPROXY_"

	// fileSuffix is appended to a flag's env var name to instead read the
	// value from the named file.
	fileSuffix = "_FILE"
)

// SetFlagsFromEnvVariables sets each flag from an env variable whose name
// starts with `KVPROXY_`. If the variable is absent but the same name suffixed
// with `_FILE` is present then the flag is set from the contents of that
// file, less any trailing newlines.
func SetFlagsFromEnvVariables(fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		envVar := flagToEnvVarName(f)
		if val, present := os.LookupEnv(envVar); present {
			if err := fs.Set(f.Name, val); err != nil {
				errs = append(errs, fmt.Errorf("setting %s from %s: %w", f.Name, envVar, err))
			}
			return
		}
		if strings.HasSuffix(envVar, fileSuffix) {
			// foo_file would otherwise read FOO_FILE_FILE
			return
		}
		if path, present := os.LookupEnv(envVar + fileSuffix); present {
			contents, err := os.ReadFile(path)
			if err != nil {
				errs = append(errs, fmt.Errorf("reading %s: %w", envVar+fileSuffix, err))
				return
			}
			// secrets files usually end with a newline
			val := strings.TrimRight(string(contents), "\r\n")
			if err := fs.Set(f.Name, val); err != nil {
				errs = append(errs, fmt.Errorf("setting %s from %s: %w", f.Name, envVar+fileSuffix, err))
			}
		}
	})
	return errors.Join(errs...)
}

// LoadDotEnv populates the environment from a .env file at path, if one
// exists. Variables already present in the environment take precedence.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func flagToEnvVarName(f *pflag.Flag) string {
	return fmt.Sprintf("%s%s", EnvironmentVariablePrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")))
}
