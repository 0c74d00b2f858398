package secrets

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// DotEnvLoader returns a Loader that resolves each key from the dotenv
// file at path, then the process environment, then seed. A missing file is
// not an error. Empty values are omitted.
func DotEnvLoader(path string, seed map[string]string, keys ...string) Loader {
	return func() (map[string]string, error) {
		file, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			switch {
			case file[k] != "":
				vals[k] = file[k]
			case os.Getenv(k) != "":
				vals[k] = os.Getenv(k)
			case seed[k] != "":
				vals[k] = seed[k]
			}
		}
		return vals, nil
	}
}
