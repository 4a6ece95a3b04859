// Package extract pulls Energy Performance Certificate records from the
// open data API and merges them incrementally into the data lake.
package extract

import (
	"fmt"

	"github.com/joho/godotenv"
)

// Credentials authenticate against the EPC open data API.
type Credentials struct {
	Username string
	Password string
}

// LoadCredentials reads EPC_USERNAME and EPC_PASSWORD from a dotenv file.
// Credentials live outside the project config so they never end up in
// version control.
func LoadCredentials(envFile string) (Credentials, error) {
	values, err := godotenv.Read(envFile)
	if err != nil {
		return Credentials{}, fmt.Errorf("reading credentials file %s: %w", envFile, err)
	}

	creds := Credentials{
		Username: values["EPC_USERNAME"],
		Password: values["EPC_PASSWORD"],
	}
	if creds.Username == "" || creds.Password == "" {
		return Credentials{}, fmt.Errorf("missing EPC_USERNAME or EPC_PASSWORD in %s", envFile)
	}
	return creds, nil
}
