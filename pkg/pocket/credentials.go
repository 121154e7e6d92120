package pocket

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Credentials hold the consumer key and the user's access token. They live in
// a two-line file: consumer key first, access token second.
type Credentials struct {
	ConsumerKey string
	AccessToken string
}

// LoadCredentials reads the credentials file. A missing or incomplete file is
// a startup precondition failure for the caller.
func LoadCredentials(path string) (Credentials, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("opening credentials file: %w", err)
	}
	defer fh.Close()

	var lines []string
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() && len(lines) < 2 {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return Credentials{}, fmt.Errorf("reading credentials file: %w", err)
	}

	if len(lines) < 2 || lines[0] == "" || lines[1] == "" {
		return Credentials{}, fmt.Errorf("credentials file %s must contain a consumer key and an access token on separate lines", path)
	}

	return Credentials{ConsumerKey: lines[0], AccessToken: lines[1]}, nil
}

// Save writes the credentials file with owner-only permissions.
func (c Credentials) Save(path string) error {
	if c.ConsumerKey == "" || c.AccessToken == "" {
		return fmt.Errorf("refusing to save incomplete credentials")
	}
	data := c.ConsumerKey + "\n" + c.AccessToken + "\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	return nil
}
