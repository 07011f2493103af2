package gcp

import (
	"strings"

	"google.golang.org/api/option"
)

// Credentials is either inline service-account JSON or a path to a key file.
// Empty means application default credentials.
type Credentials string

func (c Credentials) ClientOptions() []option.ClientOption {
	creds := strings.TrimSpace(string(c))
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}
