package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const (
	credentialsFile = "credentials.json"
	oobRedirectURL  = "urn:ietf:wg:oauth:2.0:oob"

	// DatastoreScope grants read/write access to Cloud Firestore.
	DatastoreScope = "https://www.googleapis.com/auth/datastore"
)

// Credentials selects how the Firestore client authenticates.
type Credentials struct {
	// ServiceAccountFile is a service-account JSON key. It takes precedence.
	ServiceAccountFile string
	// ClientID and ClientSecret identify the OAuth client for user tokens.
	ClientID     string
	ClientSecret string
	// Account names the saved user token, token-<Account>.json.
	Account string
}

// ClientOptions builds the option.ClientOption set for creds. With no
// credentials configured it returns no options, leaving the client to use
// application default credentials or the emulator.
func ClientOptions(ctx context.Context, creds Credentials) ([]option.ClientOption, error) {
	if creds.ServiceAccountFile != "" {
		b, err := os.ReadFile(creds.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account file: %w", err)
		}
		c, err := google.CredentialsFromJSON(ctx, b, DatastoreScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account file: %w", err)
		}
		return []option.ClientOption{option.WithCredentials(c)}, nil
	}

	if creds.Account == "" {
		return nil, nil
	}

	config, err := getOAuthConfig(creds.ClientID, creds.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}
	token, err := tokenFromFile(TokenFile(creds.Account))
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", creds.Account, err)
	}
	return []option.ClientOption{option.WithTokenSource(config.TokenSource(ctx, token))}, nil
}

// TokenFile is the file a user token for account is saved to.
func TokenFile(account string) string {
	return fmt.Sprintf("token-%s.json", account)
}

// GetOAuthConfigForAuthFlow returns the OAuth client the auth command sends
// the user through.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig builds the installed-app OAuth client for the Datastore
// scope. A client id and secret win over credentials.json in the working
// directory.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	var config *oauth2.Config
	switch {
	case clientID != "" && clientSecret != "":
		config = &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{DatastoreScope},
			Endpoint:     google.Endpoint,
		}
	default:
		b, err := os.ReadFile(credentialsFile)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.New("no OAuth client configured: set firestore.client_id and firestore.client_secret (or GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET), or add credentials.json")
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read %s: %w", credentialsFile, err)
		}
		if config, err = google.ConfigFromJSON(b, DatastoreScope); err != nil {
			return nil, fmt.Errorf("unable to parse %s: %w", credentialsFile, err)
		}
	}
	config.RedirectURL = oobRedirectURL
	return config, nil
}

// TokenFromWeb exchanges the code pasted by the user for a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// SaveToken writes token to path, readable by the owner only.
func SaveToken(path string, token *oauth2.Token) error {
	b, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("unable to encode token: %w", err)
	}
	if err := os.WriteFile(path, b, 0600); err != nil {
		return fmt.Errorf("unable to write token file: %w", err)
	}
	return nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(b, &token); err != nil {
		return nil, fmt.Errorf("unable to decode %s: %w", path, err)
	}
	return &token, nil
}
