package aws_ce

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// CheckProfile verifies that a named profile exists in the shared AWS config
// or credentials file. When neither file exists the check is skipped and the
// SDK's own resolution decides.
func CheckProfile(profile string) error {
	configPath, credentialsPath, err := sharedFiles()
	if err != nil {
		return err
	}
	return checkProfileIn(profile, configPath, credentialsPath)
}

func checkProfileIn(profile, configPath, credentialsPath string) error {
	var sources []interface{}
	for _, path := range []string{configPath, credentialsPath} {
		if _, err := os.Stat(path); err == nil {
			sources = append(sources, path)
		}
	}
	if len(sources) == 0 {
		return nil
	}

	cfg, err := ini.LooseLoad(sources[0], sources[1:]...)
	if err != nil {
		return fmt.Errorf("unable to read AWS shared config: %w", err)
	}

	// ~/.aws/config names sections "profile <name>" except for default
	for _, name := range []string{profile, "profile " + profile} {
		if cfg.HasSection(name) {
			return nil
		}
	}
	return fmt.Errorf("AWS profile %q not found in shared config files", profile)
}

func sharedFiles() (string, string, error) {
	configPath := os.Getenv("AWS_CONFIG_FILE")
	credentialsPath := os.Getenv("AWS_SHARED_CREDENTIALS_FILE")
	if configPath != "" && credentialsPath != "" {
		return configPath, credentialsPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("unable to get home directory: %w", err)
	}
	if configPath == "" {
		configPath = filepath.Join(homeDir, ".aws", "config")
	}
	if credentialsPath == "" {
		credentialsPath = filepath.Join(homeDir, ".aws", "credentials")
	}
	return configPath, credentialsPath, nil
}
