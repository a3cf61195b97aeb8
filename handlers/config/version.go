package config

import (
	"regexp"
	"strings"

	onsceneerrors "github.com/Meesho/BharatMLStack/onscene/internal/errors"
)

const modelConfigPrefix = "on_scene_model_"

// major with an optional minor, never a patch component
var versionPattern = regexp.MustCompile(`^v\d+(\.\d+)?$`)

func VerifyVersion(version string) error {
	if !versionPattern.MatchString(version) {
		return onsceneerrors.New(onsceneerrors.KindInvalidVersion, "version string %q is not valid", version)
	}
	return nil
}

// ModelConfigName maps a semantic version to its document name, e.g. v2.0 -> on_scene_model_v2p0.
func ModelConfigName(version string) (string, error) {
	if err := VerifyVersion(version); err != nil {
		return "", err
	}
	return modelConfigPrefix + strings.ReplaceAll(version, ".", "p"), nil
}
