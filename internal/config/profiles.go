package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/PauloHFS/faceauth/internal/face"
	"gopkg.in/yaml.v3"
)

type profilesFile struct {
	Profiles []face.ModelProfile `yaml:"profiles"`
}

// FaceProfiles returns the tier list from FACE_PROFILES_FILE, or the
// built-in defaults when no file is configured.
func (c *Config) FaceProfiles() ([]face.ModelProfile, error) {
	if c.Face.ProfilesFile == "" {
		return face.DefaultProfiles(), nil
	}
	return LoadFaceProfiles(c.Face.ProfilesFile)
}

func LoadFaceProfiles(path string) ([]face.ModelProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	return ParseFaceProfiles(data)
}

// ParseFaceProfiles decodes a YAML document of the form
//
//	profiles:
//	  - name: facenet-opencv
//	    model: Facenet
//	    detector: opencv
//	    metric: cosine
//	    threshold: 0.6
func ParseFaceProfiles(data []byte) ([]face.ModelProfile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f profilesFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	if err := face.ValidateProfiles(f.Profiles); err != nil {
		return nil, fmt.Errorf("invalid profiles: %w", err)
	}
	return f.Profiles, nil
}
