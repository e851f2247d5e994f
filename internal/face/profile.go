package face

import (
	"errors"
	"fmt"

	"github.com/PauloHFS/faceauth/internal/validator"
)

// ModelProfile names the model, the detector and the decision rule used by one tier.
type ModelProfile struct {
	Name             string  `yaml:"name" json:"name" validate:"required"`
	Model            string  `yaml:"model" json:"model" validate:"required"`
	Detector         string  `yaml:"detector" json:"detector" validate:"required"`
	Metric           Metric  `yaml:"metric" json:"metric" validate:"required,oneof=euclidean cosine euclidean_l2"`
	Threshold        float64 `yaml:"threshold" json:"threshold" validate:"gte=0"`
	EnforceDetection bool    `yaml:"enforce_detection" json:"enforce_detection"`
}

func (p ModelProfile) String() string {
	return fmt.Sprintf("%s (%s/%s/%s<=%.2f)", p.Name, p.Model, p.Detector, p.Metric, p.Threshold)
}

// MaxTiers is the number of profiles a Verifier will try before giving up.
const MaxTiers = 2

var (
	ErrNoProfiles       = errors.New("at least one model profile is required")
	ErrTooManyProfiles  = fmt.Errorf("at most %d model profiles are supported", MaxTiers)
	ErrDuplicateProfile = errors.New("duplicate model profile name")
)

// DefaultProfiles is the production tier order: Facenet first, VGG-Face as fallback.
func DefaultProfiles() []ModelProfile {
	return []ModelProfile{
		{
			Name:      "facenet-opencv",
			Model:     "Facenet",
			Detector:  "opencv",
			Metric:    MetricCosine,
			Threshold: 0.6,
		},
		{
			Name:      "vggface-opencv",
			Model:     "VGG-Face",
			Detector:  "opencv",
			Metric:    MetricCosine,
			Threshold: 0.6,
		},
	}
}

// ValidateProfiles checks an ordered tier list.
func ValidateProfiles(profiles []ModelProfile) error {
	if len(profiles) == 0 {
		return ErrNoProfiles
	}
	if len(profiles) > MaxTiers {
		return ErrTooManyProfiles
	}

	seen := make(map[string]bool, len(profiles))
	for i, p := range profiles {
		if err := validator.Validate(p); err != nil {
			return fmt.Errorf("profile %d (%s): %w", i, p.Name, err)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateProfile, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}
