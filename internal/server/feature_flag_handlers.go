package server

import (
	"slices"

	"pulse/internal/featureflags"

	"github.com/gofiber/fiber/v2"
)

type featureFlagState struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Value       string `json:"value"`
	Enabled     bool   `json:"enabled"`
}

type featureFlagsResponse struct {
	Raw       map[string]string  `json:"raw"`
	Evaluated map[string]bool    `json:"evaluated"`
	Flags     []featureFlagState `json:"flags"`
}

// GetFeatureFlags handles GET /api/feature-flags. Every flag Pulse knows is
// listed, configured or not, followed by any extra configured keys.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	resp := featureFlagsResponse{Raw: map[string]string{}, Evaluated: map[string]bool{}}
	if s.featureFlags != nil {
		resp.Raw = s.featureFlags.Raw()
	}
	viewerID := currentUserID(c)

	add := func(name, description string) {
		enabled := s.featureFlags.Enabled(name, viewerID)
		resp.Evaluated[name] = enabled
		resp.Flags = append(resp.Flags, featureFlagState{
			Name:        name,
			Description: description,
			Value:       resp.Raw[name],
			Enabled:     enabled,
		})
	}

	for _, def := range featureflags.Known {
		add(def.Name, def.Description)
	}
	var extra []string
	for name := range resp.Raw {
		if _, known := resp.Evaluated[name]; !known {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	for _, name := range extra {
		add(name, "")
	}
	return c.JSON(resp)
}
