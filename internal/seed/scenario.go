package seed

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"pulse/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed scenarios/*.yaml
var scenarioFS embed.FS

// Scenario describes a demo social graph: a few named users with fixed
// follows and posts, plus randomly generated filler.
type Scenario struct {
	Name   string     `yaml:"name"`
	Seed   int64      `yaml:"seed"`
	Days   int        `yaml:"days"`
	Random RandomSpec `yaml:"random"`
	Users  []UserSpec `yaml:"users"`
}

// RandomSpec sizes the generated part of a scenario.
type RandomSpec struct {
	Users             int `yaml:"users"`
	PostsPerUser      int `yaml:"posts_per_user"`
	FollowsPerUser    int `yaml:"follows_per_user"`
	LikesPerPost      int `yaml:"likes_per_post"`
	CommentsPerPost   int `yaml:"comments_per_post"`
	RepliesPerComment int `yaml:"replies_per_comment"`
	MessagesPerUser   int `yaml:"messages_per_user"`
}

// UserSpec is a named user. Follows reference other named users.
type UserSpec struct {
	Username string   `yaml:"username"`
	Name     string   `yaml:"name"`
	Bio      string   `yaml:"bio"`
	Follows  []string `yaml:"follows"`
	Posts    []string `yaml:"posts"`
}

// DefaultScenario returns the embedded demo scenario.
func DefaultScenario() (*Scenario, error) {
	data, err := scenarioFS.ReadFile("scenarios/demo.yaml")
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks counts, name uniqueness and follow references.
func (sc *Scenario) Validate() error {
	r := sc.Random
	for name, n := range map[string]int{
		"users":               r.Users,
		"posts_per_user":      r.PostsPerUser,
		"follows_per_user":    r.FollowsPerUser,
		"likes_per_post":      r.LikesPerPost,
		"comments_per_post":   r.CommentsPerPost,
		"replies_per_comment": r.RepliesPerComment,
		"messages_per_user":   r.MessagesPerUser,
		"days":                sc.Days,
	} {
		if n < 0 {
			return fmt.Errorf("scenario %q: %s must not be negative", sc.Name, name)
		}
	}

	known := make(map[string]bool, len(sc.Users))
	for _, u := range sc.Users {
		name := strings.TrimSpace(u.Username)
		if name == "" {
			return fmt.Errorf("scenario %q: user without username", sc.Name)
		}
		if len(name) > 64 {
			return fmt.Errorf("scenario %q: username %q longer than 64 bytes", sc.Name, name)
		}
		if known[name] {
			return fmt.Errorf("scenario %q: duplicate username %q", sc.Name, name)
		}
		known[name] = true
	}

	for _, u := range sc.Users {
		for _, target := range u.Follows {
			if target == u.Username {
				return fmt.Errorf("scenario %q: %s cannot follow itself", sc.Name, u.Username)
			}
			if !known[target] {
				return fmt.Errorf("scenario %q: %s follows unknown user %q", sc.Name, u.Username, target)
			}
		}
		for _, p := range u.Posts {
			if n := utf8.RuneCountInString(strings.TrimSpace(p)); n == 0 || n > models.MaxContentLength {
				return fmt.Errorf("scenario %q: post by %s must be 1..%d characters", sc.Name, u.Username, models.MaxContentLength)
			}
		}
	}
	return nil
}
