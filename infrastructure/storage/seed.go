package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"messenger/domain"
	"os"

	"gopkg.in/yaml.v3"
)

// DirectorySeed is the fixture format used to populate the directory, since
// account creation lives outside this service.
//
//	users:
//	  - id: 1
//	    name: Alice
//	    avatar: /uploads/avatars/alice.png
type DirectorySeed struct {
	Users []SeedUser `yaml:"users"`
}

type SeedUser struct {
	ID     int64   `yaml:"id"`
	Name   string  `yaml:"name"`
	Avatar *string `yaml:"avatar,omitempty"`
}

func ParseDirectorySeed(r io.Reader) (DirectorySeed, error) {
	var seed DirectorySeed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil && err != io.EOF {
		return DirectorySeed{}, fmt.Errorf("decode directory seed: %w", err)
	}
	return seed, nil
}

// SeedDirectoryFromFile loads path and saves every user it lists.
// An empty path is a no-op.
func SeedDirectoryFromFile(ctx context.Context, repo IUserRepository, path string, log *slog.Logger) (int, error) {
	if path == "" {
		return 0, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	seed, err := ParseDirectorySeed(file)
	if err != nil {
		return 0, err
	}
	return SeedDirectory(ctx, repo, seed, log)
}

func SeedDirectory(ctx context.Context, repo IUserRepository, seed DirectorySeed, log *slog.Logger) (int, error) {
	for _, u := range seed.Users {
		user := domain.User{ID: domain.UserID(u.ID), DisplayName: u.Name, AvatarHandle: u.Avatar}
		if err := repo.Save(ctx, user); err != nil {
			return 0, fmt.Errorf("seed user %d: %w", u.ID, err)
		}
	}
	log.Info("Directory seeded", "users", len(seed.Users))
	return len(seed.Users), nil
}
