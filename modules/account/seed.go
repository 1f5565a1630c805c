package account

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/example/incident-desk/domain/casework"
	"gopkg.in/yaml.v3"
)

// DemoPassword is the password of every built-in demo actor.
const DemoPassword = "desk-demo-2024"

// SeedActor describes one actor to provision at startup.
type SeedActor struct {
	Code      string `yaml:"code"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Role      string `yaml:"role"`
}

type seedFile struct {
	Actors []SeedActor `yaml:"actors"`
}

// DemoSeeds returns two mediators, one requester and one admin.
func DemoSeeds() []SeedActor {
	return []SeedActor{
		{Code: "mediador1", Email: "mediador1@isaa.com", Password: DemoPassword, FirstName: "Mediador", LastName: "Saul", Role: string(casework.RoleMediator)},
		{Code: "mediador2", Email: "mediador2@isaa.com", Password: DemoPassword, FirstName: "Mediador", LastName: "Juan", Role: string(casework.RoleMediator)},
		{Code: "222000000", Email: "alberich@alumno.com", Password: DemoPassword, FirstName: "Alberich", LastName: "Leal", Role: string(casework.RoleRequester)},
		{Code: "admin", Email: "admin@isaa.com", Password: DemoPassword, FirstName: "Admin", LastName: "ISAA", Role: string(casework.RoleAdmin)},
	}
}

// LoadSeedFile reads the actors listed in a YAML file of the form
//
//	actors:
//	  - code: mediador1
//	    email: mediador1@isaa.com
//	    password: secret-pass
//	    role: mediator
func LoadSeedFile(path string) ([]SeedActor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("account: read %s: %w", path, err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("account: parse %s: %w", path, err)
	}
	for i, a := range f.Actors {
		if _, err := casework.ParseRole(a.Role); err != nil {
			return nil, fmt.Errorf("account: %s: actor %d (%s): %w", path, i, a.Code, err)
		}
	}
	return f.Actors, nil
}

// Seed creates every actor in seeds whose code is not registered yet and
// returns how many it created. Existing actors are left untouched.
func (s *AccountService) Seed(ctx context.Context, seeds []SeedActor) (int, error) {
	created := 0
	for _, seed := range seeds {
		role, err := casework.ParseRole(seed.Role)
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", seed.Code, err)
		}
		_, err = s.create(ctx, &RegisterRequest{
			Code:      seed.Code,
			Email:     seed.Email,
			Password:  seed.Password,
			FirstName: seed.FirstName,
			LastName:  seed.LastName,
		}, role)
		if errors.Is(err, casework.ErrActorExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", seed.Code, err)
		}
		created++
	}
	return created, nil
}
