package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jhalloran/linkgate/internal/models"
	"github.com/jhalloran/linkgate/internal/repositories"
)

// SeedApp inserts a live App with the given shared key.
func SeedApp(t *testing.T, repo *repositories.AppRepository, key, restriction string) *models.App {
	t.Helper()

	app, err := repo.Create(context.Background(), &models.App{
		ID:          uuid.New().String(),
		Name:        "Integration App",
		Domain:      "integration.example.com",
		Key:         key,
		IconURL:     "https://integration.example.com/icon.png",
		OwnerID:     uuid.New().String(),
		Restriction: models.ParseRestrictionPolicy(restriction),
	})
	if err != nil {
		t.Fatalf("failed to seed app: %v", err)
	}
	return app
}

// SeedAccount inserts an available Account with a unique login name.
func SeedAccount(t *testing.T, repo *repositories.AccountRepository, suffix, password, realName string) *models.Account {
	t.Helper()

	account, err := repo.Create(context.Background(), &models.Account{
		Name:      fmt.Sprintf("acct-%d-%s", time.Now().UnixNano(), suffix),
		Password:  password,
		RealName:  realName,
		Nickname:  "nick-" + suffix,
		Gender:    1,
		Phone:     "555-0100",
		Available: true,
	})
	if err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	return account
}
