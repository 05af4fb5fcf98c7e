// Command seed loads demo users and catalog items for local development.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/akshayrajeevnambiar/Pantrypal/internal/domain"
	mongoRepo "github.com/akshayrajeevnambiar/Pantrypal/internal/infrastructure/mongodb"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/auth"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/logging"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/mongodb"
)

type seedUser struct {
	email    string
	name     string
	role     domain.Role
	password string
}

type seedItem struct {
	name       string
	baseUnit   domain.BaseUnit
	currentQty int
	parLevel   int
}

var seedUsers = []seedUser{
	{email: "admin@pantrypal.dev", name: "Alice Admin", role: domain.RoleAdmin, password: "admin123"},
	{email: "manager@pantrypal.dev", name: "Mara Manager", role: domain.RoleManager, password: "manager123"},
	{email: "counter@pantrypal.dev", name: "Carl Counter", role: domain.RoleCounter, password: "counter123"},
}

var seedItems = []seedItem{
	{name: "Tomatoes", baseUnit: domain.UnitPiece, currentQty: 15, parLevel: 8},
	{name: "Chicken Thighs", baseUnit: domain.UnitPiece, currentQty: 20, parLevel: 12},
	{name: "Basmati Rice 10kg", baseUnit: domain.UnitGram, currentQty: 5000, parLevel: 3000},
	{name: "Cooking Oil", baseUnit: domain.UnitMilliliter, currentQty: 5000, parLevel: 1200},
	{name: "Onions", baseUnit: domain.UnitPiece, currentQty: 20, parLevel: 18},
}

func main() {
	logger := logging.New(logging.DefaultConfig("pantrypal-seed"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongodb.NewClient(ctx, &mongodb.Config{
		URI:              getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		Database:         getEnv("MONGODB_DATABASE", "pantrypal"),
		ConnectTimeout:   10 * time.Second,
		OperationTimeout: 5 * time.Second,
		MaxPoolSize:      10,
		MinPoolSize:      1,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer client.Close(ctx)

	// nil metrics; the instrumented client still bounds each call with the
	// operation timeout
	instrumented := mongodb.NewInstrumentedClient(client, nil, logger)
	userRepo := mongoRepo.NewUserRepository(instrumented)
	itemRepo := mongoRepo.NewItemRepository(instrumented)

	for _, su := range seedUsers {
		hash, err := auth.HashPassword(su.password)
		if err != nil {
			logger.WithError(err).Error("Failed to hash password", "email", su.email)
			os.Exit(1)
		}

		user := &domain.User{
			Email:        su.email,
			Name:         su.name,
			Role:         su.role,
			PasswordHash: hash,
			IsActive:     true,
			CreatedAt:    time.Now().UTC(),
		}
		if err := userRepo.Upsert(ctx, user); err != nil {
			logger.WithError(err).Error("Failed to upsert user", "email", su.email)
			os.Exit(1)
		}
		logger.Info("Seeded user", "email", su.email, "role", string(su.role))
	}

	for _, si := range seedItems {
		item, err := domain.NewItem(si.name, si.baseUnit, si.parLevel)
		if err != nil {
			logger.WithError(err).Error("Invalid seed item", "name", si.name)
			os.Exit(1)
		}
		item.CurrentQty = si.currentQty

		if err := itemRepo.Create(ctx, item); err != nil {
			if errors.Is(err, domain.ErrItemNameTaken) {
				logger.Info("Item already exists, skipping", "name", si.name)
				continue
			}
			logger.WithError(err).Error("Failed to create item", "name", si.name)
			os.Exit(1)
		}
		logger.Info("Seeded item", "name", si.name, "currentQty", si.currentQty, "parLevel", si.parLevel)
	}

	logger.Info("Seed complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
