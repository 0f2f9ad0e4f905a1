// Command create-admin creates an admin account.
//
//	create-admin <name> <email> <password>
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/booking-service/internal/config"
	"github.com/iliyamo/booking-service/internal/database"
	"github.com/iliyamo/booking-service/internal/model"
	"github.com/iliyamo/booking-service/internal/repository"
	"github.com/iliyamo/booking-service/internal/utils"
)

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: create-admin <name> <email> <password>")
		os.Exit(2)
	}
	name, email, password := os.Args[1], os.Args[2], os.Args[3]
	if err := validator.New().Var(email, "required,email"); err != nil {
		log.Fatalf("invalid email format: %v", err)
	}
	if err := utils.CheckPassword(password); err != nil {
		log.Fatal(err)
	}

	config.LoadDotEnv()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}

	id, err := repository.NewUserRepo(db).Create(ctx, name, email, password, model.RoleAdmin, cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		log.Fatalf("a user with email %s already exists", email)
	}
	if err != nil {
		log.WithError(err).Fatal("create admin failed")
	}
	log.WithFields(log.Fields{"id": id, "email": email}).Info("admin user created")
}
