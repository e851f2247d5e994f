package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/PauloHFS/faceauth/internal/config"
	"github.com/PauloHFS/faceauth/internal/db"
	"github.com/PauloHFS/faceauth/internal/face"
	"github.com/PauloHFS/faceauth/internal/i18n"
	"github.com/PauloHFS/faceauth/internal/logging"
	"github.com/PauloHFS/faceauth/internal/services"
	"github.com/PauloHFS/faceauth/internal/storage"
)

func RunCreateUser() {
	if len(os.Args) < 6 {
		fmt.Println("Usage: create-user <username> <email> <password> <face-image>")
		os.Exit(1)
	}
	username, email, password, imagePath := os.Args[2], os.Args[3], os.Args[4], os.Args[5]

	image, err := os.ReadFile(imagePath)
	if err != nil {
		fmt.Printf("failed to read face image: %v\n", err)
		os.Exit(1)
	}

	dbConn, cfg, err := initDB()
	if err != nil {
		panic(err)
	}
	defer dbConn.Close()

	logging.Init()
	if err := db.RunMigrations(context.Background(), dbConn); err != nil {
		fmt.Printf("failed to run migrations: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.FacesDir, 0o750); err != nil {
		fmt.Printf("failed to create faces directory: %v\n", err)
		os.Exit(1)
	}

	// O cadastro não roda modelos, então o verificador não precisa do runtime.
	verifier, _, err := NewVerifier(cfg)
	if err != nil {
		fmt.Printf("invalid face configuration: %v\n", err)
		os.Exit(1)
	}

	auth := services.NewAuthService(db.New(dbConn), storage.NewFaceStore(cfg.FacesDir), verifier, cfg)
	out := auth.Register(context.Background(), services.RegisterInput{
		Username:  username,
		Email:     email,
		Password:  password,
		FaceImage: image,
	})
	if !out.Success {
		fmt.Printf("failed to create user: %s %s\n", i18n.T(context.Background(), out.Error), out.Details)
		os.Exit(1)
	}
	fmt.Printf("User %s created successfully\n", out.User.Username)
}

// RunVerify compara duas imagens locais com os perfis configurados e
// imprime o resultado em JSON.
func RunVerify() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: verify <reference-image> <probe-image>")
		os.Exit(1)
	}

	reference, err := os.ReadFile(os.Args[2])
	if err != nil {
		fmt.Printf("failed to read reference image: %v\n", err)
		os.Exit(1)
	}
	probe, err := os.ReadFile(os.Args[3])
	if err != nil {
		fmt.Printf("failed to read probe image: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logging.Init()

	verifier, _, err := NewVerifier(cfg)
	if err != nil {
		fmt.Printf("invalid face configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Face.VerifyTimeout)
	defer cancel()

	result, err := verifier.Verify(ctx, reference, probe)
	if err != nil {
		fmt.Printf("verification failed (%s): %v\n", face.KindOf(err), err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	if !result.Verified {
		os.Exit(2)
	}
}
