package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/stylhelpr/stylhelpr-backend/config"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/repository"
	"github.com/stylhelpr/stylhelpr-backend/internal/db"
	"github.com/stylhelpr/stylhelpr-backend/internal/spreadsheet"
)

const batchSize = 500

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path> [-y]")
	}

	filePath := os.Args[1]
	assumeYes := len(os.Args) > 2 && (os.Args[2] == "-y" || os.Args[2] == "--yes")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	outfitRepo := repository.NewCustomOutfitRepository(db.GetDB())

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	defer f.Close()

	outfits, skipped, err := spreadsheet.ReadOutfits(f)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	for _, rowErr := range skipped {
		fmt.Printf("Skipped %s\n", rowErr.Error())
	}
	fmt.Printf("Total outfits to import: %d (skipped: %d)\n", len(outfits), len(skipped))

	if len(outfits) == 0 {
		fmt.Println("Nothing to import.")
		return
	}

	if !assumeYes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	fmt.Printf("Starting bulk import with batch size: %d\n", batchSize)
	if err := outfitRepo.CreateBatch(context.Background(), outfits, batchSize); err != nil {
		log.Fatal("Failed to bulk create outfits:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total outfits imported: %d\n", len(outfits))
}
