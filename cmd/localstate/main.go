package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lingopal/internal/config"
	"lingopal/internal/database"
	"lingopal/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	clearCmd := flag.NewFlagSet("clear", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: local_state_YYYYMMDD_HHMMSS.json)")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing entries before import (WARNING: destructive)")

	// Clear flags
	clearForce := clearCmd.Bool("force", false, "Skip the confirmation prompt")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	backupService := service.NewBackupService(db)
	ctx := context.Background()

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, backupService, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, backupService, *importInput, *importClear)

	case "clear":
		clearCmd.Parse(os.Args[2:])
		handleClear(ctx, backupService, *clearForce)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string) {
	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("local_state_%s.json", timestamp)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer file.Close()

	log.Printf("Exporting local state to: %s", outputPath)
	count, err := backupService.ExportToWriter(ctx, file)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	log.Printf("Export complete! %d entries written", count)
}

func handleImport(ctx context.Context, backupService *service.BackupService, inputPath string, clearData bool) {
	file, err := os.Open(inputPath)
	if err != nil {
		log.Fatalf("Failed to open input file: %v", err)
	}
	defer file.Close()

	if clearData && !confirm("WARNING: This will delete all existing entries. Type 'yes' to confirm: ") {
		log.Println("Import cancelled")
		return
	}

	log.Printf("Importing local state from: %s", inputPath)
	count, err := backupService.ImportFromReader(ctx, file, clearData)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Printf("Import complete! %d entries restored", count)
}

func handleClear(ctx context.Context, backupService *service.BackupService, force bool) {
	if !force && !confirm("WARNING: This signs the device out and deletes all local state. Type 'yes' to confirm: ") {
		log.Println("Clear cancelled")
		return
	}

	if err := backupService.Clear(ctx); err != nil {
		log.Fatalf("Clear failed: %v", err)
	}
	log.Println("Local state cleared")
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(answer) == "yes"
}

func printUsage() {
	fmt.Println("LingoPal Local State Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  localstate export [options]    Export local state to a JSON file")
	fmt.Println("  localstate import [options]    Import local state from a JSON file")
	fmt.Println("  localstate clear [options]     Delete all local state")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: local_state_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Clear existing entries before import (WARNING: destructive)")
	fmt.Println()
	fmt.Println("Clear Options:")
	fmt.Println("  -force            Skip the confirmation prompt")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  STORAGE_TYPE      Storage type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  STORAGE_PATH      SQLite database path (default: ./lingopal.db)")
	fmt.Println("  STORAGE_URL       PostgreSQL or MySQL connection URL")
	fmt.Println("  CONFIG_PATH       Optional YAML config file")
}
