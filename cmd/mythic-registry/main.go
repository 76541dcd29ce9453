// ABOUTME: Entry point for the mythic-registry node
// ABOUTME: Serves the metadata registry over gRPC and HTTP

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/mythic-metadata/internal/config"
	"github.com/2389/mythic-metadata/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
             _   _     _
 _ __ _   _| |_| |__ (_) ___       _ __ ___  __ _
| '_ ' _ \| | | | __| '_ \| |/ __|_____| '__/ _ \/ _' |
| | | | | | |_| | |_| | | | | (_|_____| | |  __/ (_| |
|_| |_| |_|\__, |\__|_| |_|_|\___|    |_|  \___|\__, |
           |___/                                |___/
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: mythic-registry <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the registry node")
		fmt.Println("  init     Create a new config file interactively")
		fmt.Println("  health   Check node liveness")
		fmt.Println("  ready    Check that the node's ledger answers")
		fmt.Println()
		fmt.Println("Config: $MYTHIC_CONFIG or ~/.config/mythic/registry.yaml")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit(os.Stdin)
	case "health":
		err = runProbe(ctx, "/health")
	case "ready":
		err = runProbe(ctx, "/ready")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.Path()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("gRPC:       %s\n", cfg.Server.GRPCAddr)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:       %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Ledger:     %s ", cfg.Database.Driver)
	gray.Println(cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Program:    %s ", cfg.Registry.ProgramID)
	gray.Printf("(%s addressing)\n", cfg.Registry.Addressing)
	fmt.Println()

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

func runProbe(ctx context.Context, path string) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s%s", cfg.Server.HTTPAddr, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Println(strings.TrimSpace(string(body)))
	return nil
}

func runInit(in io.Reader) error {
	reader := bufio.NewReader(in)

	fmt.Println("mythic-registry configuration setup")
	fmt.Println("===================================")
	fmt.Println()

	cfg := config.Default()

	outputFile := prompt(reader, "Config file path", config.Path())
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	cfg.Server.GRPCAddr = prompt(reader, "gRPC address", cfg.Server.GRPCAddr)
	cfg.Server.HTTPAddr = prompt(reader, "HTTP address", cfg.Server.HTTPAddr)

	fmt.Println("\n--- Ledger Configuration ---")
	cfg.Database.Driver = prompt(reader, "Driver (sqlite/bolt/memory)", cfg.Database.Driver)
	if cfg.Database.Driver == "bolt" {
		cfg.Database.Path = filepath.Join(config.DataPath(), "registry.bolt")
	}
	if cfg.Database.Driver != "memory" {
		cfg.Database.Path = prompt(reader, "Ledger path", cfg.Database.Path)
	}

	fmt.Println("\n--- Registry Configuration ---")
	cfg.Registry.ProgramID = prompt(reader, "Program id", cfg.Registry.ProgramID)
	cfg.Registry.Addressing = prompt(reader, "Addressing (counter/name)", cfg.Registry.Addressing)

	fmt.Println("\n--- Auth Configuration ---")
	maxAge := prompt(reader, "Signature max age", cfg.Auth.SignatureMaxAgeRaw)
	cfg.Auth.SignatureMaxAgeRaw = maxAge
	cacheSize := prompt(reader, "Replay cache size", strconv.Itoa(cfg.Auth.NonceCacheSize))
	if n, err := strconv.Atoi(cacheSize); err == nil {
		cfg.Auth.NonceCacheSize = n
	}

	fmt.Println("\n--- Logging Configuration ---")
	cfg.Logging.Level = prompt(reader, "Log level (debug/info/warn/error)", cfg.Logging.Level)
	cfg.Logging.Format = prompt(reader, "Log format (text/json)", cfg.Logging.Format)

	// Round-trip through the parser so a bad answer fails here, not at serve.
	cfg.Auth.SignatureMaxAge = 0
	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if _, err := config.Parse(data); err != nil {
		return err
	}

	var out strings.Builder
	out.WriteString("# mythic-registry configuration\n")
	out.WriteString("# Generated by mythic-registry init\n\n")
	out.Write(data)

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(out.String()), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if cfg.Database.Driver != "memory" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the node:")
	fmt.Printf("  mythic-registry serve\n")

	return nil
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
