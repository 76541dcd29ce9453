// ABOUTME: Admin CLI for the mythic metadata registry
// ABOUTME: Generates keys and signs every registry instruction over gRPC

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
)

const banner = `
             _   _     _                 _           _
 _ __ _   _| |_| |__ (_) ___       __ _| |_ __ ___ (_)_ __
| '_ ' _ \| | | | __| '_ \| |/ __|_____/ _' | | '_ ' _ \| | '_ \
| | | | | | |_| | |_| | | | | (_|_____| (_| | | | | | | | | | | |
|_| |_| |_|\__, |\__|_| |_|_|\___|     \__,_|_|_| |_| |_|_|_| |_|
           |___/
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "keygen":
		return cmdKeygen(args)
	case "whoami":
		return cmdWhoami()
	case "profile":
		return cmdProfile(args)
	case "slot":
		return withSession(ctx, cmdSlot)
	case "counter":
		return dispatch(ctx, "counter", args, map[string]command{
			"init": cmdCounterInit,
			"show": cmdCounterShow,
		})
	case "key":
		return dispatch(ctx, "key", args, map[string]command{
			"create":  cmdKeyCreate,
			"show":    cmdKeyShow,
			"address": cmdKeyAddress,
		})
	case "metadata":
		return dispatch(ctx, "metadata", args, map[string]command{
			"create":           cmdMetadataCreate,
			"show":             cmdMetadataShow,
			"set-authority":    cmdMetadataSetAuthority,
			"revoke-authority": cmdMetadataRevokeAuthority,
		})
	case "collection":
		return dispatch(ctx, "collection", args, map[string]command{
			"append":           cmdCollectionAppend,
			"remove":           cmdCollectionRemove,
			"set-authority":    cmdCollectionSetAuthority,
			"revoke-authority": cmdCollectionRevokeAuthority,
		})
	case "item":
		return dispatch(ctx, "item", args, map[string]command{
			"append": cmdItemAppend,
			"update": cmdItemUpdate,
			"remove": cmdItemRemove,
		})
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: mythic-admin <command> [args]")
	fmt.Println()
	yellow.Println("Setup:")
	fmt.Println("  keygen [--out FILE] [--comment C] [--force]   Generate an ed25519 signing key")
	fmt.Println("  whoami                                       Show the profile key's address")
	fmt.Println("  profile show                                 Show the active profile")
	fmt.Println("  profile set [--node --key --program-id --addressing]")
	fmt.Println()
	yellow.Println("Registry:")
	fmt.Println("  slot                                         Latest committed slot")
	fmt.Println("  counter init | counter show")
	fmt.Println("  key create --name N --label L [--description D] [--content-type T]")
	fmt.Println("  key show <address>")
	fmt.Println("  key address --name N [--namespace PK] | --id ID")
	fmt.Println("  metadata create --key KEY --subject PK [--update-authority PK|none]")
	fmt.Println("  metadata show <address>")
	fmt.Println("  metadata set-authority --metadata M --key KEY --new PK")
	fmt.Println("  metadata revoke-authority --metadata M --key KEY")
	fmt.Println("  collection append --metadata M --key KEY --collection C [--delegate PK]")
	fmt.Println("  collection remove|revoke-authority --metadata M --key KEY --collection C")
	fmt.Println("  collection set-authority --metadata M --key KEY --collection C --new PK")
	fmt.Println("  item append|update --metadata M --key KEY --collection C --item I --value V")
	fmt.Println("  item remove --metadata M --key KEY --collection C --item I")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  MYTHIC_ADMIN_PROFILE     Profile path (default: ~/.config/mythic/admin.toml)")
	fmt.Println("  MYTHIC_NODE              Node gRPC address (overrides profile)")
	fmt.Println("  MYTHIC_KEY               Signing key file (overrides profile)")
	fmt.Println()
}
