// ABOUTME: Connection and signing state shared by mythic-admin commands
// ABOUTME: Loads the profile and key, dials the node, prints receipts

package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/auth"
	"github.com/2389/mythic-metadata/internal/client"
	"github.com/2389/mythic-metadata/internal/registry"
	"github.com/2389/mythic-metadata/internal/rpc"
)

type session struct {
	profile *Profile
	key     *auth.Keypair
	client  *client.Client
}

type command func(ctx context.Context, s *session, f flags) error

func openSession(p *Profile) (*session, error) {
	key, err := auth.LoadKeypair(p.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading signing key (run mythic-admin keygen): %w", err)
	}
	programID, err := address.Parse(p.ProgramID)
	if err != nil {
		return nil, err
	}
	scheme, err := address.ParseScheme(p.Addressing)
	if err != nil {
		return nil, err
	}
	c, err := client.Dial(p.Node, client.WithProgramID(programID), client.WithScheme(scheme))
	if err != nil {
		return nil, err
	}
	return &session{profile: p, key: key, client: c}, nil
}

func withSession(ctx context.Context, fn func(context.Context, *session) error) error {
	p, err := loadProfile(profilePath())
	if err != nil {
		return err
	}
	s, err := openSession(p)
	if err != nil {
		return err
	}
	defer s.client.Close()
	return fn(ctx, s)
}

func dispatch(ctx context.Context, group string, args []string, cmds map[string]command) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s <subcommand>", group)
	}
	cmd, ok := cmds[args[0]]
	if !ok {
		return fmt.Errorf("unknown %s subcommand: %s", group, args[0])
	}
	f := parseFlags(args[1:])
	return withSession(ctx, func(ctx context.Context, s *session) error {
		return cmd(ctx, s, f)
	})
}

func (s *session) me() address.Pubkey {
	return s.key.Pubkey()
}

// send signs ix with the profile key and reports the receipt.
func (s *session) send(ctx context.Context, ix registry.Instruction) error {
	resp, err := s.client.Send(ctx, ix, s.key)
	if err != nil {
		return describe(err)
	}
	printReceipt(resp)
	return nil
}

func printReceipt(resp *rpc.SubmitTransactionResponse) {
	green := color.New(color.FgGreen)
	green.Printf("✓ %s committed at slot %d\n", resp.Op, resp.Slot)
	fmt.Printf("  Transaction: %s\n", resp.ID)
}

// describe adds the registry code and kind to an error message.
func describe(err error) error {
	kind := registry.KindOf(err)
	if kind == registry.KindInternal {
		return err
	}
	return fmt.Errorf("%w [%s, code %d]", err, kind, registry.CodeOf(err))
}
