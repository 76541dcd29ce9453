// ABOUTME: mythic-admin command implementations
// ABOUTME: Key management, profile editing and one command per registry instruction

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/auth"
	"github.com/2389/mythic-metadata/internal/registry"
	"github.com/2389/mythic-metadata/internal/state"
)

func cmdKeygen(args []string) error {
	f := parseFlags(args)
	out := f.get("out")
	if out == "" {
		p, err := loadProfile(profilePath())
		if err != nil {
			return err
		}
		out = p.KeyFile
	}
	if _, err := os.Stat(out); err == nil && !f.has("force") {
		return fmt.Errorf("%s exists (use --force to overwrite)", out)
	}

	key, err := auth.GenerateKeypair()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	comment := f.get("comment")
	if comment == "" {
		comment = "mythic-admin"
	}
	if err := key.Save(out, comment); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Wrote %s\n", out)
	fmt.Printf("  Address:        %s\n", key.Pubkey())
	fmt.Printf("  Authorized key: %s", key.AuthorizedKey())
	return nil
}

func cmdWhoami() error {
	p, err := loadProfile(profilePath())
	if err != nil {
		return err
	}
	key, err := auth.LoadKeypair(p.KeyFile)
	if err != nil {
		return err
	}
	fmt.Println(key.Pubkey())
	return nil
}

func cmdProfile(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: profile show | profile set [--node ADDR] [--key FILE] [--program-id ID] [--addressing counter|name]")
	}
	path := profilePath()
	p, err := loadProfile(path)
	if err != nil {
		return err
	}

	switch args[0] {
	case "show":
	case "set":
		f := parseFlags(args[1:])
		if v := f.get("node"); v != "" {
			p.Node = v
		}
		if v := f.get("key"); v != "" {
			p.KeyFile = v
		}
		if v := f.get("program-id"); v != "" {
			p.ProgramID = v
		}
		if v := f.get("addressing"); v != "" {
			p.Addressing = v
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if err := p.save(path); err != nil {
			return err
		}
		color.New(color.FgGreen).Printf("✓ Saved %s\n", path)
	default:
		return fmt.Errorf("unknown profile subcommand: %s (use show or set)", args[0])
	}

	fmt.Printf("  Node:       %s\n", p.Node)
	fmt.Printf("  Key file:   %s\n", p.KeyFile)
	fmt.Printf("  Program:    %s\n", p.ProgramID)
	fmt.Printf("  Addressing: %s\n", p.Addressing)
	return nil
}

func cmdSlot(ctx context.Context, s *session) error {
	slot, err := s.client.LatestSlot(ctx)
	if err != nil {
		return describe(err)
	}
	fmt.Println(slot)
	return nil
}

func cmdCounterInit(ctx context.Context, s *session, _ flags) error {
	resp, err := s.client.InitializeCounter(ctx, s.key)
	if err != nil {
		return describe(err)
	}
	printReceipt(resp)
	return nil
}

func cmdCounterShow(ctx context.Context, s *session, _ flags) error {
	counter, err := s.client.FetchCounter(ctx)
	if err != nil {
		return describe(err)
	}
	addr, _, err := s.client.Deriver().Counter()
	if err != nil {
		return err
	}
	fmt.Printf("Counter %s\n", addr)
	fmt.Printf("  Next id: %d\n", counter.ID)
	return nil
}

func cmdKeyCreate(ctx context.Context, s *session, f flags) error {
	name, err := f.required("name")
	if err != nil {
		return err
	}
	label, err := f.required("label")
	if err != nil {
		return err
	}
	key, resp, err := s.client.CreateMetadataKey(ctx, registry.KeyParams{
		NamespaceAuthority: s.me(),
		Payer:              s.me(),
		Name:               name,
		Label:              label,
		Description:        f.get("description"),
		ContentType:        f.get("content-type"),
	}, s.key)
	if err != nil {
		return describe(err)
	}
	printReceipt(resp)
	fmt.Printf("  Metadata key: %s\n", key)
	return nil
}

func cmdKeyShow(ctx context.Context, s *session, f flags) error {
	raw, err := f.positional("key show <address>")
	if err != nil {
		return err
	}
	addr, err := address.Parse(raw)
	if err != nil {
		return err
	}
	mk, err := s.client.FetchMetadataKey(ctx, addr)
	if err != nil {
		return describe(err)
	}

	fmt.Printf("Metadata key %s\n", addr)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  ID:\t%d\n", mk.ID)
	fmt.Fprintf(w, "  Namespace:\t%s\n", mk.NamespaceAuthority)
	fmt.Fprintf(w, "  Name:\t%s\n", mk.Name)
	fmt.Fprintf(w, "  Label:\t%s\n", mk.Label)
	if mk.Description != "" {
		fmt.Fprintf(w, "  Description:\t%s\n", mk.Description)
	}
	if mk.ContentType != "" {
		fmt.Fprintf(w, "  Content type:\t%s\n", mk.ContentType)
	}
	return w.Flush()
}

func cmdKeyAddress(_ context.Context, s *session, f flags) error {
	d := s.client.Deriver()
	var (
		addr address.Pubkey
		err  error
	)
	if raw := f.get("id"); raw != "" {
		id, perr := strconv.ParseUint(raw, 10, 64)
		if perr != nil {
			return fmt.Errorf("--id: %w", perr)
		}
		addr, _, err = d.MetadataKeyByID(id)
	} else {
		name, rerr := f.required("name")
		if rerr != nil {
			return fmt.Errorf("%w (or pass --id)", rerr)
		}
		ns := s.me()
		if f.get("namespace") != "" {
			if ns, err = f.pubkey("namespace"); err != nil {
				return err
			}
		}
		addr, _, err = d.MetadataKeyByName(ns, name)
	}
	if err != nil {
		return err
	}
	fmt.Println(addr)
	return nil
}

func cmdMetadataCreate(ctx context.Context, s *session, f flags) error {
	key, err := f.pubkey("key")
	if err != nil {
		return err
	}
	subject, err := f.pubkey("subject")
	if err != nil {
		return err
	}
	updateAuthority, err := f.authority("update-authority", state.Delegate(s.me()))
	if err != nil {
		return err
	}
	addr, resp, err := s.client.CreateMetadata(ctx, registry.MetadataParams{
		MetadataKey:      key,
		IssuingAuthority: s.me(),
		Payer:            s.me(),
		Subject:          subject,
		UpdateAuthority:  updateAuthority,
	}, s.key)
	if err != nil {
		return describe(err)
	}
	printReceipt(resp)
	fmt.Printf("  Metadata: %s\n", addr)
	return nil
}

func cmdMetadataShow(ctx context.Context, s *session, f flags) error {
	raw, err := f.positional("metadata show <address>")
	if err != nil {
		return err
	}
	addr, err := address.Parse(raw)
	if err != nil {
		return err
	}
	md, err := s.client.FetchMetadata(ctx, addr)
	if err != nil {
		return describe(err)
	}

	gray := color.New(color.FgHiBlack)
	fmt.Printf("Metadata %s\n", addr)
	fmt.Printf("  Key:              %s (id %d)\n", md.MetadataKey, md.MetadataKeyID)
	fmt.Printf("  Issuer:           %s\n", md.IssuingAuthority)
	fmt.Printf("  Subject:          %s\n", md.Subject)
	fmt.Printf("  Update authority: %s\n", md.UpdateAuthority)
	for _, c := range md.Collections {
		fmt.Printf("  Collection %s ", c.MetadataKey)
		gray.Printf("(id %d, authority %s, slot %d)\n", c.MetadataKeyID, c.UpdateAuthority, c.UpdateSlot)
		for _, it := range c.Items {
			fmt.Printf("    %s = %s ", it.MetadataKey, formatValue(it.Value))
			gray.Printf("(slot %d)\n", it.UpdateSlot)
		}
	}
	return nil
}

func formatValue(v []byte) string {
	if utf8.Valid(v) {
		return strconv.Quote(string(v))
	}
	return fmt.Sprintf("0x%x", v)
}

// target reads the accounts an update instruction names, signing as the profile key.
func target(s *session, f flags, collection, item bool) (registry.Target, error) {
	var (
		t   registry.Target
		err error
	)
	t.UpdateAuthority = s.me()
	if t.Metadata, err = f.pubkey("metadata"); err != nil {
		return t, err
	}
	if t.MetadataKey, err = f.pubkey("key"); err != nil {
		return t, err
	}
	if collection {
		if t.CollectionMetadataKey, err = f.pubkey("collection"); err != nil {
			return t, err
		}
	}
	if item {
		if t.ItemMetadataKey, err = f.pubkey("item"); err != nil {
			return t, err
		}
	}
	return t, nil
}

func cmdMetadataSetAuthority(ctx context.Context, s *session, f flags) error {
	t, err := target(s, f, false, false)
	if err != nil {
		return err
	}
	newAuthority, err := f.pubkey("new")
	if err != nil {
		return err
	}
	return s.send(ctx, s.client.Builder().SetMetadataUpdateAuthority(t, newAuthority))
}

func cmdMetadataRevokeAuthority(ctx context.Context, s *session, f flags) error {
	t, err := target(s, f, false, false)
	if err != nil {
		return err
	}
	return s.send(ctx, s.client.Builder().RevokeMetadataUpdateAuthority(t))
}

func cmdCollectionAppend(ctx context.Context, s *session, f flags) error {
	t, err := target(s, f, true, false)
	if err != nil {
		return err
	}
	delegate, err := f.authority("delegate", state.None())
	if err != nil {
		return err
	}
	return s.send(ctx, s.client.Builder().AppendMetadataCollection(t, delegate))
}

func cmdCollectionRemove(ctx context.Context, s *session, f flags) error {
	t, err := target(s, f, true, false)
	if err != nil {
		return err
	}
	return s.send(ctx, s.client.Builder().RemoveMetadataCollection(t))
}

func cmdCollectionSetAuthority(ctx context.Context, s *session, f flags) error {
	t, err := target(s, f, true, false)
	if err != nil {
		return err
	}
	newAuthority, err := f.pubkey("new")
	if err != nil {
		return err
	}
	return s.send(ctx, s.client.Builder().SetCollectionUpdateAuthority(t, newAuthority))
}

func cmdCollectionRevokeAuthority(ctx context.Context, s *session, f flags) error {
	t, err := target(s, f, true, false)
	if err != nil {
		return err
	}
	return s.send(ctx, s.client.Builder().RevokeCollectionUpdateAuthority(t))
}

func cmdItemAppend(ctx context.Context, s *session, f flags) error {
	t, err := target(s, f, true, true)
	if err != nil {
		return err
	}
	value, err := f.required("value")
	if err != nil {
		return err
	}
	return s.send(ctx, s.client.Builder().AppendMetadataItem(t, []byte(value)))
}

func cmdItemUpdate(ctx context.Context, s *session, f flags) error {
	t, err := target(s, f, true, true)
	if err != nil {
		return err
	}
	value, err := f.required("value")
	if err != nil {
		return err
	}
	return s.send(ctx, s.client.Builder().UpdateMetadataItem(t, []byte(value)))
}

func cmdItemRemove(ctx context.Context, s *session, f flags) error {
	t, err := target(s, f, true, true)
	if err != nil {
		return err
	}
	return s.send(ctx, s.client.Builder().RemoveMetadataItem(t))
}
