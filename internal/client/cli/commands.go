package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/claimkeeper/internal/client/models"
	"github.com/dmitrijs2005/claimkeeper/internal/client/services"
)

// parseValue turns the typed text into a field value; true/false become
// booleans so checkboxes such as the agreement can be answered.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes":
		return true
	case "false", "no":
		return false
	}
	return s
}

func (a *App) Set(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: set <field> [value]")
	}
	key := args[0]

	var value string
	if len(args) > 1 {
		value = strings.Join(args[1:], " ")
	} else {
		text, err := GetMultiline(a.reader, "Enter "+key, a.out)
		if err != nil {
			return err
		}
		value = text
	}
	return a.session.SetField(ctx, key, parseValue(value))
}

func (a *App) Unset(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: unset <field>")
	}
	a.session.DeleteField(ctx, args[0])
	return nil
}

func (a *App) Fields(context.Context) error {
	fields := a.session.Fields()
	if len(fields) == 0 {
		fmt.Fprintln(a.out, "No answers yet")
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(a.out, "%s = %v\n", k, fields[k])
	}
	return nil
}

func (a *App) AddFile(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: addfile <path>...")
	}

	raws := make([]models.RawFile, 0, len(args))
	for _, p := range args {
		data, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintf(a.out, "%s: %v\n", p, err)
			continue
		}
		raws = append(raws, models.RawFile{Name: filepath.Base(p), Data: data})
	}

	// Accepted and rejected files are reported through notifications.
	a.session.AddFiles(ctx, raws)
	return nil
}

// RemoveFile takes the 1-based number shown by "files".
func (a *App) RemoveFile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: rmfile <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid file number %q", args[0])
	}
	return a.session.RemoveFile(ctx, n-1)
}

func (a *App) Files(context.Context) error {
	files := a.session.Files()
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No files attached")
		return nil
	}
	for i, f := range files {
		fmt.Fprintf(a.out, "%d. %s (%s, %d bytes)\n", i+1, f.Name, f.Type, f.Size)
	}
	return nil
}

func (a *App) Export(ctx context.Context, args []string) error {
	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	return a.export(ctx, target)
}

func (a *App) export(ctx context.Context, target string) error {
	sink, err := a.newSink(target)
	if err != nil {
		return err
	}
	res, err := a.session.Export(ctx, sink)
	if res != nil {
		fmt.Fprintf(a.out, "Exported %s and %d file(s)\n", res.DocumentName, len(res.FileNames))
	}
	return err
}

// Submit finalizes the claim and exports it to the default destination.
func (a *App) Submit(ctx context.Context) error {
	if err := a.session.Finalize(ctx); err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintln(a.out, "The claim is not complete:")
			for _, m := range verr.Messages {
				fmt.Fprintln(a.out, "  -", m)
			}
			return nil
		}
		return err
	}
	if err := a.export(ctx, ""); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Claim submitted. Type 'clear' to start a new one.")
	return nil
}

func (a *App) Clear(ctx context.Context) error {
	if a.interactive && !Confirm(a.reader, "Discard all answers and files?", a.out) {
		return nil
	}
	if err := a.session.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Claim cleared")
	return nil
}

func (a *App) Status(context.Context) error {
	st := a.session.Status()
	fmt.Fprintf(a.out, "answers store: %s\nfile store:    %s\nfiles:         %d (%d not yet stored)\nsubmitted:     %t\nunsaved:       %t\nbridge peers:  %d\n",
		st.Metadata, st.Blobs, st.Files, st.PendingBlobs, st.Submitted, st.Dirty, a.hub.Peers())
	return nil
}
