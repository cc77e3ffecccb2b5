package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/dmitrijs2005/manokeeper/internal/client/rotation"
	"github.com/dmitrijs2005/manokeeper/internal/client/services"
)

// getPassphrase is an indirection used to facilitate testing.
var getPassphrase = GetPassphrase

var errAborted = errors.New("aborted by user")

// Status prints the signed-in user, the organisation's encryption state and
// the number of journaled orphan blobs.
func (a *App) Status(ctx context.Context) error {
	u, err := a.api.Me(ctx)
	if err != nil {
		return err
	}
	a.userName = u.Name

	org, err := a.api.GetOrganisation(ctx, a.config.OrganisationID)
	if err != nil {
		return err
	}

	a.printf("User:          %s (%s)\n", u.Name, u.Role)
	a.printf("Organisation:  %s\n", org.Name)
	if org.EncryptionEnabled {
		updated := "unknown"
		if org.EncryptionLastUpdateAt != nil {
			updated = org.EncryptionLastUpdateAt.Local().Format("2006-01-02 15:04:05")
		}
		a.printf("Encryption:    enabled, key changed %s\n", updated)
	} else {
		a.println("Encryption:    not enabled")
	}
	if org.LockedForEncryption {
		by := "someone"
		if org.LockedBy != nil {
			by = *org.LockedBy
		}
		a.printf("Locked:        yes, by %s\n", by)
	}
	if err := services.CanRotate(u, org); err != nil {
		a.printf("Key change:    not allowed (%s)\n", err)
	}

	pending, err := a.cleanup.Pending(ctx)
	if err != nil {
		return err
	}
	a.printf("Orphan files:  %d\n", len(pending))
	return nil
}

// Rotate walks the user through changing the organisation key: it checks the
// current key, counts the data, asks for the new key twice and runs the
// rotation with a progress line. Ctrl-C cancels and rolls back.
func (a *App) Rotate(ctx context.Context) error {
	sess, err := a.rotations.Open(ctx)
	if err != nil {
		return err
	}

	if sess.Organisation.EncryptionEnabled {
		current, err := getPassphrase(a.out, "Current key")
		if err != nil {
			return err
		}
		if err := a.rotations.Unlock(ctx, sess, current); err != nil {
			return err
		}
	} else {
		a.println("Encryption is not enabled yet: this sets the first key.")
		if err := a.rotations.Unlock(ctx, sess, ""); err != nil {
			return err
		}
	}

	inv, err := a.rotations.Inventory(ctx, sess)
	if err != nil {
		return err
	}
	a.printf("%d records and %d files will be re-encrypted.\n", inv.Total()-inv.Documents, inv.Documents)
	if inv.Unreadable > 0 {
		a.printf("Warning: %d records cannot be opened with the current key; the rotation will fail on them.\n", inv.Unreadable)
	}

	next, err := getPassphrase(a.out, "New key")
	if err != nil {
		return err
	}
	confirmation, err := getPassphrase(a.out, "Confirm new key")
	if err != nil {
		return err
	}
	if err := sess.Rotation.Validate(next, confirmation); err != nil {
		return err
	}

	a.println("Keep this key safe: without it the data cannot be read, and nobody can recover it.")
	ok, err := Confirm(a.reader, "Change the organisation key now?", a.out)
	if err != nil {
		return err
	}
	if !ok {
		return errAborted
	}

	res, err := a.runRotation(ctx, sess.Rotation, next, confirmation)
	a.println(formatProgress(rotation.Report(sess.Rotation.Snapshot(), a.now())))
	if err != nil {
		return err
	}

	a.printf("Done: %d records re-encrypted, %d files replaced.\n", res.Processed, len(res.Replaced))
	if res.DocumentFailures > 0 {
		a.printf("%d files could not be re-encrypted and still use the previous key.\n", res.DocumentFailures)
	}
	if len(res.Replaced) > 0 {
		a.println("Run 'cleanup' to delete the previous copies once the new key is confirmed.")
	}
	return nil
}

func (a *App) runRotation(ctx context.Context, o *rotation.Orchestrator, next, confirmation string) (*rotation.Result, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	stopWatch := watchProgress(a.out, a.progressInterval, o.Snapshot, a.now)
	defer stopWatch()

	return o.Rotate(ctx, next, confirmation)
}

// Orphans lists the journaled blobs waiting for cleanup.
func (a *App) Orphans(ctx context.Context) error {
	pending, err := a.cleanup.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		a.println("No orphan files.")
		return nil
	}
	for _, o := range pending {
		a.printf("%s  %-9s  person %s  %s\n", o.RecordedAt.Local().Format("2006-01-02 15:04"), o.Reason, o.PersonID, o.Filename)
	}
	a.printf("%d orphan files.\n", len(pending))
	return nil
}

// Cleanup deletes the journaled blobs from the server after confirmation.
func (a *App) Cleanup(ctx context.Context) error {
	pending, err := a.cleanup.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		a.println("Nothing to clean up.")
		return nil
	}

	ok, err := Confirm(a.reader, fmt.Sprintf("Delete %d files from the server?", len(pending)), a.out)
	if err != nil {
		return err
	}
	if !ok {
		return errAborted
	}

	report, err := a.cleanup.Run(ctx)
	if report != nil {
		a.printf("Deleted %d, already gone %d, failed %d.\n", report.Deleted, report.Missing, report.Failed)
	}
	return err
}
