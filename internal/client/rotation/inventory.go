package rotation

import (
	"context"

	"github.com/dmitrijs2005/manokeeper/internal/client/models"
	"github.com/dmitrijs2005/manokeeper/internal/cryptox"
)

// CountItems returns the number of records plus the number of attached
// files (folders excluded) of the document-bearing collections.
func CountItems(records map[models.Collection][]models.Payload) int {
	total := 0
	for col, payloads := range records {
		total += len(payloads)
		if !col.BearsDocuments() {
			continue
		}
		for _, p := range payloads {
			total += models.CountFiles(p.Documents())
		}
	}
	return total
}

// Lister lists one collection.
type Lister interface {
	ListCollection(ctx context.Context, c models.Collection, organisationID string) ([]models.Item, error)
}

// Inventory summarises an organisation's encrypted data.
type Inventory struct {
	Records map[models.Collection]int
	// Documents counts attached files, folders excluded.
	Documents int
	// Unreadable counts records that key could not open.
	Unreadable int
	// Plain counts records without ciphertext; a rotation skips them.
	Plain int
}

// Total is the progress denominator.
func (inv Inventory) Total() int {
	n := inv.Documents
	for _, c := range inv.Records {
		n += c
	}
	return n
}

// TakeInventory fetches every collection and decrypts it with key to count
// records and attached files. Records that fail to decrypt are still
// counted, without documents.
func TakeInventory(ctx context.Context, l Lister, organisationID string, key []byte) (*Inventory, error) {
	inv := &Inventory{Records: make(map[models.Collection]int, len(models.RotationOrder))}
	payloads := make(map[models.Collection][]models.Payload, len(models.RotationOrder))

	for _, col := range models.RotationOrder {
		items, err := l.ListCollection(ctx, col, organisationID)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if !item.HasCiphertext() {
				inv.Plain++
				payloads[col] = append(payloads[col], models.Payload{})
				continue
			}
			p := models.Payload{}
			content, _, err := cryptox.DecryptContent(item.Encrypted, item.EncryptedEntityKey, key)
			switch {
			case err != nil:
				inv.Unreadable++
			case col.BearsDocuments():
				if parsed, err := models.ParsePayload(content); err == nil {
					p = parsed
				}
			}
			payloads[col] = append(payloads[col], p)
		}
		inv.Records[col] = len(payloads[col])
	}

	inv.Documents = CountItems(payloads) - countRecords(inv.Records)
	return inv, nil
}

func countRecords(records map[models.Collection]int) int {
	n := 0
	for _, c := range records {
		n += c
	}
	return n
}
