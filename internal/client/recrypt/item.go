package recrypt

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/manokeeper/internal/client/models"
	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/dmitrijs2005/manokeeper/internal/cryptox"
)

// Keys is the pair of organisation keys of one rotation.
type Keys struct {
	From []byte
	To   []byte
}

// Transform may rewrite a decrypted payload before it is sealed again.
type Transform func(ctx context.Context, item models.Item, payload models.Payload) (models.Payload, error)

// RecryptItem opens item under keys.From, applies transform (if any) and
// seals the result under the same entity key wrapped by keys.To.
// Items that carry no ciphertext yield (nil, nil).
func RecryptItem(ctx context.Context, item models.Item, keys Keys, transform Transform) (*models.Item, error) {
	if !item.HasCiphertext() {
		return nil, nil
	}

	content, entityKey, err := cryptox.DecryptContent(item.Encrypted, item.EncryptedEntityKey, keys.From)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	defer common.WipeByteArray(entityKey)

	if transform != nil {
		payload, err := models.ParsePayload(content)
		if err != nil {
			return nil, err
		}
		payload, err = transform(ctx, item, payload)
		if err != nil {
			return nil, err
		}
		content, err = payload.Marshal()
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
	}

	encrypted, encryptedEntityKey, err := cryptox.EncryptContent(content, entityKey, keys.To)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	out := item
	out.Encrypted = encrypted
	out.EncryptedEntityKey = encryptedEntityKey
	return &out, nil
}
